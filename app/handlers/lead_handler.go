package handlers

import (
	"log"

	"github.com/amirphl/lead-manager/app/dto"
	businessflow "github.com/amirphl/lead-manager/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// LeadHandlerInterface defines the contract for lead handlers
type LeadHandlerInterface interface {
	CreateLead(c fiber.Ctx) error
	ListLeads(c fiber.Ctx) error
	GetLead(c fiber.Ctx) error
	UpdateLead(c fiber.Ctx) error
	DeleteLead(c fiber.Ctx) error
	ExportLeads(c fiber.Ctx) error
}

// LeadHandler handles lead-related HTTP requests
type LeadHandler struct {
	flow      businessflow.LeadFlow
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(flow businessflow.LeadFlow) *LeadHandler {
	return &LeadHandler{
		flow:      flow,
		validator: newValidator(),
	}
}

func (h *LeadHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.NewErrorResponse(message, errorCode, details))
}

// handleFlowError maps business errors onto HTTP statuses
func (h *LeadHandler) handleFlowError(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsLeadNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Lead does not exist", "LEAD_NOT_FOUND", nil)
	case businessflow.IsLeadEmailAlreadyExists(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Lead already exists", "LEAD_EMAIL_ALREADY_EXISTS", nil)
	case businessflow.IsCompanyNameRequired(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", []string{"company_name is required when type is company"})
	case businessflow.IsValidationError(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", []string{err.Error()})
	}

	log.Printf("lead request %s %s failed: %v", c.Method(), c.Path(), err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR", nil)
}

// CreateLead handles lead registration
// @Summary Create Lead
// @Description Register a new lead. company_name is required when type is company.
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body dto.CreateLeadRequest true "Lead data"
// @Success 201 {object} dto.LeadDTO "Lead created"
// @Failure 400 {object} dto.APIResponse "Validation error or lead already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads [post]
func (h *LeadHandler) CreateLead(c fiber.Ctx) error {
	var req dto.CreateLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "VALIDATION_ERROR", []string{err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c)
	defer cancel()

	result, err := h.flow.Create(ctx, &req, clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// ListLeads returns every lead
// @Summary List Leads
// @Tags Leads
// @Produce json
// @Success 200 {array} dto.LeadDTO "All leads"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads [get]
func (h *LeadHandler) ListLeads(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c)
	defer cancel()

	result, err := h.flow.FindAll(ctx, clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// GetLead returns a single lead
// @Summary Get Lead
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID (UUID)"
// @Success 200 {object} dto.LeadDTO "Lead"
// @Failure 404 {object} dto.APIResponse "Lead does not exist"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) GetLead(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c)
	defer cancel()

	result, err := h.flow.FindOne(ctx, c.Params("id"), clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// UpdateLead applies a partial update
// @Summary Update Lead
// @Description Only supplied fields are changed. Switching type away from company clears company_name.
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID (UUID)"
// @Param request body dto.UpdateLeadRequest true "Fields to change"
// @Success 200 {object} dto.LeadDTO "Updated lead"
// @Failure 400 {object} dto.APIResponse "Validation error or email taken"
// @Failure 404 {object} dto.APIResponse "Lead does not exist"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/{id} [patch]
func (h *LeadHandler) UpdateLead(c fiber.Ctx) error {
	var req dto.UpdateLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "VALIDATION_ERROR", []string{err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c)
	defer cancel()

	result, err := h.flow.Update(ctx, c.Params("id"), &req, clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// DeleteLead removes a lead
// @Summary Delete Lead
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID (UUID)"
// @Success 200 {object} dto.DeleteLeadResponse "Lead deleted successfully"
// @Failure 404 {object} dto.APIResponse "Lead does not exist"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/{id} [delete]
func (h *LeadHandler) DeleteLead(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c)
	defer cancel()

	result, err := h.flow.Remove(ctx, c.Params("id"), clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// ExportLeads downloads every lead as an Excel workbook
// @Summary Export Leads
// @Tags Leads
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary "Excel workbook"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/export [get]
func (h *LeadHandler) ExportLeads(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c)
	defer cancel()

	result, err := h.flow.Export(ctx, clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Attachment(result.Filename)
	return c.Status(fiber.StatusOK).Send(result.Content)
}
