package businessflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/lead-manager/app/dto"
	"github.com/amirphl/lead-manager/app/services"
	"github.com/amirphl/lead-manager/models"
	"github.com/amirphl/lead-manager/repository"
	"github.com/amirphl/lead-manager/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadFlow handles the lead lifecycle: create, read, update, delete and export
type LeadFlow interface {
	Create(ctx context.Context, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error)
	FindAll(ctx context.Context, metadata *ClientMetadata) ([]dto.LeadDTO, error)
	FindOne(ctx context.Context, id string, metadata *ClientMetadata) (*dto.LeadDTO, error)
	Update(ctx context.Context, id string, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error)
	Remove(ctx context.Context, id string, metadata *ClientMetadata) (*dto.DeleteLeadResponse, error)
	Export(ctx context.Context, metadata *ClientMetadata) (*dto.ExportLeadsResponse, error)
}

// LeadFlowImpl implements LeadFlow
type LeadFlowImpl struct {
	leadRepo  repository.LeadRepository
	auditRepo repository.LeadAuditLogRepository
	tx        repository.Transactor
	cache     services.LeadCache
}

// NewLeadFlow creates a new lead flow instance
func NewLeadFlow(
	leadRepo repository.LeadRepository,
	auditRepo repository.LeadAuditLogRepository,
	tx repository.Transactor,
	cache services.LeadCache,
) LeadFlow {
	if cache == nil {
		cache = services.NewNoopLeadCache()
	}
	return &LeadFlowImpl{
		leadRepo:  leadRepo,
		auditRepo: auditRepo,
		tx:        tx,
		cache:     cache,
	}
}

func leadNotFound() error {
	return NewBusinessError("LEAD_NOT_FOUND", "Lead does not exist", ErrLeadNotFound)
}

func leadEmailExists() error {
	return NewBusinessError("LEAD_EMAIL_ALREADY_EXISTS", "Lead already exists", ErrLeadEmailAlreadyExists)
}

// Create registers a new lead. The email pre-check is backed by the unique index.
func (f *LeadFlowImpl) Create(ctx context.Context, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Lead request is required", ErrLeadRequestRequired)
	}

	leadType := models.LeadType(req.Type)
	if !leadType.Valid() {
		return nil, NewBusinessError("VALIDATION_ERROR", "Invalid lead type", ErrInvalidLeadType)
	}
	if leadType == models.LeadTypeCompany && (req.CompanyName == nil || *req.CompanyName == "") {
		return nil, NewBusinessError("VALIDATION_ERROR", "Company name is required", ErrCompanyNameRequired)
	}

	existing, err := f.leadRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to look up lead", err)
	}
	if existing != nil {
		return nil, leadEmailExists()
	}

	now := utils.UTCNow()
	lead := &models.Lead{
		ID:          uuid.New(),
		Name:        req.Name,
		Email:       req.Email,
		Type:        leadType,
		CompanyName: req.CompanyName,
		PhoneNumber: req.PhoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.leadRepo.Save(txCtx, lead); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrLeadEmailAlreadyExists
			}
			return err
		}
		return f.createAuditLog(txCtx, lead.ID, models.AuditActionLeadCreated, fmt.Sprintf("Lead created: %s", lead.Email), metadata)
	})
	if err != nil {
		if IsLeadEmailAlreadyExists(err) {
			return nil, leadEmailExists()
		}
		return nil, NewBusinessError("LEAD_CREATE_FAILED", "Failed to create lead", err)
	}

	f.cache.InvalidateList(ctx)

	out := ToLeadDTO(*lead)
	return &out, nil
}

// FindAll returns every stored lead
func (f *LeadFlowImpl) FindAll(ctx context.Context, metadata *ClientMetadata) ([]dto.LeadDTO, error) {
	cached, version, ok := f.cache.GetLeadList(ctx)
	if ok {
		return cached, nil
	}

	leads, err := f.leadRepo.ByFilter(ctx, models.LeadFilter{}, "created_at ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Failed to list leads", err)
	}

	out := ToLeadDTOs(leads)
	f.cache.SetLeadList(ctx, out, version)
	return out, nil
}

// FindOne returns the lead with the given id. Ids that are not UUIDs cannot exist.
func (f *LeadFlowImpl) FindOne(ctx context.Context, id string, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	leadID, err := utils.ParseUUID(id)
	if err != nil {
		return nil, leadNotFound()
	}

	cached, version, ok := f.cache.GetLead(ctx, leadID.String())
	if ok {
		return cached, nil
	}

	lead, err := f.leadRepo.ByID(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to look up lead", err)
	}
	if lead == nil {
		return nil, leadNotFound()
	}

	out := ToLeadDTO(*lead)
	f.cache.SetLead(ctx, out, version)
	return &out, nil
}

// Update applies a partial update as a conditional write keyed by id.
// The merged row must still satisfy the company_name rule or the write is rolled back.
func (f *LeadFlowImpl) Update(ctx context.Context, id string, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	if req == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "Lead request is required", ErrLeadRequestRequired)
	}

	leadID, err := utils.ParseUUID(id)
	if err != nil {
		return nil, leadNotFound()
	}

	if req.Type != nil && !models.LeadType(*req.Type).Valid() {
		return nil, NewBusinessError("VALIDATION_ERROR", "Invalid lead type", ErrInvalidLeadType)
	}

	updates := buildLeadUpdates(req)

	var updated *models.Lead
	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		found, err := f.leadRepo.UpdateByID(txCtx, leadID, updates)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrLeadEmailAlreadyExists
			}
			return err
		}
		if !found {
			return ErrLeadNotFound
		}

		updated, err = f.leadRepo.ByID(txCtx, leadID)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrLeadNotFound
		}
		if updated.IsCompany() && !updated.HasCompanyName() {
			return ErrCompanyNameRequired
		}

		return f.createAuditLog(txCtx, leadID, models.AuditActionLeadUpdated, fmt.Sprintf("Lead updated: %s", updated.Email), metadata)
	})
	if err != nil {
		switch {
		case IsLeadNotFound(err):
			return nil, leadNotFound()
		case IsLeadEmailAlreadyExists(err):
			return nil, leadEmailExists()
		case IsCompanyNameRequired(err):
			return nil, NewBusinessError("VALIDATION_ERROR", "Company name is required", ErrCompanyNameRequired)
		}
		return nil, NewBusinessError("LEAD_UPDATE_FAILED", "Failed to update lead", err)
	}

	f.cache.InvalidateLead(ctx, leadID.String())

	out := ToLeadDTO(*updated)
	return &out, nil
}

// Remove deletes the lead with the given id
func (f *LeadFlowImpl) Remove(ctx context.Context, id string, metadata *ClientMetadata) (*dto.DeleteLeadResponse, error) {
	leadID, err := utils.ParseUUID(id)
	if err != nil {
		return nil, leadNotFound()
	}

	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		found, err := f.leadRepo.DeleteByID(txCtx, leadID)
		if err != nil {
			return err
		}
		if !found {
			return ErrLeadNotFound
		}
		return f.createAuditLog(txCtx, leadID, models.AuditActionLeadDeleted, fmt.Sprintf("Lead deleted: %s", leadID), metadata)
	})
	if err != nil {
		if IsLeadNotFound(err) {
			return nil, leadNotFound()
		}
		return nil, NewBusinessError("LEAD_DELETE_FAILED", "Failed to delete lead", err)
	}

	f.cache.InvalidateLead(ctx, leadID.String())

	return &dto.DeleteLeadResponse{Message: utils.LeadDeletedMessage}, nil
}

// buildLeadUpdates maps supplied patch fields to column updates.
// Moving a lead away from company clears its company name.
func buildLeadUpdates(req *dto.UpdateLeadRequest) map[string]any {
	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.PhoneNumber != nil {
		updates["phone_number"] = *req.PhoneNumber
	}
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
	}
	if req.Type != nil {
		updates["type"] = *req.Type
		if models.LeadType(*req.Type) != models.LeadTypeCompany {
			updates["company_name"] = nil
		}
	}
	return updates
}

func (f *LeadFlowImpl) createAuditLog(ctx context.Context, leadID uuid.UUID, action, description string, metadata *ClientMetadata) error {
	if f.auditRepo == nil {
		return nil
	}

	audit := &models.LeadAuditLog{
		LeadID:      leadID,
		Action:      action,
		Description: &description,
		CreatedAt:   utils.UTCNow(),
	}

	if metadata != nil {
		if metadata.IPAddress != "" {
			audit.IPAddress = utils.ToPtr(metadata.IPAddress)
		}
		if metadata.UserAgent != "" {
			audit.UserAgent = utils.ToPtr(metadata.UserAgent)
		}
		if metadata.RequestID != "" {
			audit.RequestID = utils.ToPtr(metadata.RequestID)
		}
		if metadata.Subject != "" {
			audit.Actor = utils.ToPtr(metadata.Subject)
		}
	}

	// Fall back to the request id carried on the context
	if audit.RequestID == nil {
		if requestID, ok := ctx.Value(utils.RequestIDKey).(string); ok && requestID != "" {
			audit.RequestID = &requestID
		}
	}

	if err := f.auditRepo.Save(ctx, audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
