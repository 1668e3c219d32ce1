package dto

import "time"

// CreateLeadRequest carries data to register a new lead
// CompanyName is required only when Type is company
// PhoneNumber must look like "(11) 9 9999-9999"
type CreateLeadRequest struct {
	Name        string  `json:"name" validate:"required,min=4,max=50"`
	Email       string  `json:"email" validate:"required,email,max=100"`
	Type        string  `json:"type" validate:"required,oneof=resident tourist company"`
	CompanyName *string `json:"company_name,omitempty" validate:"required_if=Type company,omitempty,min=5,max=50"`
	PhoneNumber string  `json:"phone_number" validate:"required,phone_format"`
}

// UpdateLeadRequest carries a partial update; nil fields are left untouched
type UpdateLeadRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitnil,min=4,max=50"`
	Email       *string `json:"email,omitempty" validate:"omitnil,email,max=100"`
	Type        *string `json:"type,omitempty" validate:"omitnil,oneof=resident tourist company"`
	CompanyName *string `json:"company_name,omitempty" validate:"omitnil,min=5,max=50"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitnil,phone_format"`
}

// IsEmpty reports whether the patch carries no field at all
func (r *UpdateLeadRequest) IsEmpty() bool {
	return r.Name == nil && r.Email == nil && r.Type == nil && r.CompanyName == nil && r.PhoneNumber == nil
}

// LeadDTO is the API representation of a lead
type LeadDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Type        string    `json:"type"`
	CompanyName *string   `json:"company_name"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeleteLeadResponse confirms a deletion
type DeleteLeadResponse struct {
	Message string `json:"message"`
}

// ExportLeadsResponse carries an xlsx workbook of leads
type ExportLeadsResponse struct {
	Filename string
	Content  []byte
	Count    int
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}
