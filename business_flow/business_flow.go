// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/amirphl/lead-manager/app/dto"
	"github.com/amirphl/lead-manager/models"
)

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSubject sets the authenticated caller, if any
func (cm *ClientMetadata) SetSubject(subject string) {
	cm.Subject = subject
}

// ToLeadDTO converts a lead model to its API representation
func ToLeadDTO(lead models.Lead) dto.LeadDTO {
	return dto.LeadDTO{
		ID:          lead.ID.String(),
		Name:        lead.Name,
		Email:       lead.Email,
		Type:        lead.Type.String(),
		CompanyName: lead.CompanyName,
		PhoneNumber: lead.PhoneNumber,
		CreatedAt:   lead.CreatedAt.UTC(),
		UpdatedAt:   lead.UpdatedAt.UTC(),
	}
}

// ToLeadDTOs converts a list of lead models
func ToLeadDTOs(leads []*models.Lead) []dto.LeadDTO {
	out := make([]dto.LeadDTO, 0, len(leads))
	for _, l := range leads {
		if l == nil {
			continue
		}
		out = append(out, ToLeadDTO(*l))
	}
	return out
}
