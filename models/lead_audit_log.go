package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadAuditLog records a single lifecycle event of a lead
// Table: lead_audit_log
// Rows outlive the lead they describe, so lead_id carries no foreign key
type LeadAuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LeadID      uuid.UUID `gorm:"type:uuid;not null;index:idx_lead_audit_lead_id" json:"lead_id"`
	Action      string    `gorm:"size:32;not null;index:idx_lead_audit_action" json:"action"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	IPAddress   *string   `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent   *string   `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID   *string   `gorm:"size:255;index:idx_lead_audit_request_id" json:"request_id,omitempty"`
	Actor       *string   `gorm:"size:255" json:"actor,omitempty"` // token subject of the caller, when authenticated
	CreatedAt   time.Time `gorm:"not null;index:idx_lead_audit_created_at" json:"created_at"`
}

func (LeadAuditLog) TableName() string {
	return "lead_audit_log"
}

// Audit action constants
const (
	AuditActionLeadCreated = "lead_created"
	AuditActionLeadUpdated = "lead_updated"
	AuditActionLeadDeleted = "lead_deleted"
)

// LeadAuditLogFilter represents filter criteria for audit log queries
type LeadAuditLogFilter struct {
	ID            *uint
	LeadID        *uuid.UUID
	Action        *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
