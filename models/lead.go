// Package models contains domain entities for the lead management service
package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadType classifies a prospective customer
type LeadType string

const (
	LeadTypeResident LeadType = "resident"
	LeadTypeTourist  LeadType = "tourist"
	LeadTypeCompany  LeadType = "company"
)

func (t LeadType) String() string {
	return string(t)
}

// Valid reports whether t is one of the known lead types
func (t LeadType) Valid() bool {
	switch t {
	case LeadTypeResident, LeadTypeTourist, LeadTypeCompany:
		return true
	}
	return false
}

// Lead represents a prospective customer record
// Table: leads
// Unique by email
// CompanyName is only meaningful when Type is company
type Lead struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:50;not null" json:"name"`
	Email       string    `gorm:"size:100;not null;uniqueIndex:uk_leads_email" json:"email"`
	Type        LeadType  `gorm:"size:10;not null;index:idx_leads_type" json:"type"`
	CompanyName *string   `gorm:"size:50" json:"company_name"`
	PhoneNumber string    `gorm:"size:20;not null" json:"phone_number"`
	CreatedAt   time.Time `gorm:"not null;index:idx_leads_created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

// IsCompany reports whether the lead represents a company
func (l *Lead) IsCompany() bool {
	return l.Type == LeadTypeCompany
}

// HasCompanyName reports whether a non-empty company name is set
func (l *Lead) HasCompanyName() bool {
	return l.CompanyName != nil && *l.CompanyName != ""
}

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID            *uuid.UUID
	Email         *string
	Type          *LeadType
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
