package testing

import (
	"fmt"
	"sync/atomic"

	"github.com/amirphl/lead-manager/models"
	"github.com/amirphl/lead-manager/utils"
	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

var leadSeq atomic.Int64

// NewTestLead builds an unsaved lead with a unique email
func NewTestLead(leadType models.LeadType) *models.Lead {
	n := leadSeq.Add(1)
	now := utils.UTCNow()
	lead := &models.Lead{
		ID:          uuid.New(),
		Name:        "Maria Silva",
		Email:       fmt.Sprintf("maria.%d.%s@example.com", n, uuid.NewString()[:8]),
		Type:        leadType,
		PhoneNumber: "(11) 9 9999-9999",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if leadType == models.LeadTypeCompany {
		lead.CompanyName = utils.ToPtr("Acme Ltda")
	}
	return lead
}

// CreateTestLead inserts a lead of the given type
func (tf *TestFixtures) CreateTestLead(leadType models.LeadType) (*models.Lead, error) {
	lead := NewTestLead(leadType)
	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}
	return lead, nil
}

// CountLeadsByEmail counts stored leads with the given email
func (tf *TestFixtures) CountLeadsByEmail(email string) (int64, error) {
	var count int64
	err := tf.DB.DB.Model(&models.Lead{}).Where("email = ?", email).Count(&count).Error
	return count, err
}
