// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/lead-manager/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// Transactor runs fn inside a single unit of work; repositories called with
// the context passed to fn share that unit of work
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// LeadRepository defines operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	ByEmail(ctx context.Context, email string) (*models.Lead, error)
	// UpdateByID applies updates to the row with the given id and reports
	// whether such a row existed. updated_at is always refreshed.
	UpdateByID(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	// DeleteByID removes the row with the given id and reports whether it existed
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// LeadAuditLogRepository defines operations for the lead audit trail
type LeadAuditLogRepository interface {
	Repository[models.LeadAuditLog, models.LeadAuditLogFilter]
	ListByLead(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]*models.LeadAuditLog, error)
}
