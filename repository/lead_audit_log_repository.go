package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/lead-manager/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadAuditLogRepositoryImpl implements LeadAuditLogRepository interface
type LeadAuditLogRepositoryImpl struct {
	*BaseRepository[models.LeadAuditLog, models.LeadAuditLogFilter]
}

// NewLeadAuditLogRepository creates a new lead audit log repository
func NewLeadAuditLogRepository(db *gorm.DB) LeadAuditLogRepository {
	return &LeadAuditLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LeadAuditLog, models.LeadAuditLogFilter](db),
	}
}

// ListByLead retrieves audit entries for a lead, newest first
func (r *LeadAuditLogRepositoryImpl) ListByLead(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]*models.LeadAuditLog, error) {
	return r.ByFilter(ctx, models.LeadAuditLogFilter{LeadID: &leadID}, "created_at DESC, id DESC", limit, offset)
}

func (r *LeadAuditLogRepositoryImpl) applyFilter(db *gorm.DB, f models.LeadAuditLogFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.LeadID != nil {
		db = db.Where("lead_id = ?", *f.LeadID)
	}
	if f.Action != nil {
		db = db.Where("action = ?", *f.Action)
	}
	if f.RequestID != nil {
		db = db.Where("request_id = ?", *f.RequestID)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *LeadAuditLogRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadAuditLogFilter, orderBy string, limit, offset int) ([]*models.LeadAuditLog, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.LeadAuditLog{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.LeadAuditLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list lead audit logs: %w", err)
	}
	return rows, nil
}

func (r *LeadAuditLogRepositoryImpl) Count(ctx context.Context, filter models.LeadAuditLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.LeadAuditLog{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count lead audit logs: %w", err)
	}
	return count, nil
}

func (r *LeadAuditLogRepositoryImpl) Exists(ctx context.Context, filter models.LeadAuditLogFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
