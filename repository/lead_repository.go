package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/lead-manager/models"
	"github.com/amirphl/lead-manager/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadRepositoryImpl implements LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

func (r *LeadRepositoryImpl) ByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	filter := models.LeadFilter{ID: &id}
	rows, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *LeadRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Lead, error) {
	filter := models.LeadFilter{Email: &email}
	rows, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *LeadRepositoryImpl) UpdateByID(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	db := r.getDB(ctx)

	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["updated_at"] = utils.UTCNow()

	result := db.Model(&models.Lead{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update lead %s: %w", id, result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *LeadRepositoryImpl) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	db := r.getDB(ctx)

	result := db.Where("id = ?", id).Delete(&models.Lead{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete lead %s: %w", id, result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *LeadRepositoryImpl) applyFilter(db *gorm.DB, f models.LeadFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.Email != nil {
		db = db.Where("email = ?", *f.Email)
	}
	if f.Type != nil {
		db = db.Where("type = ?", *f.Type)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Lead
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find leads by filter: %w", err)
	}
	return rows, nil
}

func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return count, nil
}

func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
