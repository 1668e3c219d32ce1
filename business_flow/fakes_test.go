package businessflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/lead-manager/models"
	"github.com/amirphl/lead-manager/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeLeadRepository is an in-memory LeadRepository with a unique email index
type fakeLeadRepository struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]models.Lead
	failErr error
	writes  int
}

func newFakeLeadRepository() *fakeLeadRepository {
	return &fakeLeadRepository{rows: make(map[uuid.UUID]models.Lead)}
}

func (r *fakeLeadRepository) snapshot() map[uuid.UUID]models.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]models.Lead, len(r.rows))
	for k, v := range r.rows {
		out[k] = v
	}
	return out
}

func (r *fakeLeadRepository) restore(rows map[uuid.UUID]models.Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = rows
}

func (r *fakeLeadRepository) emailTaken(email string, except uuid.UUID) bool {
	for id, l := range r.rows {
		if id != except && l.Email == email {
			return true
		}
	}
	return false
}

func (r *fakeLeadRepository) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}

	var out []*models.Lead
	for _, l := range r.rows {
		if filter.ID != nil && l.ID != *filter.ID {
			continue
		}
		if filter.Email != nil && l.Email != *filter.Email {
			continue
		}
		if filter.Type != nil && l.Type != *filter.Type {
			continue
		}
		lead := l
		out = append(out, &lead)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if offset > 0 && offset < len(out) {
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeLeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	if r.emailTaken(lead.Email, lead.ID) {
		return gorm.ErrDuplicatedKey
	}
	r.rows[lead.ID] = *lead
	r.writes++
	return nil
}

func (r *fakeLeadRepository) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	leads, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(leads)), err
}

func (r *fakeLeadRepository) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *fakeLeadRepository) ByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	leads, err := r.ByFilter(ctx, models.LeadFilter{ID: &id}, "", 1, 0)
	if err != nil || len(leads) == 0 {
		return nil, err
	}
	return leads[0], nil
}

func (r *fakeLeadRepository) ByEmail(ctx context.Context, email string) (*models.Lead, error) {
	leads, err := r.ByFilter(ctx, models.LeadFilter{Email: &email}, "", 1, 0)
	if err != nil || len(leads) == 0 {
		return nil, err
	}
	return leads[0], nil
}

func (r *fakeLeadRepository) UpdateByID(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return false, r.failErr
	}
	lead, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	for col, v := range updates {
		switch col {
		case "name":
			lead.Name = v.(string)
		case "email":
			lead.Email = v.(string)
		case "type":
			lead.Type = models.LeadType(v.(string))
		case "phone_number":
			lead.PhoneNumber = v.(string)
		case "company_name":
			if v == nil {
				lead.CompanyName = nil
			} else {
				lead.CompanyName = utils.ToPtr(v.(string))
			}
		}
	}
	if r.emailTaken(lead.Email, id) {
		return false, gorm.ErrDuplicatedKey
	}
	lead.UpdatedAt = utils.UTCNow().Add(time.Millisecond)
	r.rows[id] = lead
	r.writes++
	return true, nil
}

func (r *fakeLeadRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return false, r.failErr
	}
	if _, ok := r.rows[id]; !ok {
		return false, nil
	}
	delete(r.rows, id)
	r.writes++
	return true, nil
}

// fakeAuditRepository records audit rows in memory
type fakeAuditRepository struct {
	mu      sync.Mutex
	entries []models.LeadAuditLog
}

func (r *fakeAuditRepository) snapshot() []models.LeadAuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.LeadAuditLog(nil), r.entries...)
}

func (r *fakeAuditRepository) restore(entries []models.LeadAuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = entries
}

func (r *fakeAuditRepository) ByFilter(ctx context.Context, filter models.LeadAuditLogFilter, orderBy string, limit, offset int) ([]*models.LeadAuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LeadAuditLog
	for _, e := range r.entries {
		if filter.LeadID != nil && e.LeadID != *filter.LeadID {
			continue
		}
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		entry := e
		out = append(out, &entry)
	}
	return out, nil
}

func (r *fakeAuditRepository) Save(ctx context.Context, entry *models.LeadAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepository) Count(ctx context.Context, filter models.LeadAuditLogFilter) (int64, error) {
	entries, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(entries)), err
}

func (r *fakeAuditRepository) Exists(ctx context.Context, filter models.LeadAuditLogFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *fakeAuditRepository) ListByLead(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]*models.LeadAuditLog, error) {
	return r.ByFilter(ctx, models.LeadAuditLogFilter{LeadID: &leadID}, "", limit, offset)
}

// fakeTransactor restores both fakes when fn fails
type fakeTransactor struct {
	leads  *fakeLeadRepository
	audits *fakeAuditRepository
}

func (t *fakeTransactor) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	leads := t.leads.snapshot()
	audits := t.audits.snapshot()
	if err := fn(ctx); err != nil {
		t.leads.restore(leads)
		t.audits.restore(audits)
		return err
	}
	return nil
}

var errStoreDown = errors.New("store down")

// interleavingLeadRepository runs a hook once right after a read completes,
// so a concurrent write can land between the store read and the cache fill
type interleavingLeadRepository struct {
	*fakeLeadRepository
	afterByID   func()
	afterFilter func()
}

func (r *interleavingLeadRepository) ByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	lead, err := r.fakeLeadRepository.ByID(ctx, id)
	if hook := r.afterByID; hook != nil {
		r.afterByID = nil
		hook()
	}
	return lead, err
}

func (r *interleavingLeadRepository) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	leads, err := r.fakeLeadRepository.ByFilter(ctx, filter, orderBy, limit, offset)
	if hook := r.afterFilter; hook != nil {
		r.afterFilter = nil
		hook()
	}
	return leads, err
}
