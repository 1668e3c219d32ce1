package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/lead-manager/models"
	"github.com/amirphl/lead-manager/repository"
	testingutil "github.com/amirphl/lead-manager/testing"
	"github.com/amirphl/lead-manager/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLeadRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewLeadRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndByID", func(t *testing.T) {
			lead := testingutil.NewTestLead(models.LeadTypeCompany)
			require.NoError(t, repo.Save(ctx, lead))

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, lead.ID, found.ID)
			assert.Equal(t, lead.Email, found.Email)
			assert.Equal(t, models.LeadTypeCompany, found.Type)
			require.NotNil(t, found.CompanyName)
			assert.Equal(t, "Acme Ltda", *found.CompanyName)
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			found, err := repo.ByID(ctx, uuid.New())
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByEmail", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadTypeResident)
			require.NoError(t, err)

			found, err := repo.ByEmail(ctx, lead.Email)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, lead.ID, found.ID)

			missing, err := repo.ByEmail(ctx, "nobody@example.com")
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("DuplicateEmailIsTranslated", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadTypeTourist)
			require.NoError(t, err)

			dup := testingutil.NewTestLead(models.LeadTypeResident)
			dup.Email = lead.Email

			err = repo.Save(ctx, dup)
			require.Error(t, err)
			assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

			count, err := fixtures.CountLeadsByEmail(lead.Email)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("UpdateByID", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadTypeResident)
			require.NoError(t, err)
			time.Sleep(5 * time.Millisecond)

			found, err := repo.UpdateByID(ctx, lead.ID, map[string]any{"name": "Joana Souza"})
			require.NoError(t, err)
			assert.True(t, found)

			updated, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Equal(t, "Joana Souza", updated.Name)
			assert.Equal(t, lead.Email, updated.Email)
			assert.Equal(t, lead.PhoneNumber, updated.PhoneNumber)
			assert.True(t, updated.UpdatedAt.After(lead.UpdatedAt))
		})

		t.Run("UpdateByIDMissing", func(t *testing.T) {
			found, err := repo.UpdateByID(ctx, uuid.New(), map[string]any{"name": "Nobody Here"})
			require.NoError(t, err)
			assert.False(t, found)
		})

		t.Run("UpdateByIDClearsCompanyName", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadTypeCompany)
			require.NoError(t, err)

			found, err := repo.UpdateByID(ctx, lead.ID, map[string]any{"type": "resident", "company_name": nil})
			require.NoError(t, err)
			assert.True(t, found)

			updated, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Equal(t, models.LeadTypeResident, updated.Type)
			assert.Nil(t, updated.CompanyName)
		})

		t.Run("DeleteByID", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(models.LeadTypeTourist)
			require.NoError(t, err)

			found, err := repo.DeleteByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.True(t, found)

			found, err = repo.DeleteByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.False(t, found)

			gone, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Nil(t, gone)
		})

		t.Run("ByFilterCountExists", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			for _, lt := range []models.LeadType{models.LeadTypeCompany, models.LeadTypeCompany, models.LeadTypeTourist} {
				_, err := fixtures.CreateTestLead(lt)
				require.NoError(t, err)
			}

			all, err := repo.ByFilter(ctx, models.LeadFilter{}, "created_at ASC", 0, 0)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			company := models.LeadTypeCompany
			count, err := repo.Count(ctx, models.LeadFilter{Type: &company})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			resident := models.LeadTypeResident
			exists, err := repo.Exists(ctx, models.LeadFilter{Type: &resident})
			require.NoError(t, err)
			assert.False(t, exists)

			limited, err := repo.ByFilter(ctx, models.LeadFilter{}, "created_at ASC", 2, 0)
			require.NoError(t, err)
			assert.Len(t, limited, 2)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestWithTransaction(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewLeadRepository(testDB.DB)
		tx := repository.NewTransactor(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("CommitsOnSuccess", func(t *testing.T) {
			lead := testingutil.NewTestLead(models.LeadTypeResident)
			err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
				return repo.Save(txCtx, lead)
			})
			require.NoError(t, err)

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.NotNil(t, found)
		})

		t.Run("RollsBackOnError", func(t *testing.T) {
			lead := testingutil.NewTestLead(models.LeadTypeResident)
			boom := errors.New("boom")
			err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
				if err := repo.Save(txCtx, lead); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("RollsBackOnPanic", func(t *testing.T) {
			lead := testingutil.NewTestLead(models.LeadTypeResident)
			err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
				if err := repo.Save(txCtx, lead); err != nil {
					return err
				}
				panic("unexpected")
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "panic in transaction")

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLeadAuditLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewLeadAuditLogRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		leadID := uuid.New()

		base := utils.UTCNow()
		for i, action := range []string{models.AuditActionLeadCreated, models.AuditActionLeadUpdated, models.AuditActionLeadDeleted} {
			entry := &models.LeadAuditLog{
				LeadID:    leadID,
				Action:    action,
				RequestID: utils.ToPtr("req-1"),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			require.NoError(t, repo.Save(ctx, entry))
			assert.NotZero(t, entry.ID)
		}

		t.Run("ListByLeadNewestFirst", func(t *testing.T) {
			entries, err := repo.ListByLead(ctx, leadID, 10, 0)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, models.AuditActionLeadDeleted, entries[0].Action)
			assert.Equal(t, models.AuditActionLeadCreated, entries[2].Action)
		})

		t.Run("CountByAction", func(t *testing.T) {
			action := models.AuditActionLeadUpdated
			count, err := repo.Count(ctx, models.LeadAuditLogFilter{LeadID: &leadID, Action: &action})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("ExistsForOtherLead", func(t *testing.T) {
			other := uuid.New()
			exists, err := repo.Exists(ctx, models.LeadAuditLogFilter{LeadID: &other})
			require.NoError(t, err)
			assert.False(t, exists)
		})

		return nil
	})
	require.NoError(t, err)
}
