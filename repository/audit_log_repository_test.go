package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/repository"
	testingutil "github.com/amirphl/dokany-admin/testing"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestAuditLogRepositoryWithMock(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveWrapsInsertInTransaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := repository.NewAuditLogRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "console_audit_log"`)).
			WillReturnRows(sqlmock.NewRows([]string{"success", "created_at", "id"}).AddRow(true, time.Now(), 1))
		mock.ExpectCommit()

		entry := &models.AuditLog{
			Action:          models.AuditActionCampaignSubmitted,
			AdminID:         utils.ToPtr("42"),
			TargetLocations: []string{"Cairo"},
			Success:         utils.ToPtr(true),
		}
		require.NoError(t, repo.Save(ctx, entry))
		assert.Equal(t, uint(1), entry.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SaveRollsBackOnFailure", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := repository.NewAuditLogRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "console_audit_log"`)).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := repo.Save(ctx, &models.AuditLog{Action: models.AuditActionLogout})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save entity")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListByAdminFiltersAndOrders", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := repository.NewAuditLogRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "console_audit_log" WHERE admin_id = \$1 ORDER BY created_at DESC LIMIT`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "admin_id", "action"}).
				AddRow(2, "42", models.AuditActionLogout).
				AddRow(1, "42", models.AuditActionLoginSuccess))

		logs, err := repo.ListByAdmin(ctx, "42", 5, 0)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, models.AuditActionLogout, logs[0].Action)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListFailedActions", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := repository.NewAuditLogRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "console_audit_log" WHERE success = \$1 ORDER BY created_at DESC`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "action", "success"}).AddRow(3, models.AuditActionLoginFailed, false))

		logs, err := repo.ListFailedActions(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.True(t, logs[0].IsFailed())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuditLogRepositoryWithDatabase(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := context.Background()
		repo := repository.NewAuditLogRepository(testDB.DB)

		t.Run("SaveAndFilter", func(t *testing.T) {
			require.NoError(t, testDB.ClearAuditLog())

			require.NoError(t, repo.Save(ctx, &models.AuditLog{
				Action:  models.AuditActionLoginSuccess,
				AdminID: utils.ToPtr("42"),
				Success: utils.ToPtr(true),
			}))
			require.NoError(t, repo.Save(ctx, &models.AuditLog{
				Action:       models.AuditActionLoginFailed,
				Success:      utils.ToPtr(false),
				ErrorMessage: utils.ToPtr("Invalid credentials"),
			}))
			require.NoError(t, repo.Save(ctx, &models.AuditLog{
				Action:          models.AuditActionCampaignSubmitted,
				AdminID:         utils.ToPtr("42"),
				TargetType:      utils.ToPtr("location"),
				TargetLocations: []string{"Cairo", "Giza"},
				Metadata:        []byte(`{"campaign_id":"c1"}`),
				Success:         utils.ToPtr(true),
			}))

			byAdmin, err := repo.ListByAdmin(ctx, "42", 10, 0)
			require.NoError(t, err)
			assert.Len(t, byAdmin, 2)

			failed, err := repo.ListFailedActions(ctx, 10, 0)
			require.NoError(t, err)
			require.Len(t, failed, 1)
			assert.Equal(t, "Invalid credentials", *failed[0].ErrorMessage)

			action := models.AuditActionCampaignSubmitted
			submitted, err := repo.ByFilter(ctx, models.AuditLogFilter{Action: &action}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, submitted, 1)
			assert.Equal(t, []string{"Cairo", "Giza"}, []string(submitted[0].TargetLocations))

			found, err := repo.ByID(ctx, submitted[0].ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.JSONEq(t, `{"campaign_id":"c1"}`, string(found.Metadata))

			missing, err := repo.ByID(ctx, 999999)
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("SaveJoinsCallerTransaction", func(t *testing.T) {
			require.NoError(t, testDB.ClearAuditLog())

			tx := testDB.DB.Begin()
			require.NoError(t, tx.Error)
			txCtx := context.WithValue(ctx, repository.TxContextKey, tx)
			require.NoError(t, repo.Save(txCtx, &models.AuditLog{Action: models.AuditActionLogout, Success: utils.ToPtr(true)}))
			require.NoError(t, tx.Rollback().Error)

			logs, err := repo.ByFilter(ctx, models.AuditLogFilter{}, "", 0, 0)
			require.NoError(t, err)
			assert.Empty(t, logs)
		})
		return nil
	})
	if errors.Is(err, testingutil.ErrDatabaseUnavailable) {
		t.Skipf("skipping database test: %v", err)
	}
	require.NoError(t, err)
}
