package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agileforge/agentgov/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &DB{DB: db, logger: zap.NewNop()}, mock
}

func sampleCounter() *models.QuotaCounter {
	now := time.Now().UTC()
	return &models.QuotaCounter{
		ID:             uuid.New(),
		OrganizationID: 42,
		QuotaType:      models.QuotaRequests,
		CurrentUsage:   10,
		MaxLimit:       1000,
		PeriodStart:    now,
		PeriodEnd:      now.Add(720 * time.Hour),
		Version:        3,
	}
}

func TestQuotaRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the counter", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewQuotaRepository(db, zap.NewNop())
		c := sampleCounter()

		rows := sqlmock.NewRows([]string{
			"id", "organization_id", "quota_type", "current_usage",
			"max_limit", "period_start", "period_end", "version",
		}).AddRow(c.ID.String(), c.OrganizationID, c.QuotaType, c.CurrentUsage,
			c.MaxLimit, c.PeriodStart, c.PeriodEnd, c.Version)

		mock.ExpectQuery("SELECT (.+) FROM quota_counters").
			WithArgs(int64(42), models.QuotaRequests).
			WillReturnRows(rows)

		got, err := repo.Get(ctx, 42, models.QuotaRequests)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, int64(10), got.CurrentUsage)
		assert.Equal(t, int64(3), got.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing counter is nil, not an error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewQuotaRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT (.+) FROM quota_counters").
			WithArgs(int64(42), models.QuotaTokens).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		got, err := repo.Get(ctx, 42, models.QuotaTokens)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQuotaRepository_Create(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewQuotaRepository(db, zap.NewNop())
	c := sampleCounter()

	mock.ExpectExec("INSERT INTO quota_counters").
		WithArgs(c.ID, c.OrganizationID, c.QuotaType, c.CurrentUsage,
			c.MaxLimit, c.PeriodStart, c.PeriodEnd, c.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(ctx, c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaRepository_UpdateWithVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("matching version updates and bumps", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewQuotaRepository(db, zap.NewNop())
		c := sampleCounter()

		mock.ExpectExec("UPDATE quota_counters").
			WithArgs(c.CurrentUsage, c.PeriodStart, c.PeriodEnd, c.ID, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.UpdateWithVersion(ctx, c, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(4), c.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version affects zero rows", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewQuotaRepository(db, zap.NewNop())
		c := sampleCounter()

		mock.ExpectExec("UPDATE quota_counters").
			WithArgs(c.CurrentUsage, c.PeriodStart, c.PeriodEnd, c.ID, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.UpdateWithVersion(ctx, c, 2)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(3), c.Version, "conflict leaves the in-memory version untouched")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQuotaRepository_ListByOrg(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewQuotaRepository(db, zap.NewNop())
	c := sampleCounter()

	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "quota_type", "current_usage",
		"max_limit", "period_start", "period_end", "version",
	}).
		AddRow(uuid.New().String(), int64(42), models.QuotaCost, int64(2), int64(100), c.PeriodStart, c.PeriodEnd, int64(1)).
		AddRow(c.ID.String(), c.OrganizationID, c.QuotaType, c.CurrentUsage, c.MaxLimit, c.PeriodStart, c.PeriodEnd, c.Version)

	mock.ExpectQuery("SELECT (.+) FROM quota_counters").
		WithArgs(int64(42)).
		WillReturnRows(rows)

	counters, err := repo.ListByOrg(ctx, 42)
	require.NoError(t, err)
	require.Len(t, counters, 2)
	assert.Equal(t, models.QuotaCost, counters[0].QuotaType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
