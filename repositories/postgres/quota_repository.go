package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/repositories"
)

// QuotaRepository implements the repositories.QuotaRepository interface
type QuotaRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewQuotaRepository creates a new quota repository
func NewQuotaRepository(db *DB, logger *zap.Logger) repositories.QuotaRepository {
	return &QuotaRepository{
		db:     db,
		logger: logger,
	}
}

const quotaColumns = `id, organization_id, quota_type, current_usage, max_limit, period_start, period_end, version`

// Get retrieves the counter for (org, quota type), or (nil, nil) when
// none exists yet
func (r *QuotaRepository) Get(ctx context.Context, orgID int64, quotaType models.QuotaType) (*models.QuotaCounter, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM quota_counters
		WHERE organization_id = $1 AND quota_type = $2
	`, quotaColumns)

	executor := GetExecutor(ctx, r.db)
	counter := &models.QuotaCounter{}
	err := executor.QueryRowContext(ctx, query, orgID, quotaType).Scan(
		&counter.ID,
		&counter.OrganizationID,
		&counter.QuotaType,
		&counter.CurrentUsage,
		&counter.MaxLimit,
		&counter.PeriodStart,
		&counter.PeriodEnd,
		&counter.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quota counter: %w", err)
	}

	return counter, nil
}

// Create inserts a counter, ignoring conflicts with a concurrent creator
func (r *QuotaRepository) Create(ctx context.Context, counter *models.QuotaCounter) error {
	query := `
		INSERT INTO quota_counters (
			id, organization_id, quota_type, current_usage, max_limit,
			period_start, period_end, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id, quota_type) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		counter.ID,
		counter.OrganizationID,
		counter.QuotaType,
		counter.CurrentUsage,
		counter.MaxLimit,
		counter.PeriodStart,
		counter.PeriodEnd,
		counter.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create quota counter: %w", err)
	}

	r.logger.Debug("quota counter created",
		zap.Int64("organization_id", counter.OrganizationID),
		zap.String("quota_type", string(counter.QuotaType)))
	return nil
}

// UpdateWithVersion writes usage and period fields only if the stored
// version still equals expectedVersion. Returns false on a version
// conflict, in which case the caller re-reads and retries.
func (r *QuotaRepository) UpdateWithVersion(ctx context.Context, counter *models.QuotaCounter, expectedVersion int64) (bool, error) {
	query := `
		UPDATE quota_counters
		SET current_usage = $1,
		    period_start = $2,
		    period_end = $3,
		    version = version + 1
		WHERE id = $4 AND version = $5
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		counter.CurrentUsage,
		counter.PeriodStart,
		counter.PeriodEnd,
		counter.ID,
		expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update quota counter: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 1 {
		counter.Version = expectedVersion + 1
		return true, nil
	}
	return false, nil
}

// ListByOrg retrieves all counters for an organization
func (r *QuotaRepository) ListByOrg(ctx context.Context, orgID int64) ([]*models.QuotaCounter, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM quota_counters
		WHERE organization_id = $1
		ORDER BY quota_type
	`, quotaColumns)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quota counters: %w", err)
	}
	defer rows.Close()

	counters := make([]*models.QuotaCounter, 0)
	for rows.Next() {
		counter := &models.QuotaCounter{}
		if err := rows.Scan(
			&counter.ID,
			&counter.OrganizationID,
			&counter.QuotaType,
			&counter.CurrentUsage,
			&counter.MaxLimit,
			&counter.PeriodStart,
			&counter.PeriodEnd,
			&counter.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quota counter: %w", err)
		}
		counters = append(counters, counter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quota counters: %w", err)
	}

	return counters, nil
}
