package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/agileforge/agentgov/repositories"
)

// OrgSettingsRepository implements the repositories.OrgSettingsRepository interface
type OrgSettingsRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOrgSettingsRepository creates a new organization settings repository
func NewOrgSettingsRepository(db *DB, logger *zap.Logger) repositories.OrgSettingsRepository {
	return &OrgSettingsRepository{
		db:     db,
		logger: logger,
	}
}

// AIEnabled reports whether AI features are enabled for the organization.
// Organizations without a settings row default to enabled.
func (r *OrgSettingsRepository) AIEnabled(ctx context.Context, orgID int64) (bool, error) {
	query := `SELECT ai_enabled FROM org_ai_settings WHERE organization_id = $1`

	executor := GetExecutor(ctx, r.db)
	var enabled bool
	err := executor.QueryRowContext(ctx, query, orgID).Scan(&enabled)
	if err != nil {
		if err == sql.ErrNoRows {
			return true, nil
		}
		return false, fmt.Errorf("failed to get org AI settings: %w", err)
	}

	return enabled, nil
}
