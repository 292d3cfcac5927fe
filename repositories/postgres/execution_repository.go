package postgres

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/repositories"
)

// ExecutionLogRepository implements the repositories.ExecutionLogRepository interface
type ExecutionLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewExecutionLogRepository creates a new execution log repository
func NewExecutionLogRepository(db *DB, logger *zap.Logger) repositories.ExecutionLogRepository {
	return &ExecutionLogRepository{
		db:     db,
		logger: logger,
	}
}

const executionColumns = `id, organization_id, agent_id, agent_type, user_id, status, success, duration_ms, error_message, created_at`

// Insert appends a new execution log entry
func (r *ExecutionLogRepository) Insert(ctx context.Context, entry *models.AgentExecutionLogEntry) error {
	query := `
		INSERT INTO agent_execution_logs (
			id, organization_id, agent_id, agent_type, user_id,
			status, success, duration_ms, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		entry.ID,
		entry.OrganizationID,
		entry.AgentID,
		entry.AgentType,
		entry.UserID,
		entry.Status,
		entry.Success,
		entry.DurationMs,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution log: %w", err)
	}

	r.logger.Debug("execution log inserted",
		zap.String("id", entry.ID.String()),
		zap.String("agent_id", entry.AgentID))
	return nil
}

// Query retrieves filtered entries, most recent first
func (r *ExecutionLogRepository) Query(ctx context.Context, orgID int64, filter models.ExecutionFilter, limit, offset int) ([]*models.AgentExecutionLogEntry, error) {
	where, args := executionWhere(orgID, filter)
	query := fmt.Sprintf(`
		SELECT %s
		FROM agent_execution_logs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, executionColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AgentExecutionLogEntry, 0)
	for rows.Next() {
		entry := &models.AgentExecutionLogEntry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.OrganizationID,
			&entry.AgentID,
			&entry.AgentType,
			&entry.UserID,
			&entry.Status,
			&entry.Success,
			&entry.DurationMs,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return entries, nil
}

// Count returns the total number of entries matching the filter
func (r *ExecutionLogRepository) Count(ctx context.Context, orgID int64, filter models.ExecutionFilter) (int64, error) {
	where, args := executionWhere(orgID, filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM agent_execution_logs WHERE %s`, where)

	executor := GetExecutor(ctx, r.db)
	var count int64
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count execution logs: %w", err)
	}
	return count, nil
}

func executionWhere(orgID int64, filter models.ExecutionFilter) (string, []interface{}) {
	conditions := []string{"organization_id = $1"}
	args := []interface{}{orgID}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.AgentID != "" {
		add("agent_id = $%d", filter.AgentID)
	}
	if filter.AgentType != "" {
		add("agent_type = $%d", filter.AgentType)
	}
	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Success != nil {
		add("success = $%d", *filter.Success)
	}

	return strings.Join(conditions, " AND "), args
}
