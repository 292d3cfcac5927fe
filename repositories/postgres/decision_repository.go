package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/repositories"
)

// DecisionRepository implements the repositories.DecisionRepository interface
type DecisionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *DB, logger *zap.Logger) repositories.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

const decisionColumns = `id, organization_id, project_id, agent_type, decision_type,
       entity_type, entity_id, entity_name, question, reasoning, decision,
       confidence_score, input_data, output_data, prompt_tokens, completion_tokens,
       total_tokens, execution_time_ms, is_success, error_message, requires_approval,
       approval_status, approved_by, approval_notes, rejected_reason, created_at, resolved_at`

// Insert appends a new decision record to the ledger
func (r *DecisionRepository) Insert(ctx context.Context, record *models.DecisionRecord) error {
	query := `
		INSERT INTO agent_decisions (
			id, organization_id, project_id, agent_type, decision_type,
			entity_type, entity_id, entity_name, question, reasoning, decision,
			confidence_score, input_data, output_data, prompt_tokens, completion_tokens,
			total_tokens, execution_time_ms, is_success, error_message, requires_approval,
			approval_status, approved_by, approval_notes, rejected_reason, created_at, resolved_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27
		)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		record.ID,
		record.OrganizationID,
		record.ProjectID,
		record.AgentType,
		record.DecisionType,
		record.EntityType,
		record.EntityID,
		record.EntityName,
		record.Question,
		record.Reasoning,
		record.Decision,
		record.ConfidenceScore,
		record.InputData,
		record.OutputData,
		record.PromptTokens,
		record.CompletionTokens,
		record.TotalTokens,
		record.ExecutionTimeMs,
		record.IsSuccess,
		record.ErrorMessage,
		record.RequiresApproval,
		record.ApprovalStatus,
		record.ApprovedBy,
		record.ApprovalNotes,
		record.RejectedReason,
		record.CreatedAt,
		record.ResolvedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}

	r.logger.Debug("decision inserted",
		zap.String("id", record.ID.String()),
		zap.String("decision_type", record.DecisionType))
	return nil
}

// GetByID retrieves a decision scoped to its owning organization.
// Returns (nil, nil) when no visible row exists.
func (r *DecisionRepository) GetByID(ctx context.Context, orgID int64, id uuid.UUID) (*models.DecisionRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM agent_decisions
		WHERE id = $1 AND organization_id = $2
	`, decisionColumns)

	executor := GetExecutor(ctx, r.db)
	record, err := scanDecision(executor.QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return record, nil
}

// Query retrieves filtered decisions, most recent first
func (r *DecisionRepository) Query(ctx context.Context, orgID int64, filter models.DecisionFilter, limit, offset int) ([]*models.DecisionRecord, error) {
	where, args := decisionWhere(orgID, filter)
	query := fmt.Sprintf(`
		SELECT %s
		FROM agent_decisions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, decisionColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	records := make([]*models.DecisionRecord, 0)
	for rows.Next() {
		record, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}

	return records, nil
}

// Count returns the total number of decisions matching the filter
func (r *DecisionRepository) Count(ctx context.Context, orgID int64, filter models.DecisionFilter) (int64, error) {
	where, args := decisionWhere(orgID, filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM agent_decisions WHERE %s`, where)

	executor := GetExecutor(ctx, r.db)
	var count int64
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	return count, nil
}

// ResolveApproval atomically transitions a Pending decision to a terminal
// status. The status precondition lives in the WHERE clause, so two
// concurrent resolutions cannot both succeed.
func (r *DecisionRepository) ResolveApproval(ctx context.Context, orgID int64, id uuid.UUID, res repositories.ApprovalResolution) (bool, error) {
	query := `
		UPDATE agent_decisions
		SET approval_status = $1,
		    approved_by = $2,
		    approval_notes = $3,
		    rejected_reason = $4,
		    resolved_at = $5
		WHERE id = $6 AND organization_id = $7 AND approval_status = $8
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		res.Status,
		res.ApprovedBy,
		res.ApprovalNotes,
		res.RejectedReason,
		res.ResolvedAt,
		id,
		orgID,
		models.ApprovalPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to resolve approval: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// UsageStatistics aggregates token/request usage over an inclusive
// created_at range
func (r *DecisionRepository) UsageStatistics(ctx context.Context, orgID int64, from, to time.Time) (*models.UsageStatistics, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_success),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(AVG(execution_time_ms), 0)
		FROM agent_decisions
		WHERE organization_id = $1 AND created_at >= $2 AND created_at <= $3
	`

	executor := GetExecutor(ctx, r.db)
	stats := &models.UsageStatistics{}
	err := executor.QueryRowContext(ctx, query, orgID, from, to).Scan(
		&stats.TotalRequests,
		&stats.SuccessfulRequests,
		&stats.PromptTokens,
		&stats.CompletionTokens,
		&stats.TotalTokens,
		&stats.AvgExecutionTimeMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	return stats, nil
}

// decisionWhere builds the AND-combined filter clause.
// orgID is always the first condition; tenant isolation is not optional.
func decisionWhere(orgID int64, filter models.DecisionFilter) (string, []interface{}) {
	conditions := []string{"organization_id = $1"}
	args := []interface{}{orgID}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.DecisionType != "" {
		add("decision_type = $%d", filter.DecisionType)
	}
	if filter.AgentType != "" {
		add("agent_type = $%d", filter.AgentType)
	}
	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.EntityID != nil {
		add("entity_id = $%d", *filter.EntityID)
	}
	if filter.StartDate != nil {
		add("created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <= $%d", *filter.EndDate)
	}
	if filter.RequiresApproval != nil {
		add("requires_approval = $%d", *filter.RequiresApproval)
	}

	return strings.Join(conditions, " AND "), args
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row rowScanner) (*models.DecisionRecord, error) {
	record := &models.DecisionRecord{}
	err := row.Scan(
		&record.ID,
		&record.OrganizationID,
		&record.ProjectID,
		&record.AgentType,
		&record.DecisionType,
		&record.EntityType,
		&record.EntityID,
		&record.EntityName,
		&record.Question,
		&record.Reasoning,
		&record.Decision,
		&record.ConfidenceScore,
		&record.InputData,
		&record.OutputData,
		&record.PromptTokens,
		&record.CompletionTokens,
		&record.TotalTokens,
		&record.ExecutionTimeMs,
		&record.IsSuccess,
		&record.ErrorMessage,
		&record.RequiresApproval,
		&record.ApprovalStatus,
		&record.ApprovedBy,
		&record.ApprovalNotes,
		&record.RejectedReason,
		&record.CreatedAt,
		&record.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}
