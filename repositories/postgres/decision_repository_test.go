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
	"github.com/agileforge/agentgov/repositories"
)

func sampleDecision() *models.DecisionRecord {
	return &models.DecisionRecord{
		ID:               uuid.New(),
		OrganizationID:   7,
		AgentType:        models.AgentTypeManager,
		DecisionType:     "RiskDetection",
		Question:         "Is sprint 14 at risk?",
		Reasoning:        "Burn-down trending late",
		Decision:         "Flag the sprint",
		ConfidenceScore:  0.61,
		InputData:        `{"sprint":14}`,
		OutputData:       `{"risk":"high"}`,
		PromptTokens:     200,
		CompletionTokens: 80,
		TotalTokens:      280,
		ExecutionTimeMs:  640,
		IsSuccess:        true,
		RequiresApproval: true,
		ApprovalStatus:   models.ApprovalPending,
		CreatedAt:        time.Now().UTC(),
	}
}

func decisionRows(rec *models.DecisionRecord) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "project_id", "agent_type", "decision_type",
		"entity_type", "entity_id", "entity_name", "question", "reasoning", "decision",
		"confidence_score", "input_data", "output_data", "prompt_tokens", "completion_tokens",
		"total_tokens", "execution_time_ms", "is_success", "error_message", "requires_approval",
		"approval_status", "approved_by", "approval_notes", "rejected_reason", "created_at", "resolved_at",
	}).AddRow(
		rec.ID.String(), rec.OrganizationID, rec.ProjectID, rec.AgentType, rec.DecisionType,
		rec.EntityType, rec.EntityID, rec.EntityName, rec.Question, rec.Reasoning, rec.Decision,
		rec.ConfidenceScore, rec.InputData, rec.OutputData, rec.PromptTokens, rec.CompletionTokens,
		rec.TotalTokens, rec.ExecutionTimeMs, rec.IsSuccess, rec.ErrorMessage, rec.RequiresApproval,
		rec.ApprovalStatus, rec.ApprovedBy, rec.ApprovalNotes, rec.RejectedReason, rec.CreatedAt, rec.ResolvedAt,
	)
}

func TestDecisionRepository_Insert(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewDecisionRepository(db, zap.NewNop())

	mock.ExpectExec("INSERT INTO agent_decisions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(ctx, sampleDecision()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the tenant's record", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDecisionRepository(db, zap.NewNop())
		rec := sampleDecision()

		mock.ExpectQuery("SELECT (.+) FROM agent_decisions").
			WithArgs(rec.ID, rec.OrganizationID).
			WillReturnRows(decisionRows(rec))

		got, err := repo.GetByID(ctx, rec.OrganizationID, rec.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.DecisionType, got.DecisionType)
		assert.Equal(t, models.ApprovalPending, got.ApprovalStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invisible row is nil, not an error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDecisionRepository(db, zap.NewNop())
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM agent_decisions").
			WithArgs(id, int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		got, err := repo.GetByID(ctx, 99, id)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDecisionRepository_ResolveApproval(t *testing.T) {
	ctx := context.Background()
	resolvedAt := time.Now().UTC()
	approver := int64(5)

	t.Run("pending row is resolved", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDecisionRepository(db, zap.NewNop())
		id := uuid.New()

		mock.ExpectExec("UPDATE agent_decisions").
			WithArgs(models.ApprovalApproved, approver, nil, nil, resolvedAt,
				id, int64(7), models.ApprovalPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.ResolveApproval(ctx, 7, id, repositories.ApprovalResolution{
			Status:     models.ApprovalApproved,
			ApprovedBy: &approver,
			ResolvedAt: resolvedAt,
		})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already resolved row affects nothing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDecisionRepository(db, zap.NewNop())
		id := uuid.New()

		mock.ExpectExec("UPDATE agent_decisions").
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.ResolveApproval(ctx, 7, id, repositories.ApprovalResolution{
			Status:     models.ApprovalApproved,
			ApprovedBy: &approver,
			ResolvedAt: resolvedAt,
		})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDecisionRepository_QueryAndCount(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewDecisionRepository(db, zap.NewNop())
	rec := sampleDecision()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(rec.OrganizationID, "RiskDetection").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	filter := models.DecisionFilter{DecisionType: "RiskDetection"}
	total, err := repo.Count(ctx, rec.OrganizationID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	mock.ExpectQuery("SELECT (.+) FROM agent_decisions").
		WithArgs(rec.OrganizationID, "RiskDetection", 20, 0).
		WillReturnRows(decisionRows(rec))

	items, err := repo.Query(ctx, rec.OrganizationID, filter, 20, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, rec.ID, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepository_UsageStatistics(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewDecisionRepository(db, zap.NewNop())

	from := time.Now().UTC().AddDate(0, 0, -30)
	to := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(7), from, to).
		WillReturnRows(sqlmock.NewRows([]string{
			"count", "successful", "prompt", "completion", "total", "avg_ms",
		}).AddRow(12, 10, 2400, 900, 3300, 512.5))

	stats, err := repo.UsageStatistics(ctx, 7, from, to)
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalRequests)
	assert.Equal(t, 10, stats.SuccessfulRequests)
	assert.Equal(t, int64(3300), stats.TotalTokens)
	assert.InDelta(t, 512.5, stats.AvgExecutionTimeMs, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
