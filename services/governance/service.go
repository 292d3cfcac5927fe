// Package governance exposes the governance core as one plain
// interface: quota admission, decision recording, approval workflow,
// and the audit query surface. Handlers depend on this interface, not
// on the underlying services.
package governance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agileforge/agentgov/config"
	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/repositories"
	"github.com/agileforge/agentgov/services"
	"github.com/agileforge/agentgov/services/decision"
	"github.com/agileforge/agentgov/services/execution"
	"github.com/agileforge/agentgov/services/quota"
)

// Service is the governance facade
type Service interface {
	// CheckAndReserve admits amount units of quotaType for the caller's
	// organization, or fails with quota_exceeded. Must be called before
	// the LLM invocation proceeds.
	CheckAndReserve(ctx context.Context, caller models.CallerContext, quotaType models.QuotaType, amount int64) error

	// RecordDecision appends one agent decision to the ledger
	RecordDecision(ctx context.Context, caller models.CallerContext, params decision.RecordParams) (*models.DecisionRecord, error)

	// RecordExecution queues one execution log entry (non-blocking)
	RecordExecution(caller models.CallerContext, entry *models.AgentExecutionLogEntry) error

	// Approve resolves a pending decision as approved
	Approve(ctx context.Context, caller models.CallerContext, decisionID uuid.UUID, approverUserID int64, notes *string) (*models.DecisionRecord, error)

	// Reject resolves a pending decision as rejected; reason is required
	Reject(ctx context.Context, caller models.CallerContext, decisionID uuid.UUID, reason string, notes *string) (*models.DecisionRecord, error)

	// GetDecision retrieves one decision, tenant-scoped
	GetDecision(ctx context.Context, caller models.CallerContext, decisionID uuid.UUID) (*models.DecisionRecord, error)

	// QueryDecisions pages through the decision audit trail
	QueryDecisions(ctx context.Context, caller models.CallerContext, filter models.DecisionFilter, page, pageSize int) (models.Page[*models.DecisionRecord], error)

	// QueryExecutions pages through the execution audit trail
	QueryExecutions(ctx context.Context, caller models.CallerContext, filter models.ExecutionFilter, page, pageSize int) (models.Page[*models.AgentExecutionLogEntry], error)

	// QuotaStatus returns the caller's quota snapshots
	QuotaStatus(ctx context.Context, caller models.CallerContext) ([]models.QuotaStatus, error)

	// UsageStatistics aggregates usage over an inclusive date range
	UsageStatistics(ctx context.Context, caller models.CallerContext, from, to time.Time) (*models.UsageStatistics, error)
}

type service struct {
	quotas      *quota.Service
	decisions   *decision.Service
	executions  *execution.Service
	orgSettings repositories.OrgSettingsRepository
	cfg         config.GovernanceConfig
	logger      *zap.Logger
}

// NewService wires the governance facade
func NewService(
	quotas *quota.Service,
	decisions *decision.Service,
	executions *execution.Service,
	orgSettings repositories.OrgSettingsRepository,
	cfg config.GovernanceConfig,
	logger *zap.Logger,
) Service {
	return &service{
		quotas:      quotas,
		decisions:   decisions,
		executions:  executions,
		orgSettings: orgSettings,
		cfg:         cfg,
		logger:      logger,
	}
}

// checkAIEnabled enforces the tenant-level AI switch on the agent path.
// The audit/query surface stays readable for disabled tenants.
func (s *service) checkAIEnabled(ctx context.Context, orgID int64) error {
	enabled, err := s.orgSettings.AIEnabled(ctx, orgID)
	if err != nil {
		return services.WrapInternal("failed to check AI settings", err)
	}
	if !enabled {
		return services.ErrAIDisabled
	}
	return nil
}

func (s *service) CheckAndReserve(ctx context.Context, caller models.CallerContext, quotaType models.QuotaType, amount int64) error {
	if err := s.checkAIEnabled(ctx, caller.OrganizationID); err != nil {
		return err
	}
	return s.quotas.CheckAndReserve(ctx, caller, quotaType, amount)
}

func (s *service) RecordDecision(ctx context.Context, caller models.CallerContext, params decision.RecordParams) (*models.DecisionRecord, error) {
	if err := s.checkAIEnabled(ctx, caller.OrganizationID); err != nil {
		return nil, err
	}
	return s.decisions.Record(ctx, caller, params)
}

func (s *service) RecordExecution(caller models.CallerContext, entry *models.AgentExecutionLogEntry) error {
	entry.OrganizationID = caller.OrganizationID
	return s.executions.Record(entry)
}

func (s *service) Approve(ctx context.Context, caller models.CallerContext, decisionID uuid.UUID, approverUserID int64, notes *string) (*models.DecisionRecord, error) {
	return s.decisions.Approve(ctx, caller, decisionID, approverUserID, notes)
}

func (s *service) Reject(ctx context.Context, caller models.CallerContext, decisionID uuid.UUID, reason string, notes *string) (*models.DecisionRecord, error) {
	return s.decisions.Reject(ctx, caller, decisionID, reason, notes)
}

func (s *service) GetDecision(ctx context.Context, caller models.CallerContext, decisionID uuid.UUID) (*models.DecisionRecord, error) {
	return s.decisions.GetByID(ctx, caller, decisionID)
}

func (s *service) QueryDecisions(ctx context.Context, caller models.CallerContext, filter models.DecisionFilter, page, pageSize int) (models.Page[*models.DecisionRecord], error) {
	return s.decisions.Query(ctx, caller, filter, page, pageSize)
}

func (s *service) QueryExecutions(ctx context.Context, caller models.CallerContext, filter models.ExecutionFilter, page, pageSize int) (models.Page[*models.AgentExecutionLogEntry], error) {
	return s.executions.Query(ctx, caller, filter, page, pageSize)
}

func (s *service) QuotaStatus(ctx context.Context, caller models.CallerContext) ([]models.QuotaStatus, error) {
	return s.quotas.Status(ctx, caller)
}

func (s *service) UsageStatistics(ctx context.Context, caller models.CallerContext, from, to time.Time) (*models.UsageStatistics, error) {
	return s.decisions.UsageStatistics(ctx, caller, from, to, s.cfg.CostPer1KTokens)
}
