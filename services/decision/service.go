// Package decision implements the append-only decision ledger and the
// human-in-the-loop approval state machine that operates on it.
package decision

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/repositories"
	"github.com/agileforge/agentgov/services"
	"github.com/agileforge/agentgov/services/tokens"
)

// ApprovalPolicy decides whether a decision needs a human in the loop.
// It is platform configuration injected into the ledger, not ledger
// logic: typical policies gate specific decision types and anything
// below a confidence threshold.
type ApprovalPolicy func(decisionType string, confidenceScore float64, organizationID int64) bool

// NewThresholdPolicy builds the standard policy: gate decisions of any
// listed type, plus anything with confidence below the threshold.
func NewThresholdPolicy(threshold float64, gatedTypes []string) ApprovalPolicy {
	gated := make(map[string]struct{}, len(gatedTypes))
	for _, t := range gatedTypes {
		gated[strings.ToLower(t)] = struct{}{}
	}
	return func(decisionType string, confidenceScore float64, _ int64) bool {
		if _, ok := gated[strings.ToLower(decisionType)]; ok {
			return true
		}
		return confidenceScore < threshold
	}
}

// RecordParams carries everything the agent-invocation collaborator
// knows at the moment of decision. Token counts may be left zero, in
// which case they are estimated from the prompt/response text.
type RecordParams struct {
	ProjectID        *int64
	AgentType        models.AgentType
	DecisionType     string
	EntityType       *string
	EntityID         *int64
	EntityName       *string
	Question         string
	Reasoning        string
	Decision         string
	ConfidenceScore  float64
	InputData        string
	OutputData       string
	PromptTokens     int
	CompletionTokens int
	ExecutionTimeMs  int
	IsSuccess        bool
	ErrorMessage     *string
}

// Service is the decision ledger plus approval workflow
type Service struct {
	repo      repositories.DecisionRepository
	txManager repositories.TransactionManager
	estimator *tokens.Estimator
	policy    ApprovalPolicy
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a decision service
func NewService(
	repo repositories.DecisionRepository,
	txManager repositories.TransactionManager,
	estimator *tokens.Estimator,
	policy ApprovalPolicy,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		estimator: estimator,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// Record appends one decision to the ledger and returns the stored
// record, including generated id and timestamps. The approval
// requirement is fixed here, at creation, and never changes afterwards.
func (s *Service) Record(ctx context.Context, caller models.CallerContext, params RecordParams) (*models.DecisionRecord, error) {
	if caller.OrganizationID <= 0 {
		return nil, services.ErrInvalidOrganization
	}
	if !params.AgentType.Valid() {
		return nil, services.ErrInvalidAgentType
	}
	if strings.TrimSpace(params.DecisionType) == "" {
		return nil, services.ErrEmptyDecisionType
	}
	if params.ConfidenceScore < 0 || params.ConfidenceScore > 1 {
		return nil, services.ErrInvalidConfidence
	}

	promptTokens := params.PromptTokens
	completionTokens := params.CompletionTokens
	if promptTokens == 0 && completionTokens == 0 {
		usage := s.estimator.Estimate(params.Question+params.InputData, params.Decision)
		promptTokens = usage.PromptTokens
		completionTokens = usage.CompletionTokens
	}

	requiresApproval := s.policy(params.DecisionType, params.ConfidenceScore, caller.OrganizationID)
	status := models.ApprovalNotRequired
	if requiresApproval {
		status = models.ApprovalPending
	}

	record := &models.DecisionRecord{
		ID:               uuid.New(),
		OrganizationID:   caller.OrganizationID,
		ProjectID:        params.ProjectID,
		AgentType:        params.AgentType,
		DecisionType:     params.DecisionType,
		EntityType:       params.EntityType,
		EntityID:         params.EntityID,
		EntityName:       params.EntityName,
		Question:         params.Question,
		Reasoning:        params.Reasoning,
		Decision:         params.Decision,
		ConfidenceScore:  params.ConfidenceScore,
		InputData:        params.InputData,
		OutputData:       params.OutputData,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		ExecutionTimeMs:  params.ExecutionTimeMs,
		IsSuccess:        params.IsSuccess,
		ErrorMessage:     params.ErrorMessage,
		RequiresApproval: requiresApproval,
		ApprovalStatus:   status,
		CreatedAt:        s.now().UTC(),
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, services.WrapInternal("failed to record decision", err)
	}

	s.logger.Info("decision recorded",
		zap.String("id", record.ID.String()),
		zap.Int64("organization_id", record.OrganizationID),
		zap.String("agent_type", string(record.AgentType)),
		zap.String("decision_type", record.DecisionType),
		zap.Bool("requires_approval", requiresApproval))

	return record, nil
}

// GetByID retrieves a single decision, tenant-scoped
func (s *Service) GetByID(ctx context.Context, caller models.CallerContext, id uuid.UUID) (*models.DecisionRecord, error) {
	record, err := s.repo.GetByID(ctx, caller.OrganizationID, id)
	if err != nil {
		return nil, services.WrapInternal("failed to load decision", err)
	}
	if record == nil {
		return nil, services.ErrDecisionNotFound
	}
	return record, nil
}

// Approve transitions a Pending decision to Approved. Exactly once: a
// second resolution attempt on the same decision fails validation and
// leaves the stored record untouched.
func (s *Service) Approve(ctx context.Context, caller models.CallerContext, id uuid.UUID, approverUserID int64, notes *string) (*models.DecisionRecord, error) {
	approvedBy := approverUserID
	return s.resolve(ctx, caller, id, repositories.ApprovalResolution{
		Status:        models.ApprovalApproved,
		ApprovedBy:    &approvedBy,
		ApprovalNotes: notes,
	})
}

// Reject transitions a Pending decision to Rejected. A non-empty reason
// is mandatory; rejecting without one is a validation error.
func (s *Service) Reject(ctx context.Context, caller models.CallerContext, id uuid.UUID, reason string, notes *string) (*models.DecisionRecord, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, services.ErrRejectionReasonMissing
	}
	return s.resolve(ctx, caller, id, repositories.ApprovalResolution{
		Status:         models.ApprovalRejected,
		RejectedReason: &reason,
		ApprovalNotes:  notes,
	})
}

// resolve runs the precondition read and the compare-and-swap write in
// one transaction. The CAS re-checks "still Pending" in its WHERE
// clause, so even without the transaction two racing resolutions could
// not both land; the transaction keeps the read-back consistent.
func (s *Service) resolve(ctx context.Context, caller models.CallerContext, id uuid.UUID, res repositories.ApprovalResolution) (*models.DecisionRecord, error) {
	if caller.OrganizationID <= 0 {
		return nil, services.ErrInvalidOrganization
	}
	res.ResolvedAt = s.now().UTC()

	var resolved *models.DecisionRecord
	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		record, err := s.repo.GetByID(txCtx, caller.OrganizationID, id)
		if err != nil {
			return services.WrapInternal("failed to load decision", err)
		}
		if record == nil {
			return services.ErrDecisionNotFound
		}
		if !record.RequiresApproval {
			return services.ErrApprovalNotRequired
		}
		if record.ApprovalStatus != models.ApprovalPending {
			return services.ErrDecisionResolved
		}

		ok, err := s.repo.ResolveApproval(txCtx, caller.OrganizationID, id, res)
		if err != nil {
			return services.WrapInternal("failed to resolve approval", err)
		}
		if !ok {
			// Lost the race between read and write
			return services.ErrDecisionResolved
		}

		record.ApprovalStatus = res.Status
		record.ApprovedBy = res.ApprovedBy
		record.ApprovalNotes = res.ApprovalNotes
		record.RejectedReason = res.RejectedReason
		record.ResolvedAt = &res.ResolvedAt
		resolved = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("decision resolved",
		zap.String("id", id.String()),
		zap.Int64("organization_id", caller.OrganizationID),
		zap.String("status", string(res.Status)))

	return resolved, nil
}

// Query returns one page of the decision audit trail, most recent
// first. Page and pageSize are assumed already normalized by the caller.
func (s *Service) Query(ctx context.Context, caller models.CallerContext, filter models.DecisionFilter, page, pageSize int) (models.Page[*models.DecisionRecord], error) {
	var empty models.Page[*models.DecisionRecord]
	if caller.OrganizationID <= 0 {
		return empty, services.ErrInvalidOrganization
	}

	total, err := s.repo.Count(ctx, caller.OrganizationID, filter)
	if err != nil {
		return empty, services.WrapInternal("failed to count decisions", err)
	}

	offset := (page - 1) * pageSize
	items := []*models.DecisionRecord{}
	if int64(offset) < total {
		items, err = s.repo.Query(ctx, caller.OrganizationID, filter, pageSize, offset)
		if err != nil {
			return empty, services.WrapInternal("failed to query decisions", err)
		}
	}

	return models.NewPage(items, page, pageSize, total), nil
}

// UsageStatistics aggregates ledger usage over an inclusive date range.
// Cost is estimated from total tokens at the configured per-1K rate.
func (s *Service) UsageStatistics(ctx context.Context, caller models.CallerContext, from, to time.Time, costPer1KTokens float64) (*models.UsageStatistics, error) {
	if caller.OrganizationID <= 0 {
		return nil, services.ErrInvalidOrganization
	}

	stats, err := s.repo.UsageStatistics(ctx, caller.OrganizationID, from, to)
	if err != nil {
		return nil, services.WrapInternal("failed to aggregate usage", err)
	}

	stats.EstimatedCost = float64(stats.TotalTokens) / 1000.0 * costPer1KTokens
	return stats, nil
}
