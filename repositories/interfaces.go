package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agileforge/agentgov/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Automatically commits if the function succeeds, rolls back on error.
	// The context passed to fn carries the transaction; repositories
	// resolve it through their executor.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// ApprovalResolution carries the terminal approval fields written by a
// single compare-and-swap against a Pending decision.
type ApprovalResolution struct {
	Status         models.ApprovalStatus
	ApprovedBy     *int64
	ApprovalNotes  *string
	RejectedReason *string
	ResolvedAt     time.Time
}

// DecisionRepository handles decision ledger data operations.
// Lookups that find no row return (nil, nil); the service layer owns
// the not-found semantics.
type DecisionRepository interface {
	// Insert appends a new decision record
	Insert(ctx context.Context, record *models.DecisionRecord) error

	// GetByID retrieves a decision scoped to its owning organization
	GetByID(ctx context.Context, orgID int64, id uuid.UUID) (*models.DecisionRecord, error)

	// Query retrieves filtered decisions, most recent first
	Query(ctx context.Context, orgID int64, filter models.DecisionFilter, limit, offset int) ([]*models.DecisionRecord, error)

	// Count returns the total number of decisions matching the filter
	Count(ctx context.Context, orgID int64, filter models.DecisionFilter) (int64, error)

	// ResolveApproval atomically transitions a Pending decision to a
	// terminal status. Returns false when the record was not Pending
	// (or not visible) at write time.
	ResolveApproval(ctx context.Context, orgID int64, id uuid.UUID, res ApprovalResolution) (bool, error)

	// UsageStatistics aggregates token/request usage over an inclusive
	// created_at range
	UsageStatistics(ctx context.Context, orgID int64, from, to time.Time) (*models.UsageStatistics, error)
}

// QuotaRepository handles quota counter data operations
type QuotaRepository interface {
	// Get retrieves the counter for (org, quota type), or (nil, nil)
	// when none exists yet
	Get(ctx context.Context, orgID int64, quotaType models.QuotaType) (*models.QuotaCounter, error)

	// Create inserts a counter, ignoring conflicts with a concurrent
	// creator. Callers re-read after a conflict.
	Create(ctx context.Context, counter *models.QuotaCounter) error

	// UpdateWithVersion writes usage and period fields only if the
	// stored version still equals expectedVersion, bumping the version
	// on success. Returns false on a version conflict.
	UpdateWithVersion(ctx context.Context, counter *models.QuotaCounter, expectedVersion int64) (bool, error)

	// ListByOrg retrieves all counters for an organization
	ListByOrg(ctx context.Context, orgID int64) ([]*models.QuotaCounter, error)
}

// ExecutionLogRepository handles agent execution log data operations
type ExecutionLogRepository interface {
	// Insert appends a new execution log entry
	Insert(ctx context.Context, entry *models.AgentExecutionLogEntry) error

	// Query retrieves filtered entries, most recent first
	Query(ctx context.Context, orgID int64, filter models.ExecutionFilter, limit, offset int) ([]*models.AgentExecutionLogEntry, error)

	// Count returns the total number of entries matching the filter
	Count(ctx context.Context, orgID int64, filter models.ExecutionFilter) (int64, error)
}

// OrgSettingsRepository exposes the tenant-level AI feature switch
type OrgSettingsRepository interface {
	// AIEnabled reports whether AI features are enabled for the
	// organization. Organizations without a settings row default to
	// enabled.
	AIEnabled(ctx context.Context, orgID int64) (bool, error)
}
