package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentType identifies which autonomous agent produced a decision
type AgentType string

const (
	AgentTypeManager  AgentType = "ManagerAgent"
	AgentTypeDelivery AgentType = "DeliveryAgent"
	AgentTypeProduct  AgentType = "ProductAgent"
	AgentTypeQA       AgentType = "QAAgent"
	AgentTypeBusiness AgentType = "BusinessAgent"
)

// Valid reports whether the agent type is one of the known agents
func (a AgentType) Valid() bool {
	switch a {
	case AgentTypeManager, AgentTypeDelivery, AgentTypeProduct, AgentTypeQA, AgentTypeBusiness:
		return true
	}
	return false
}

// ApprovalStatus represents the human-in-the-loop state of a decision
type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "NotRequired"
	ApprovalPending     ApprovalStatus = "Pending"
	ApprovalApproved    ApprovalStatus = "Approved"
	ApprovalRejected    ApprovalStatus = "Rejected"
)

// Terminal reports whether the status admits no further transitions
func (s ApprovalStatus) Terminal() bool {
	return s != ApprovalPending
}

// DecisionRecord is one append-only row in the agent decision ledger.
// Decision content is immutable once written; only the approval fields
// may change, and only while the record is Pending.
type DecisionRecord struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	OrganizationID   int64          `json:"organization_id" db:"organization_id"`
	ProjectID        *int64         `json:"project_id,omitempty" db:"project_id"`
	AgentType        AgentType      `json:"agent_type" db:"agent_type"`
	DecisionType     string         `json:"decision_type" db:"decision_type"`
	EntityType       *string        `json:"entity_type,omitempty" db:"entity_type"`
	EntityID         *int64         `json:"entity_id,omitempty" db:"entity_id"`
	EntityName       *string        `json:"entity_name,omitempty" db:"entity_name"`
	Question         string         `json:"question" db:"question"`
	Reasoning        string         `json:"reasoning" db:"reasoning"`
	Decision         string         `json:"decision" db:"decision"`
	ConfidenceScore  float64        `json:"confidence_score" db:"confidence_score"`
	InputData        string         `json:"input_data" db:"input_data"`
	OutputData       string         `json:"output_data" db:"output_data"`
	PromptTokens     int            `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens" db:"total_tokens"`
	ExecutionTimeMs  int            `json:"execution_time_ms" db:"execution_time_ms"`
	IsSuccess        bool           `json:"is_success" db:"is_success"`
	ErrorMessage     *string        `json:"error_message,omitempty" db:"error_message"`
	RequiresApproval bool           `json:"requires_approval" db:"requires_approval"`
	ApprovalStatus   ApprovalStatus `json:"approval_status" db:"approval_status"`
	ApprovedBy       *int64         `json:"approved_by,omitempty" db:"approved_by"`
	ApprovalNotes    *string        `json:"approval_notes,omitempty" db:"approval_notes"`
	RejectedReason   *string        `json:"rejected_reason,omitempty" db:"rejected_reason"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	ResolvedAt       *time.Time     `json:"resolved_at,omitempty" db:"resolved_at"`
}

// TableName returns the table name for the DecisionRecord model
func (DecisionRecord) TableName() string {
	return "agent_decisions"
}

// DecisionFilter narrows a decision ledger query. All fields are optional
// and AND-combined. Date bounds are inclusive on CreatedAt.
type DecisionFilter struct {
	DecisionType     string
	AgentType        AgentType
	EntityType       string
	EntityID         *int64
	StartDate        *time.Time
	EndDate          *time.Time
	RequiresApproval *bool
}

// UsageStatistics aggregates decision ledger usage over a date range
type UsageStatistics struct {
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	PromptTokens       int64   `json:"prompt_tokens"`
	CompletionTokens   int64   `json:"completion_tokens"`
	TotalTokens        int64   `json:"total_tokens"`
	EstimatedCost      float64 `json:"estimated_cost"`
	AvgExecutionTimeMs float64 `json:"avg_execution_time_ms"`
}
