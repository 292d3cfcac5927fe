package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the outcome state of one agent invocation
type ExecutionStatus string

const (
	ExecutionPending ExecutionStatus = "Pending"
	ExecutionSuccess ExecutionStatus = "Success"
	ExecutionError   ExecutionStatus = "Error"
)

// AgentExecutionLogEntry is one append-only observability row, written
// after every agent call regardless of approval requirement. It never
// feeds back into governance decisions.
type AgentExecutionLogEntry struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrganizationID int64           `json:"organization_id" db:"organization_id"`
	AgentID        string          `json:"agent_id" db:"agent_id"`
	AgentType      AgentType       `json:"agent_type" db:"agent_type"`
	UserID         *int64          `json:"user_id,omitempty" db:"user_id"`
	Status         ExecutionStatus `json:"status" db:"status"`
	Success        bool            `json:"success" db:"success"`
	DurationMs     int             `json:"duration_ms" db:"duration_ms"`
	ErrorMessage   *string         `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AgentExecutionLogEntry model
func (AgentExecutionLogEntry) TableName() string {
	return "agent_execution_logs"
}

// NewExecutionLogEntry creates an entry with a generated id and timestamp
func NewExecutionLogEntry(orgID int64, agentID string, agentType AgentType) *AgentExecutionLogEntry {
	return &AgentExecutionLogEntry{
		ID:             uuid.New(),
		OrganizationID: orgID,
		AgentID:        agentID,
		AgentType:      agentType,
		Status:         ExecutionPending,
		CreatedAt:      time.Now().UTC(),
	}
}

// WithUser sets the acting user
func (e *AgentExecutionLogEntry) WithUser(userID int64) *AgentExecutionLogEntry {
	e.UserID = &userID
	return e
}

// WithResult marks the entry as finished
func (e *AgentExecutionLogEntry) WithResult(success bool, durationMs int) *AgentExecutionLogEntry {
	e.Success = success
	e.DurationMs = durationMs
	if success {
		e.Status = ExecutionSuccess
	} else {
		e.Status = ExecutionError
	}
	return e
}

// WithError attaches a failure message
func (e *AgentExecutionLogEntry) WithError(message string) *AgentExecutionLogEntry {
	e.ErrorMessage = &message
	e.Status = ExecutionError
	e.Success = false
	return e
}

// ExecutionFilter narrows an execution log query. All fields optional,
// AND-combined.
type ExecutionFilter struct {
	AgentID   string
	AgentType AgentType
	UserID    *int64
	Status    ExecutionStatus
	Success   *bool
}
