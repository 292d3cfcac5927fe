package models

import (
	"time"

	"github.com/google/uuid"
)

// QuotaType identifies the resource dimension a counter bounds
type QuotaType string

const (
	QuotaRequests QuotaType = "Requests"
	QuotaTokens   QuotaType = "Tokens"
	QuotaCost     QuotaType = "Cost"
)

// Valid reports whether the quota type is known
func (q QuotaType) Valid() bool {
	switch q {
	case QuotaRequests, QuotaTokens, QuotaCost:
		return true
	}
	return false
}

// AllQuotaTypes lists every quota dimension, in snapshot order
func AllQuotaTypes() []QuotaType {
	return []QuotaType{QuotaRequests, QuotaTokens, QuotaCost}
}

// QuotaCounter is one admission-control counter per
// (organization, quota type). Version is the optimistic concurrency
// token: every successful write bumps it, and writers must present the
// version they read.
type QuotaCounter struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	QuotaType      QuotaType `json:"quota_type" db:"quota_type"`
	CurrentUsage   int64     `json:"current_usage" db:"current_usage"`
	MaxLimit       int64     `json:"max_limit" db:"max_limit"`
	PeriodStart    time.Time `json:"period_start" db:"period_start"`
	PeriodEnd      time.Time `json:"period_end" db:"period_end"`
	Version        int64     `json:"-" db:"version"`
}

// TableName returns the table name for the QuotaCounter model
func (QuotaCounter) TableName() string {
	return "quota_counters"
}

// Expired reports whether the counter's period window has passed
func (c *QuotaCounter) Expired(now time.Time) bool {
	return !now.Before(c.PeriodEnd)
}

// Rollover resets usage and advances the window in whole-period steps
// from the old period end until it covers now.
func (c *QuotaCounter) Rollover(now time.Time, period time.Duration) {
	if !c.Expired(now) {
		return
	}
	c.CurrentUsage = 0
	for !now.Before(c.PeriodEnd) {
		c.PeriodStart = c.PeriodEnd
		c.PeriodEnd = c.PeriodEnd.Add(period)
	}
}

// QuotaStatus is the caller-facing snapshot of one counter
type QuotaStatus struct {
	QuotaType    QuotaType `json:"quota_type"`
	CurrentUsage int64     `json:"current_usage"`
	MaxLimit     int64     `json:"max_limit"`
	Remaining    int64     `json:"remaining"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
}

// StatusOf converts a counter to its snapshot form
func StatusOf(c *QuotaCounter) QuotaStatus {
	remaining := c.MaxLimit - c.CurrentUsage
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{
		QuotaType:    c.QuotaType,
		CurrentUsage: c.CurrentUsage,
		MaxLimit:     c.MaxLimit,
		Remaining:    remaining,
		PeriodStart:  c.PeriodStart,
		PeriodEnd:    c.PeriodEnd,
	}
}
