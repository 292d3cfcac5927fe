package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgentTypeValid(t *testing.T) {
	for _, at := range []AgentType{AgentTypeManager, AgentTypeDelivery, AgentTypeProduct, AgentTypeQA, AgentTypeBusiness} {
		assert.True(t, at.Valid(), string(at))
	}
	assert.False(t, AgentType("SupportAgent").Valid())
	assert.False(t, AgentType("").Valid())
}

func TestApprovalStatusTerminal(t *testing.T) {
	assert.False(t, ApprovalPending.Terminal())
	assert.True(t, ApprovalNotRequired.Terminal())
	assert.True(t, ApprovalApproved.Terminal())
	assert.True(t, ApprovalRejected.Terminal())
}

func TestQuotaCounterRollover(t *testing.T) {
	period := 24 * time.Hour
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("active window is untouched", func(t *testing.T) {
		c := &QuotaCounter{CurrentUsage: 5, PeriodStart: start, PeriodEnd: start.Add(period)}
		c.Rollover(start.Add(12*time.Hour), period)
		assert.Equal(t, int64(5), c.CurrentUsage)
		assert.Equal(t, start, c.PeriodStart)
	})

	t.Run("expired window resets usage", func(t *testing.T) {
		c := &QuotaCounter{CurrentUsage: 5, PeriodStart: start, PeriodEnd: start.Add(period)}
		c.Rollover(start.Add(25*time.Hour), period)
		assert.Zero(t, c.CurrentUsage)
		assert.Equal(t, start.Add(period), c.PeriodStart)
		assert.Equal(t, start.Add(2*period), c.PeriodEnd)
	})

	t.Run("long-idle counter advances in whole-period steps", func(t *testing.T) {
		c := &QuotaCounter{CurrentUsage: 5, PeriodStart: start, PeriodEnd: start.Add(period)}
		now := start.Add(10*period + time.Hour)
		c.Rollover(now, period)
		assert.Zero(t, c.CurrentUsage)
		assert.Equal(t, start.Add(10*period), c.PeriodStart)
		assert.Equal(t, start.Add(11*period), c.PeriodEnd)
		assert.True(t, now.After(c.PeriodStart) && now.Before(c.PeriodEnd))
	})

	t.Run("boundary instant counts as expired", func(t *testing.T) {
		c := &QuotaCounter{CurrentUsage: 5, PeriodStart: start, PeriodEnd: start.Add(period)}
		assert.True(t, c.Expired(start.Add(period)))
		assert.False(t, c.Expired(start.Add(period-time.Nanosecond)))
	})
}

func TestQuotaStatusOf(t *testing.T) {
	c := &QuotaCounter{QuotaType: QuotaTokens, CurrentUsage: 400, MaxLimit: 1000}
	s := StatusOf(c)
	assert.Equal(t, int64(600), s.Remaining)

	over := &QuotaCounter{QuotaType: QuotaTokens, CurrentUsage: 1200, MaxLimit: 1000}
	assert.Zero(t, StatusOf(over).Remaining, "remaining never goes negative")
}

func TestNewPage(t *testing.T) {
	t.Run("computes total pages with a partial tail", func(t *testing.T) {
		p := NewPage(make([]int, 20), 1, 20, 45)
		assert.Equal(t, 3, p.TotalPages)
		assert.Equal(t, int64(45), p.TotalCount)
	})

	t.Run("exact multiple", func(t *testing.T) {
		p := NewPage(make([]int, 20), 2, 20, 40)
		assert.Equal(t, 2, p.TotalPages)
	})

	t.Run("empty result", func(t *testing.T) {
		p := NewPage[int](nil, 1, 20, 0)
		assert.NotNil(t, p.Items)
		assert.Empty(t, p.Items)
		assert.Zero(t, p.TotalPages)
	})
}

func TestCallerContextValid(t *testing.T) {
	assert.True(t, CallerContext{OrganizationID: 1}.Valid())
	assert.False(t, CallerContext{}.Valid())
	assert.False(t, CallerContext{OrganizationID: -2, UserID: 4}.Valid())
}
