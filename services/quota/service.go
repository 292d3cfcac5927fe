// Package quota implements the per-tenant admission-control gate.
package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agileforge/agentgov/config"
	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/repositories"
	"github.com/agileforge/agentgov/services"
)

// Service is the quota ledger: per-(organization, quota type) counters
// with atomic check-and-increment admission control.
//
// The check and the increment are a single optimistic compare-and-swap
// keyed on the counter's version; a separate read-then-write would admit
// two callers into the last quota unit.
type Service struct {
	repo   repositories.QuotaRepository
	cfg    config.GovernanceConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a quota service
func NewService(repo repositories.QuotaRepository, cfg config.GovernanceConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// CheckAndReserve admits amount units against the caller's counter for
// quotaType, or fails with a quota_exceeded error carrying the counter
// state. The increment is durable once this returns nil; a later
// cancellation of the caller's request does not roll it back — the
// quota was reserved, not conditionally spent.
func (s *Service) CheckAndReserve(ctx context.Context, caller models.CallerContext, quotaType models.QuotaType, amount int64) error {
	if caller.OrganizationID <= 0 {
		return services.ErrInvalidOrganization
	}
	if !quotaType.Valid() {
		return services.ErrInvalidQuotaType
	}
	if amount < 1 {
		return services.ErrInvalidQuotaAmount
	}

	for attempt := 0; attempt < s.cfg.CASMaxRetries; attempt++ {
		counter, err := s.loadOrCreate(ctx, caller.OrganizationID, quotaType)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		counter.Rollover(now, s.cfg.QuotaPeriod)

		if counter.CurrentUsage+amount > counter.MaxLimit {
			s.logger.Warn("quota admission rejected",
				zap.Int64("organization_id", caller.OrganizationID),
				zap.String("quota_type", string(quotaType)),
				zap.Int64("current_usage", counter.CurrentUsage),
				zap.Int64("max_limit", counter.MaxLimit))
			return services.NewQuotaExceededError(string(quotaType), counter.CurrentUsage, counter.MaxLimit)
		}

		expectedVersion := counter.Version
		counter.CurrentUsage += amount

		ok, err := s.repo.UpdateWithVersion(ctx, counter, expectedVersion)
		if err != nil {
			return services.WrapInternal("failed to update quota counter", err)
		}
		if ok {
			s.logger.Debug("quota reserved",
				zap.Int64("organization_id", caller.OrganizationID),
				zap.String("quota_type", string(quotaType)),
				zap.Int64("amount", amount),
				zap.Int64("current_usage", counter.CurrentUsage))
			return nil
		}

		// Version conflict: another caller won the race. Re-read and retry.
	}

	return services.NewDomainError(services.ErrorTypeConflict,
		"quota counter contention, retries exhausted", nil).
		WithDetail("quota_type", string(quotaType))
}

// Status returns the caller's counter snapshots, one per quota type.
// Counters that do not exist yet are reported at their default limits
// with zero usage; expired windows are shown rolled over.
func (s *Service) Status(ctx context.Context, caller models.CallerContext) ([]models.QuotaStatus, error) {
	if caller.OrganizationID <= 0 {
		return nil, services.ErrInvalidOrganization
	}

	existing, err := s.repo.ListByOrg(ctx, caller.OrganizationID)
	if err != nil {
		return nil, services.WrapInternal("failed to list quota counters", err)
	}

	byType := make(map[models.QuotaType]*models.QuotaCounter, len(existing))
	for _, c := range existing {
		byType[c.QuotaType] = c
	}

	now := s.now().UTC()
	statuses := make([]models.QuotaStatus, 0, len(models.AllQuotaTypes()))
	for _, qt := range models.AllQuotaTypes() {
		counter, ok := byType[qt]
		if !ok {
			counter = s.newCounter(caller.OrganizationID, qt, now)
		} else {
			counter.Rollover(now, s.cfg.QuotaPeriod)
		}
		statuses = append(statuses, models.StatusOf(counter))
	}

	return statuses, nil
}

// loadOrCreate returns the persistent counter for (org, quotaType),
// lazily creating it at default limits on first use. A concurrent
// creator is tolerated: the insert ignores conflicts and we re-read.
func (s *Service) loadOrCreate(ctx context.Context, orgID int64, quotaType models.QuotaType) (*models.QuotaCounter, error) {
	counter, err := s.repo.Get(ctx, orgID, quotaType)
	if err != nil {
		return nil, services.WrapInternal("failed to load quota counter", err)
	}
	if counter != nil {
		return counter, nil
	}

	fresh := s.newCounter(orgID, quotaType, s.now().UTC())
	if err := s.repo.Create(ctx, fresh); err != nil {
		return nil, services.WrapInternal("failed to create quota counter", err)
	}

	counter, err = s.repo.Get(ctx, orgID, quotaType)
	if err != nil {
		return nil, services.WrapInternal("failed to reload quota counter", err)
	}
	if counter == nil {
		return nil, services.ErrQuotaCounterNotFound
	}
	return counter, nil
}

func (s *Service) newCounter(orgID int64, quotaType models.QuotaType, now time.Time) *models.QuotaCounter {
	return &models.QuotaCounter{
		ID:             uuid.New(),
		OrganizationID: orgID,
		QuotaType:      quotaType,
		CurrentUsage:   0,
		MaxLimit:       s.defaultLimit(quotaType),
		PeriodStart:    now,
		PeriodEnd:      now.Add(s.cfg.QuotaPeriod),
		Version:        1,
	}
}

func (s *Service) defaultLimit(quotaType models.QuotaType) int64 {
	switch quotaType {
	case models.QuotaRequests:
		return s.cfg.DefaultRequestLimit
	case models.QuotaTokens:
		return s.cfg.DefaultTokenLimit
	case models.QuotaCost:
		return s.cfg.DefaultCostLimit
	}
	return 0
}
