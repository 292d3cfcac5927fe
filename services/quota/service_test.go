package quota

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agileforge/agentgov/config"
	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/services"
)

// fakeQuotaRepo is an in-memory QuotaRepository with real
// version-compare-and-swap semantics, safe for concurrent use.
type fakeQuotaRepo struct {
	mu       sync.Mutex
	counters map[string]*models.QuotaCounter
}

func newFakeQuotaRepo() *fakeQuotaRepo {
	return &fakeQuotaRepo{counters: make(map[string]*models.QuotaCounter)}
}

func key(orgID int64, qt models.QuotaType) string {
	return fmt.Sprintf("%d:%s", orgID, qt)
}

func (r *fakeQuotaRepo) Get(_ context.Context, orgID int64, quotaType models.QuotaType) (*models.QuotaCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[key(orgID, quotaType)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeQuotaRepo) Create(_ context.Context, counter *models.QuotaCounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(counter.OrganizationID, counter.QuotaType)
	if _, exists := r.counters[k]; exists {
		return nil // ON CONFLICT DO NOTHING
	}
	cp := *counter
	r.counters[k] = &cp
	return nil
}

func (r *fakeQuotaRepo) UpdateWithVersion(_ context.Context, counter *models.QuotaCounter, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(counter.OrganizationID, counter.QuotaType)
	stored, ok := r.counters[k]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	stored.CurrentUsage = counter.CurrentUsage
	stored.PeriodStart = counter.PeriodStart
	stored.PeriodEnd = counter.PeriodEnd
	stored.Version++
	counter.Version = stored.Version
	return true, nil
}

func (r *fakeQuotaRepo) ListByOrg(_ context.Context, orgID int64) ([]*models.QuotaCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QuotaCounter
	for _, c := range r.counters {
		if c.OrganizationID == orgID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func testConfig() config.GovernanceConfig {
	return config.GovernanceConfig{
		QuotaPeriod:         30 * 24 * time.Hour,
		DefaultRequestLimit: 1000,
		DefaultTokenLimit:   1000000,
		DefaultCostLimit:    100,
		CASMaxRetries:       5,
	}
}

func newTestService(repo *fakeQuotaRepo) *Service {
	return NewService(repo, testConfig(), zap.NewNop())
}

func TestCheckAndReserve_Validation(t *testing.T) {
	svc := newTestService(newFakeQuotaRepo())
	ctx := context.Background()

	t.Run("rejects missing organization", func(t *testing.T) {
		err := svc.CheckAndReserve(ctx, models.CallerContext{}, models.QuotaRequests, 1)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("rejects unknown quota type", func(t *testing.T) {
		caller := models.CallerContext{OrganizationID: 1, UserID: 1}
		err := svc.CheckAndReserve(ctx, caller, models.QuotaType("Bananas"), 1)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		caller := models.CallerContext{OrganizationID: 1, UserID: 1}
		err := svc.CheckAndReserve(ctx, caller, models.QuotaRequests, 0)
		assert.True(t, services.IsValidationError(err))
	})
}

func TestCheckAndReserve_IncrementsAndRejects(t *testing.T) {
	repo := newFakeQuotaRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	caller := models.CallerContext{OrganizationID: 42, UserID: 7}

	// Pre-seed a tight counter so the limit is reachable
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &models.QuotaCounter{
		ID:             uuid.New(),
		OrganizationID: 42,
		QuotaType:      models.QuotaRequests,
		CurrentUsage:   0,
		MaxLimit:       3,
		PeriodStart:    now,
		PeriodEnd:      now.Add(30 * 24 * time.Hour),
		Version:        1,
	}))

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.CheckAndReserve(ctx, caller, models.QuotaRequests, 1))
	}

	err := svc.CheckAndReserve(ctx, caller, models.QuotaRequests, 1)
	require.Error(t, err)
	assert.True(t, services.IsQuotaExceededError(err))

	details := services.GetErrorDetails(err)
	assert.Equal(t, "Requests", details["quota_type"])
	assert.Equal(t, int64(3), details["current_usage"])
	assert.Equal(t, int64(3), details["max_limit"])

	// A rejected admission must not change the counter
	stored, err := repo.Get(ctx, 42, models.QuotaRequests)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.CurrentUsage)
}

func TestCheckAndReserve_LazyCreateUsesDefaults(t *testing.T) {
	repo := newFakeQuotaRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	caller := models.CallerContext{OrganizationID: 5, UserID: 1}

	require.NoError(t, svc.CheckAndReserve(ctx, caller, models.QuotaTokens, 250))

	stored, err := repo.Get(ctx, 5, models.QuotaTokens)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(250), stored.CurrentUsage)
	assert.Equal(t, int64(1000000), stored.MaxLimit)
}

func TestCheckAndReserve_PeriodRollover(t *testing.T) {
	repo := newFakeQuotaRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	caller := models.CallerContext{OrganizationID: 9, UserID: 1}

	period := 30 * 24 * time.Hour
	oldStart := time.Now().UTC().Add(-3 * period)
	oldEnd := oldStart.Add(period)
	require.NoError(t, repo.Create(ctx, &models.QuotaCounter{
		ID:             uuid.New(),
		OrganizationID: 9,
		QuotaType:      models.QuotaRequests,
		CurrentUsage:   999,
		MaxLimit:       1000,
		PeriodStart:    oldStart,
		PeriodEnd:      oldEnd,
		Version:        1,
	}))

	// The old window is exhausted but expired, so admission succeeds
	// against a fresh window.
	require.NoError(t, svc.CheckAndReserve(ctx, caller, models.QuotaRequests, 1))

	stored, err := repo.Get(ctx, 9, models.QuotaRequests)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.CurrentUsage)

	// The new window advances in whole-period steps from the old end,
	// not from "now".
	assert.True(t, stored.PeriodStart.Equal(oldEnd.Add(period)) || stored.PeriodStart.Equal(oldEnd.Add(2*period)),
		"period start should land on a whole-period boundary, got %v", stored.PeriodStart)
	assert.True(t, stored.PeriodEnd.After(time.Now().UTC()))
	assert.Equal(t, period, stored.PeriodEnd.Sub(stored.PeriodStart))
}

func TestCheckAndReserve_ConcurrentAdmission(t *testing.T) {
	repo := newFakeQuotaRepo()
	// Generous retry budget: with 30 goroutines racing one counter the
	// default of 5 CAS attempts legitimately exhausts.
	cfg := testConfig()
	cfg.CASMaxRetries = 100
	svc := NewService(repo, cfg, zap.NewNop())

	ctx := context.Background()
	caller := models.CallerContext{OrganizationID: 77, UserID: 1}

	const remaining = 10
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &models.QuotaCounter{
		ID:             uuid.New(),
		OrganizationID: 77,
		QuotaType:      models.QuotaRequests,
		CurrentUsage:   0,
		MaxLimit:       remaining,
		PeriodStart:    now,
		PeriodEnd:      now.Add(30 * 24 * time.Hour),
		Version:        1,
	}))

	const callers = 30
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.CheckAndReserve(ctx, caller, models.QuotaRequests, 1)
		}()
	}
	wg.Wait()
	close(results)

	var admitted, rejected int
	for err := range results {
		switch {
		case err == nil:
			admitted++
		case services.IsQuotaExceededError(err):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, remaining, admitted, "exactly the remaining units are admitted")
	assert.Equal(t, callers-remaining, rejected)

	stored, err := repo.Get(ctx, 77, models.QuotaRequests)
	require.NoError(t, err)
	assert.Equal(t, int64(remaining), stored.CurrentUsage, "usage never exceeds the limit")
}

func TestStatus(t *testing.T) {
	repo := newFakeQuotaRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	caller := models.CallerContext{OrganizationID: 11, UserID: 1}

	t.Run("missing counters report default limits", func(t *testing.T) {
		statuses, err := svc.Status(ctx, caller)
		require.NoError(t, err)
		require.Len(t, statuses, 3)

		byType := make(map[models.QuotaType]models.QuotaStatus)
		for _, s := range statuses {
			byType[s.QuotaType] = s
		}
		assert.Equal(t, int64(1000), byType[models.QuotaRequests].MaxLimit)
		assert.Equal(t, int64(1000000), byType[models.QuotaTokens].MaxLimit)
		assert.Equal(t, int64(100), byType[models.QuotaCost].MaxLimit)
		for _, s := range statuses {
			assert.Zero(t, s.CurrentUsage)
			assert.Equal(t, s.MaxLimit, s.Remaining)
		}
	})

	t.Run("existing usage is reflected", func(t *testing.T) {
		require.NoError(t, svc.CheckAndReserve(ctx, caller, models.QuotaRequests, 40))

		statuses, err := svc.Status(ctx, caller)
		require.NoError(t, err)
		for _, s := range statuses {
			if s.QuotaType == models.QuotaRequests {
				assert.Equal(t, int64(40), s.CurrentUsage)
				assert.Equal(t, int64(960), s.Remaining)
			}
		}
	})

	t.Run("rejects missing organization", func(t *testing.T) {
		_, err := svc.Status(ctx, models.CallerContext{})
		assert.True(t, services.IsValidationError(err))
	})
}
