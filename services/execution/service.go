// Package execution implements the agent execution log: an append-only
// observability trail written after every agent call. Writes are
// asynchronous so the agent path never blocks on audit persistence.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/repositories"
	"github.com/agileforge/agentgov/services"
)

// Service drains a buffered channel of log entries into the repository
// with a small worker pool. Query goes straight to the repository.
type Service struct {
	repo        repositories.ExecutionLogRepository
	logger      *zap.Logger
	entryChan   chan *models.AgentExecutionLogEntry
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the execution log writer
type Config struct {
	BufferSize  int // Size of the entry buffer channel
	WorkerCount int // Number of concurrent writers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000,
		WorkerCount: 5,
	}
}

// NewService creates an execution log service
func NewService(repo repositories.ExecutionLogRepository, logger *zap.Logger, cfg Config) *Service {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig().WorkerCount
	}
	return &Service{
		repo:        repo,
		logger:      logger,
		entryChan:   make(chan *models.AgentExecutionLogEntry, cfg.BufferSize),
		workerCount: cfg.WorkerCount,
		bufferSize:  cfg.BufferSize,
	}
}

// Start starts the background writers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("execution log service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started execution log service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop drains pending entries and stops the writers, waiting at most
// timeout for the queue to flush.
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("execution log service not started")
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info("stopping execution log service",
		zap.Int("pending_entries", len(s.entryChan)))

	close(s.entryChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("execution log service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("execution log service stop timeout after %v", timeout)
	}
}

// Record queues an entry for persistence (non-blocking). A full buffer
// drops the entry with a warning rather than stalling the agent path;
// the execution log is observability, not governance.
func (s *Service) Record(entry *models.AgentExecutionLogEntry) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("execution log service not started")
	}
	s.mu.Unlock()

	select {
	case s.entryChan <- entry:
		return nil
	default:
		s.logger.Warn("execution log buffer full, dropping entry",
			zap.String("agent_id", entry.AgentID),
			zap.Int64("organization_id", entry.OrganizationID))
		return fmt.Errorf("execution log buffer full")
	}
}

// worker persists entries from the channel
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("execution log worker started", zap.Int("worker_id", id))

	for entry := range s.entryChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Insert(ctx, entry); err != nil {
			s.logger.Error("failed to insert execution log entry",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("agent_id", entry.AgentID))
		}
		cancel()
	}

	s.logger.Debug("execution log worker stopped", zap.Int("worker_id", id))
}

// Pending returns the number of queued, not yet persisted entries
func (s *Service) Pending() int {
	return len(s.entryChan)
}

// Query returns one page of the execution audit trail, most recent
// first. Page and pageSize are assumed already normalized by the caller.
func (s *Service) Query(ctx context.Context, caller models.CallerContext, filter models.ExecutionFilter, page, pageSize int) (models.Page[*models.AgentExecutionLogEntry], error) {
	var empty models.Page[*models.AgentExecutionLogEntry]
	if caller.OrganizationID <= 0 {
		return empty, services.ErrInvalidOrganization
	}

	total, err := s.repo.Count(ctx, caller.OrganizationID, filter)
	if err != nil {
		return empty, services.WrapInternal("failed to count execution logs", err)
	}

	offset := (page - 1) * pageSize
	items := []*models.AgentExecutionLogEntry{}
	if int64(offset) < total {
		items, err = s.repo.Query(ctx, caller.OrganizationID, filter, pageSize, offset)
		if err != nil {
			return empty, services.WrapInternal("failed to query execution logs", err)
		}
	}

	return models.NewPage(items, page, pageSize, total), nil
}
