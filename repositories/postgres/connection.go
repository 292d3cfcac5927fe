package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/agileforge/agentgov/config"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema initializes the governance schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Decision ledger: append-only record of every agent decision
		CREATE TABLE IF NOT EXISTS agent_decisions (
			id UUID PRIMARY KEY,
			organization_id BIGINT NOT NULL,
			project_id BIGINT,
			agent_type VARCHAR(50) NOT NULL,
			decision_type VARCHAR(100) NOT NULL,
			entity_type VARCHAR(100),
			entity_id BIGINT,
			entity_name VARCHAR(255),
			question TEXT NOT NULL,
			reasoning TEXT NOT NULL,
			decision TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			input_data TEXT NOT NULL DEFAULT '',
			output_data TEXT NOT NULL DEFAULT '',
			prompt_tokens INT NOT NULL DEFAULT 0,
			completion_tokens INT NOT NULL DEFAULT 0,
			total_tokens INT NOT NULL DEFAULT 0,
			execution_time_ms INT NOT NULL DEFAULT 0,
			is_success BOOLEAN NOT NULL DEFAULT TRUE,
			error_message TEXT,
			requires_approval BOOLEAN NOT NULL DEFAULT FALSE,
			approval_status VARCHAR(20) NOT NULL,
			approved_by BIGINT,
			approval_notes TEXT,
			rejected_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_agent_decisions_org_created
			ON agent_decisions (organization_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_agent_decisions_org_status
			ON agent_decisions (organization_id, approval_status);

		-- Quota counters: one row per (organization, quota type)
		CREATE TABLE IF NOT EXISTS quota_counters (
			id UUID PRIMARY KEY,
			organization_id BIGINT NOT NULL,
			quota_type VARCHAR(20) NOT NULL,
			current_usage BIGINT NOT NULL DEFAULT 0,
			max_limit BIGINT NOT NULL,
			period_start TIMESTAMPTZ NOT NULL,
			period_end TIMESTAMPTZ NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			UNIQUE (organization_id, quota_type)
		);

		-- Execution log: append-only observability trail
		CREATE TABLE IF NOT EXISTS agent_execution_logs (
			id UUID PRIMARY KEY,
			organization_id BIGINT NOT NULL,
			agent_id VARCHAR(100) NOT NULL,
			agent_type VARCHAR(50) NOT NULL,
			user_id BIGINT,
			status VARCHAR(20) NOT NULL,
			success BOOLEAN NOT NULL DEFAULT FALSE,
			duration_ms INT NOT NULL DEFAULT 0,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_agent_execution_logs_org_created
			ON agent_execution_logs (organization_id, created_at DESC);

		-- Tenant-level AI feature switch
		CREATE TABLE IF NOT EXISTS org_ai_settings (
			organization_id BIGINT PRIMARY KEY,
			ai_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("governance schema initialized")
	return nil
}
