package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agileforge/agentgov/config"
	"github.com/agileforge/agentgov/middleware"
	"github.com/agileforge/agentgov/repositories"
	"github.com/agileforge/agentgov/repositories/postgres"
	"github.com/agileforge/agentgov/services/decision"
	"github.com/agileforge/agentgov/services/execution"
	"github.com/agileforge/agentgov/services/governance"
	"github.com/agileforge/agentgov/services/quota"
	"github.com/agileforge/agentgov/services/tokens"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Decisions     repositories.DecisionRepository
	Quotas        repositories.QuotaRepository
	ExecutionLogs repositories.ExecutionLogRepository
	OrgSettings   repositories.OrgSettingsRepository
	TxManager     repositories.TransactionManager

	// Services
	Estimator     *tokens.Estimator
	QuotaService  *quota.Service
	DecisionService  *decision.Service
	ExecutionLog  *execution.Service
	Governance    governance.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices(cfg)
	deps.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := factory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Decisions = repos.Decisions
	d.Quotas = repos.Quotas
	d.ExecutionLogs = repos.ExecutionLogs
	d.OrgSettings = repos.OrgSettings
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initServices initializes the governance services and facade
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Estimator = tokens.NewEstimator(cfg.Governance.CharsPerToken)

	policy := decision.NewThresholdPolicy(
		cfg.Governance.ApprovalConfidenceThreshold,
		cfg.Governance.GatedDecisionTypes,
	)

	d.QuotaService = quota.NewService(d.Quotas, cfg.Governance, d.Logger)
	d.DecisionService = decision.NewService(d.Decisions, d.TxManager, d.Estimator, policy, d.Logger)
	d.ExecutionLog = execution.NewService(d.ExecutionLogs, d.Logger, execution.Config{
		BufferSize:  cfg.Governance.ExecutionLogBufferSize,
		WorkerCount: cfg.Governance.ExecutionLogWorkers,
	})

	d.Governance = governance.NewService(
		d.QuotaService,
		d.DecisionService,
		d.ExecutionLog,
		d.OrgSettings,
		cfg.Governance,
		d.Logger,
	)

	d.Logger.Info("governance services initialized")
}

// Close releases all resources
func (d *Dependencies) Close() error {
	if d.RepoFactory != nil {
		return d.RepoFactory.Close()
	}
	return nil
}
