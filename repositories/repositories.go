package repositories

// Repositories bundles all repository instances for wiring
type Repositories struct {
	Decisions     DecisionRepository
	Quotas        QuotaRepository
	ExecutionLogs ExecutionLogRepository
	OrgSettings   OrgSettingsRepository
}
