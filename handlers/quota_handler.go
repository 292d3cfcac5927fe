package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/agileforge/agentgov/middleware"
	"github.com/agileforge/agentgov/services/governance"
	"github.com/agileforge/agentgov/utils"
)

// QuotaHandler handles quota snapshot and usage statistics requests
type QuotaHandler struct {
	governance governance.Service
	logger     *zap.Logger
}

// NewQuotaHandler creates a new QuotaHandler
func NewQuotaHandler(gov governance.Service, logger *zap.Logger) *QuotaHandler {
	return &QuotaHandler{
		governance: gov,
		logger:     logger,
	}
}

// HandleQuotaStatus handles GET /ai/quota
func (h *QuotaHandler) HandleQuotaStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerFromContext(ctx)
	if !caller.Valid() {
		_ = utils.WriteUnauthorized(w, "Missing organization information")
		return
	}

	statuses, err := h.governance.QuotaStatus(ctx, caller)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, statuses)
}

// HandleUsageStatistics handles GET /ai/usage/statistics.
// Defaults to the trailing 30 days when no range is given.
func (h *QuotaHandler) HandleUsageStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerFromContext(ctx)
	if !caller.Valid() {
		_ = utils.WriteUnauthorized(w, "Missing organization information")
		return
	}

	q := r.URL.Query()
	start, end, err := parseDateRange(q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}

	stats, svcErr := h.governance.UsageStatistics(ctx, caller, from, to)
	if svcErr != nil {
		HandleServiceError(w, svcErr, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, stats)
}
