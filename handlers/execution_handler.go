package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/agileforge/agentgov/middleware"
	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/services/governance"
	"github.com/agileforge/agentgov/utils"
)

// ExecutionHandler handles execution audit log HTTP requests
type ExecutionHandler struct {
	governance governance.Service
	logger     *zap.Logger
}

// NewExecutionHandler creates a new ExecutionHandler
func NewExecutionHandler(gov governance.Service, logger *zap.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		governance: gov,
		logger:     logger,
	}
}

// HandleListExecutions handles GET /ai/executions
func (h *ExecutionHandler) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerFromContext(ctx)
	if !caller.Valid() {
		_ = utils.WriteUnauthorized(w, "Missing organization information")
		return
	}

	q := r.URL.Query()
	filter := models.ExecutionFilter{
		AgentID:   q.Get("agentId"),
		AgentType: models.AgentType(q.Get("agentType")),
		Status:    models.ExecutionStatus(q.Get("status")),
	}
	if raw := q.Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			_ = utils.WriteBadRequest(w, "userId must be an integer", nil)
			return
		}
		filter.UserID = &id
	}
	if raw := q.Get("success"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "success must be a boolean", nil)
			return
		}
		filter.Success = &b
	}

	page, pageSize := utils.ParsePagination(r)

	result, err := h.governance.QueryExecutions(ctx, caller, filter, page, pageSize)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, result)
}
