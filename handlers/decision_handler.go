package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agileforge/agentgov/middleware"
	"github.com/agileforge/agentgov/models"
	"github.com/agileforge/agentgov/services/governance"
	"github.com/agileforge/agentgov/utils"
)

// ApproveDecisionRequest is the body of POST /ai/decisions/{id}/approve
type ApproveDecisionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// RejectDecisionRequest is the body of POST /ai/decisions/{id}/reject
type RejectDecisionRequest struct {
	Reason string  `json:"reason" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}

// DecisionHandler handles decision ledger HTTP requests
type DecisionHandler struct {
	governance governance.Service
	logger     *zap.Logger
}

// NewDecisionHandler creates a new DecisionHandler
func NewDecisionHandler(gov governance.Service, logger *zap.Logger) *DecisionHandler {
	return &DecisionHandler{
		governance: gov,
		logger:     logger,
	}
}

// HandleListDecisions handles GET /ai/decisions
func (h *DecisionHandler) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerFromContext(ctx)
	if !caller.Valid() {
		_ = utils.WriteUnauthorized(w, "Missing organization information")
		return
	}

	filter, err := parseDecisionFilter(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	page, pageSize := utils.ParsePagination(r)

	result, svcErr := h.governance.QueryDecisions(ctx, caller, filter, page, pageSize)
	if svcErr != nil {
		HandleServiceError(w, svcErr, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, result)
}

// HandleGetDecision handles GET /ai/decisions/{id}
func (h *DecisionHandler) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerFromContext(ctx)
	if !caller.Valid() {
		_ = utils.WriteUnauthorized(w, "Missing organization information")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid decision id", nil)
		return
	}

	record, svcErr := h.governance.GetDecision(ctx, caller, id)
	if svcErr != nil {
		HandleServiceError(w, svcErr, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, record)
}

// HandleApproveDecision handles POST /ai/decisions/{id}/approve
func (h *DecisionHandler) HandleApproveDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerFromContext(ctx)
	if !caller.Valid() {
		_ = utils.WriteUnauthorized(w, "Missing organization information")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid decision id", nil)
		return
	}

	var req ApproveDecisionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid request body", nil)
			return
		}
	}

	record, svcErr := h.governance.Approve(ctx, caller, id, caller.UserID, req.Notes)
	if svcErr != nil {
		HandleServiceError(w, svcErr, h.logger)
		return
	}

	h.logger.Info("decision approved",
		zap.String("decision_id", id.String()),
		zap.Int64("approved_by", caller.UserID))

	_ = utils.WriteJSON(w, http.StatusOK, record)
}

// HandleRejectDecision handles POST /ai/decisions/{id}/reject
func (h *DecisionHandler) HandleRejectDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCallerFromContext(ctx)
	if !caller.Valid() {
		_ = utils.WriteUnauthorized(w, "Missing organization information")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid decision id", nil)
		return
	}

	var req RejectDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	record, svcErr := h.governance.Reject(ctx, caller, id, req.Reason, req.Notes)
	if svcErr != nil {
		HandleServiceError(w, svcErr, h.logger)
		return
	}

	h.logger.Info("decision rejected",
		zap.String("decision_id", id.String()),
		zap.Int64("rejected_by", caller.UserID))

	_ = utils.WriteJSON(w, http.StatusOK, record)
}

// parseDecisionFilter reads the optional filter query parameters
func parseDecisionFilter(r *http.Request) (models.DecisionFilter, error) {
	q := r.URL.Query()
	filter := models.DecisionFilter{
		DecisionType: q.Get("decisionType"),
		AgentType:    models.AgentType(q.Get("agentType")),
		EntityType:   q.Get("entityType"),
	}

	if raw := q.Get("entityId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, &queryParamError{"entityId must be an integer"}
		}
		filter.EntityID = &id
	}
	if raw := q.Get("requiresApproval"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, &queryParamError{"requiresApproval must be a boolean"}
		}
		filter.RequiresApproval = &b
	}

	start, end, err := parseDateRange(q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		return filter, err
	}
	filter.StartDate = start
	filter.EndDate = end

	return filter, nil
}

type queryParamError struct{ msg string }

func (e *queryParamError) Error() string { return e.msg }

// parseDateRange parses RFC3339 timestamps or plain dates. A plain end
// date covers its whole day, keeping the range inclusive.
func parseDateRange(startRaw, endRaw string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if startRaw != "" {
		t, _, err := parseDateParam(startRaw)
		if err != nil {
			return nil, nil, &queryParamError{"startDate must be RFC3339 or YYYY-MM-DD"}
		}
		start = &t
	}
	if endRaw != "" {
		t, dateOnly, err := parseDateParam(endRaw)
		if err != nil {
			return nil, nil, &queryParamError{"endDate must be RFC3339 or YYYY-MM-DD"}
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		end = &t
	}
	return start, end, nil
}

func parseDateParam(raw string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	if t, err = time.Parse("2006-01-02", raw); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}
