package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hausradar/dedup-engine/pkg/apperrors"
	"github.com/hausradar/dedup-engine/pkg/models"
	"github.com/hausradar/dedup-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// ResolveGroupRequest for POST /api/dedup/groups/{gid}/resolve
type ResolveGroupRequest struct {
	MergeTargetID uuid.UUID `json:"merge_target_id"`
	ActorID       uuid.UUID `json:"actor_id"`
	Notes         string    `json:"notes,omitempty"`
}

// DismissGroupRequest for POST /api/dedup/groups/{gid}/dismiss
type DismissGroupRequest struct {
	ActorID uuid.UUID `json:"actor_id"`
	Notes   string    `json:"notes,omitempty"`
}

// GroupListResponse for GET /api/dedup/groups
type GroupListResponse struct {
	Groups []*models.DuplicateGroup `json:"groups"`
	Total  int                      `json:"total"`
}

// AuditTrailResponse for GET /api/dedup/groups/{gid}/audit
type AuditTrailResponse struct {
	Entries []*models.AuditEntry `json:"entries"`
	Total   int                  `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// DedupHandler handles duplicate-detection HTTP requests: triggering scans,
// listing review groups and recording review decisions.
type DedupHandler struct {
	scanService   services.ScanService
	groupService  services.GroupService
	reviewService services.ReviewService
	logger        *zap.Logger
}

// NewDedupHandler creates a new dedup handler.
func NewDedupHandler(
	scanService services.ScanService,
	groupService services.GroupService,
	reviewService services.ReviewService,
	logger *zap.Logger,
) *DedupHandler {
	return &DedupHandler{
		scanService:   scanService,
		groupService:  groupService,
		reviewService: reviewService,
		logger:        logger,
	}
}

// RegisterRoutes registers the dedup handler's routes on the given mux.
func (h *DedupHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/dedup/scan", h.Scan)
	mux.HandleFunc("GET /api/dedup/groups", h.ListGroups)
	mux.HandleFunc("GET /api/dedup/groups/{gid}", h.GetGroup)
	mux.HandleFunc("POST /api/dedup/groups/{gid}/resolve", h.ResolveGroup)
	mux.HandleFunc("POST /api/dedup/groups/{gid}/dismiss", h.DismissGroup)
	mux.HandleFunc("GET /api/dedup/groups/{gid}/audit", h.AuditTrail)
}

// Scan handles POST /api/dedup/scan. The request body is optional; an empty
// body runs a full scan with configured defaults.
func (h *DedupHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req services.ScanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	summary, err := h.scanService.Scan(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrScanInProgress) {
			_ = ErrorResponse(w, http.StatusConflict, "scan_in_progress", "a scan is already running")
			return
		}
		h.logger.Error("Scan failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "scan_failed", "scan could not be completed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, summary); err != nil {
		h.logger.Error("Failed to encode scan summary", zap.Error(err))
	}
}

// ListGroups handles GET /api/dedup/groups?status=pending.
func (h *DedupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.GroupStatusPending
	}
	switch status {
	case models.GroupStatusPending, models.GroupStatusResolved, models.GroupStatusDismissed:
	default:
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_status", "status must be pending, resolved or dismissed")
		return
	}

	groups, err := h.groupService.ListGroups(r.Context(), status)
	if err != nil {
		h.logger.Error("Failed to list groups", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "list_failed", "could not list groups")
		return
	}

	if err := WriteJSON(w, http.StatusOK, GroupListResponse{Groups: groups, Total: len(groups)}); err != nil {
		h.logger.Error("Failed to encode group list", zap.Error(err))
	}
}

// GetGroup handles GET /api/dedup/groups/{gid}.
func (h *DedupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	group, err := h.groupService.GetGroup(r.Context(), groupID)
	if err != nil {
		h.writeError(w, err, "get_group_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, group); err != nil {
		h.logger.Error("Failed to encode group", zap.Error(err))
	}
}

// ResolveGroup handles POST /api/dedup/groups/{gid}/resolve.
func (h *DedupHandler) ResolveGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	var req ResolveGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ActorID == uuid.Nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "actor_id is required")
		return
	}

	entry, err := h.reviewService.Resolve(r.Context(), groupID, req.MergeTargetID, req.ActorID, req.Notes)
	if err != nil {
		h.writeError(w, err, "resolve_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, entry); err != nil {
		h.logger.Error("Failed to encode audit entry", zap.Error(err))
	}
}

// DismissGroup handles POST /api/dedup/groups/{gid}/dismiss.
func (h *DedupHandler) DismissGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	var req DismissGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ActorID == uuid.Nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "actor_id is required")
		return
	}

	entry, err := h.reviewService.Dismiss(r.Context(), groupID, req.ActorID, req.Notes)
	if err != nil {
		h.writeError(w, err, "dismiss_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, entry); err != nil {
		h.logger.Error("Failed to encode audit entry", zap.Error(err))
	}
}

// AuditTrail handles GET /api/dedup/groups/{gid}/audit.
func (h *DedupHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	entries, err := h.reviewService.AuditTrail(r.Context(), groupID)
	if err != nil {
		h.writeError(w, err, "audit_trail_failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, AuditTrailResponse{Entries: entries, Total: len(entries)}); err != nil {
		h.logger.Error("Failed to encode audit trail", zap.Error(err))
	}
}

func (h *DedupHandler) groupID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	groupID, err := uuid.Parse(r.PathValue("gid"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_group_id", "group id must be a UUID")
		return uuid.Nil, false
	}
	return groupID, true
}

// writeError maps service errors to HTTP responses.
func (h *DedupHandler) writeError(w http.ResponseWriter, err error, fallbackCode string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "group not found")
	case errors.Is(err, apperrors.ErrGroupNotPending):
		_ = ErrorResponse(w, http.StatusConflict, "group_not_pending", "group has already been reviewed")
	case errors.Is(err, apperrors.ErrInvalidMergeTarget):
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "invalid_merge_target", "merge target must be a member of the group")
	default:
		h.logger.Error("Request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, fallbackCode, "internal error")
	}
}
