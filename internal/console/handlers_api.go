package console

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"steward/internal/access"
	"steward/internal/guard"
	"steward/internal/rights"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type profileResponse struct {
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	LastLogin time.Time `json:"last_login"`
}

type sessionResponse struct {
	IsAuthenticated    bool             `json:"is_authenticated"`
	Profile            *profileResponse `json:"profile,omitempty"`
	Rights             []rights.ID      `json:"rights"`
	MustChangePassword bool             `json:"must_change_password"`
}

type capabilityResponse struct {
	Capability string `json:"capability"`
	Allowed    bool   `json:"allowed"`
	Decision   string `json:"decision"`
}

type rightResponse struct {
	ID          rights.ID `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
}

// handleSession reports whether the browser holds a usable session and what it may do.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{Rights: []rights.ID{}}
	if v, ok := h.guard.Viewer(r); ok {
		resp.IsAuthenticated = true
		resp.Profile = &profileResponse{
			Name:      v.Profile.Name,
			Role:      v.Profile.Role,
			LastLogin: v.Profile.LastLogin,
		}
		if held := v.Rights(); len(held) > 0 {
			resp.Rights = held
		}
		resp.MustChangePassword = v.Claims.MustChangePassword
	}
	writeJSON(w, http.StatusOK, resp)
}

type auditEventResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Action    string    `json:"action"`
	SubjectID string    `json:"subject_id,omitempty"`
	Screen    string    `json:"screen,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	Device    string    `json:"device,omitempty"`
}

func (h *Handler) handleCapability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !rights.Known(rights.ID(id)) {
		// Callers can put anything in the path; only ids used by screens are configuration.
		writeJSON(w, http.StatusOK, capabilityResponse{
			Capability: id,
			Decision:   access.UnknownCapability.String(),
		})
		return
	}
	res := h.guard.Decide(r, guard.Screen{Name: id, Requires: rights.ID(id)})
	writeJSON(w, http.StatusOK, capabilityResponse{
		Capability: id,
		Allowed:    res.Decision.Allowed(),
		Decision:   res.Decision.String(),
	})
}

func (h *Handler) handleRights(w http.ResponseWriter, r *http.Request) {
	out := []rightResponse{}
	for right := range rights.All() {
		out = append(out, rightResponse{ID: right.ID, Label: right.Label, Description: right.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRecentAudit lists the newest audit events, most recent first.
func (h *Handler) handleRecentAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "bad_request",
				"error_description": "limit must be a positive integer",
			})
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.auditLog.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":             "unavailable",
			"error_description": "Audit events could not be loaded",
		})
		return
	}
	out := make([]auditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, auditEventResponse{
			Timestamp: e.Timestamp,
			Category:  string(e.Category),
			Action:    e.Action,
			SubjectID: e.SubjectID,
			Screen:    e.Screen,
			Decision:  e.Decision,
			TargetID:  e.TargetID,
			Device:    e.Device,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
