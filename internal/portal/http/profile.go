package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/kampunglabs/siskamling/internal/portal/service"
	"github.com/kampunglabs/siskamling/pkg/httpx"
	"github.com/kampunglabs/siskamling/pkg/slogx"
)

// ProfileHandler serves the /v1/auth/me endpoints.
type ProfileHandler struct {
	AuthService *service.AuthService
}

func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	summary, err := h.AuthService.GetProfile(ctx, httpx.AccountIDFromContext(ctx))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "account not found")
		return
	default:
		log.Error("profile read failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, summary)
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func (h *ProfileHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.AuthService.UpdateProfile(ctx, httpx.AccountIDFromContext(ctx), service.ProfileUpdate{
		Name:     req.Name,
		Password: req.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNoChanges):
		httpx.WriteError(w, http.StatusBadRequest, "nothing to update")
		return
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "account not found")
		return
	default:
		log.Error("profile update failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, summary)
}

func (h *ProfileHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.AuthService.ListActivity(ctx, httpx.AccountIDFromContext(ctx), limit)
	if err != nil {
		log.Error("activity read failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type activityEntry struct {
		Action    string `json:"action"`
		Resource  string `json:"resource,omitempty"`
		IPAddress string `json:"ip_address,omitempty"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]activityEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityEntry{
			Action:    e.Action,
			Resource:  e.Resource,
			IPAddress: e.IPAddress,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
