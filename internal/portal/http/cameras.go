package http

import (
	"errors"
	"net/http"

	"github.com/kampunglabs/siskamling/internal/portal/domain"
	"github.com/kampunglabs/siskamling/internal/portal/service"
	"github.com/kampunglabs/siskamling/pkg/cryptox"
	"github.com/kampunglabs/siskamling/pkg/httpx"
	"github.com/kampunglabs/siskamling/pkg/jwtx"
	"github.com/kampunglabs/siskamling/pkg/slogx"
)

// CamerasHandler serves camera listing and stream URL access.
type CamerasHandler struct {
	CameraService *service.CameraService
}

func (h *CamerasHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	cams, err := h.CameraService.ListByUnit(ctx, viewerFromClaims(claims), r.PathValue("unitID"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrAccessDenied):
		httpx.WriteError(w, http.StatusForbidden, "not allowed to view this unit")
		return
	default:
		log.Error("camera list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, cams)
}

func (h *CamerasHandler) HandleStreamURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	url, err := h.CameraService.StreamURL(ctx, viewerFromClaims(claims), r.PathValue("cameraID"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "camera not found")
		return
	case errors.Is(err, service.ErrAccessDenied):
		httpx.WriteError(w, http.StatusForbidden, "not allowed to view this camera")
		return
	case errors.Is(err, cryptox.ErrDecryptionFailed):
		log.Error("camera secret unreadable", "camera_id", r.PathValue("cameraID"))
		httpx.WriteError(w, http.StatusInternalServerError, "stream unavailable")
		return
	default:
		log.Error("stream url failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"stream_url": url})
}

// viewerFromClaims builds the authorization view from token claims alone; no
// database round trip on the camera read path.
func viewerFromClaims(c jwtx.Claims) domain.AccountSummary {
	return domain.AccountSummary{
		ID:       c.Subject,
		Username: c.Username,
		Role:     c.Role,
		UnitID:   c.UnitID,
	}
}
