package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kampunglabs/siskamling/internal/portal/realtime"
	"github.com/kampunglabs/siskamling/pkg/httpx"
	"github.com/kampunglabs/siskamling/pkg/jwtx"
	"github.com/kampunglabs/siskamling/pkg/slogx"
)

// EventsHandler serves GET /v1/events as a Server-Sent Events stream.
//
// The access token rides in the handshake's `token` query parameter rather
// than the Authorization header: EventSource clients cannot set headers. No
// anonymous connections; a missing or invalid token rejects the handshake
// before the stream opens.
type EventsHandler struct {
	Hub      *realtime.Hub
	Verifier jwtx.Verifier
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	if h.Hub == nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "streaming disabled")
		return
	}

	raw := r.URL.Query().Get("token")
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := h.Verifier.Verify(raw)
	if err != nil {
		log.Warn("event stream handshake rejected", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := h.Hub.Subscribe(ctx, subscriptionScopes(claims))

	// Initial comment establishes the stream on the client side.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// subscriptionScopes derives the three scope subscriptions a connection gets:
// role-wide, unit-wide (when affiliated), and personal.
func subscriptionScopes(c jwtx.Claims) []string {
	scopes := []string{
		realtime.RoleScope(c.Role),
		realtime.AccountScope(c.Subject),
	}
	if c.UnitID != "" {
		scopes = append(scopes, realtime.UnitScope(c.UnitID))
	}
	return scopes
}
