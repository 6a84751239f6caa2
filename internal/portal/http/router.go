// Package http wires the portal's HTTP surface: the auth endpoints, the
// realtime event stream, camera stream access, and operational probes.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/obs"
	"github.com/kampunglabs/siskamling/internal/portal/realtime"
	"github.com/kampunglabs/siskamling/internal/portal/service"
	"github.com/kampunglabs/siskamling/internal/portal/store"
	"github.com/kampunglabs/siskamling/pkg/httpx"
	"github.com/kampunglabs/siskamling/pkg/jwtx"
	"github.com/kampunglabs/siskamling/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	hub   *realtime.Hub

	AuthService   *service.AuthService
	CameraService *service.CameraService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	hub *realtime.Hub,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		hub:          hub,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		obs.Instrument,
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerEvents()
	r.registerCameras()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	authn := httpx.AuthnMiddleware(r.verifier)

	login := &LoginHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			// Keyed by source IP plus the attempted username so one
			// busy NAT cannot exhaust another household's budget.
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	refresh := &RefreshHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	logout := &LogoutHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logout,
			authn,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	profile := &ProfileHandler{AuthService: r.AuthService}
	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(profile.HandleGet),
			authn,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/auth/me",
		httpx.Chain(http.HandlerFunc(profile.HandlePatch),
			authn,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/auth/me/activity",
		httpx.Chain(http.HandlerFunc(profile.HandleActivity),
			authn,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerEvents() {
	events := &EventsHandler{Hub: r.hub, Verifier: r.verifier}
	// The stream authenticates itself from the handshake payload, so the
	// bearer-header middleware is deliberately absent here.
	r.Mux.Handle("GET /v1/events",
		httpx.Chain(events,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerCameras() {
	authn := httpx.AuthnMiddleware(r.verifier)

	cameras := &CamerasHandler{CameraService: r.CameraService}
	r.Mux.Handle("GET /v1/units/{unitID}/cameras",
		httpx.Chain(http.HandlerFunc(cameras.HandleList),
			authn,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/cameras/{cameraID}/stream",
		httpx.Chain(http.HandlerFunc(cameras.HandleStreamURL),
			authn,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", obs.Handler())
}
