package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/service"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
	"github.com/HackDavis/admissions-portal-sub000/pkg/httpx"
	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	adminKey     string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Finalizer Finalizer
	KeySlots  KeySlotService
	// Defaults fill ticket settings a finalize request leaves empty.
	Defaults service.TicketParams
	// Metrics serves /metrics; nil uses the default Prometheus registry.
	Metrics http.Handler
}

func NewRouter(adminKey, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		adminKey:     adminKey,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerFinalize()
	r.registerReports()
	r.registerKeySlots()
	r.registerSystem()
}

// ServeHTTP applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) admin(h http.Handler, limiter httpx.Middleware) http.Handler {
	return httpx.Chain(h,
		httpx.AdminKeyMiddleware(r.adminKey),
		limiter,
	)
}

// perCaller limits each caller on each route separately.
func perCaller(limit httpx.RateLimitConfig) httpx.Middleware {
	return httpx.RateLimitMiddleware(limit,
		httpx.CompositeKeyExtractor("|", httpx.IPKeyExtractor, httpx.RouteKeyExtractor))
}

func (r *Router) registerFinalize() {
	h := &FinalizeHandler{Finalizer: r.Finalizer, Defaults: r.Defaults}

	// Runs touch every external platform, so the limit is global.
	r.Mux.Handle("POST /v1/finalize", r.admin(h, httpx.RateLimitByRoute(httpx.TriggerLimit)))
}

func (r *Router) registerReports() {
	h := &ReportsHandler{Reports: r.store.Reports()}

	r.Mux.Handle("GET /v1/finalize/reports", r.admin(http.HandlerFunc(h.HandleList), perCaller(httpx.ReadLimit)))
	r.Mux.Handle("GET /v1/finalize/reports/{id}", r.admin(http.HandlerFunc(h.HandleGet), perCaller(httpx.ReadLimit)))
}

func (r *Router) registerKeySlots() {
	h := &KeySlotsHandler{KeySlots: r.KeySlots}

	r.Mux.Handle("GET /v1/key-slots", r.admin(http.HandlerFunc(h.HandleStatus), perCaller(httpx.ReadLimit)))
	r.Mux.Handle("POST /v1/key-slots/reset", r.admin(http.HandlerFunc(h.HandleReset), perCaller(httpx.TriggerLimit)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.ProbeLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.ProbeLimit),
		),
	)

	metrics := r.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Mux.Handle("GET /metrics",
		httpx.Chain(metrics,
			httpx.RateLimitByIP(httpx.ProbeLimit),
		),
	)
}
