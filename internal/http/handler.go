package http

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"audioflow/internal/flood"
	"audioflow/internal/i18n"
	"audioflow/internal/page"
	"audioflow/internal/store"
	"audioflow/pkg/audiometa"
	"audioflow/pkg/validator"
)

const (
	// SessionPath is the WebSocket endpoint for player sessions.
	SessionPath = "/ws/player"

	routePage    = "page"
	routeLookup  = "lookup"
	routeSession = "session"

	maxRequestBodyBytes = 1 << 16
)

//go:embed templates/page.html.tmpl
var templateFS embed.FS

// Deps are the collaborators of a Handler.
type Deps struct {
	Resolver       page.Resolver
	Strict         bool
	DemoIdentifier string
	Localizer      *i18n.Localizer
	Floodgate      *flood.Floodgate
	// Cache, when set, has its counters exported on /metrics.
	Cache            *store.CachedLookup
	Metrics          *Metrics
	Gatherer         prometheus.Gatherer
	ShareAckDuration time.Duration
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Handler serves every route of the service.
type Handler struct {
	deps     Deps
	logger   *zap.Logger
	validate *validator.Validator
	upgrader websocket.Upgrader
	tmpl     *template.Template
}

// NewHandler parses the page template and wires the routes' dependencies.
func NewHandler(deps Deps, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Localizer == nil {
		deps.Localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}
	if deps.Floodgate == nil {
		deps.Floodgate = flood.New(0)
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	if err := deps.Metrics.ObserveFloodgate(deps.Floodgate); err != nil {
		return nil, fmt.Errorf("failed to register floodgate metrics: %w", err)
	}
	if deps.Cache != nil {
		if err := deps.Metrics.ObserveCache(deps.Cache); err != nil {
			return nil, fmt.Errorf("failed to register cache metrics: %w", err)
		}
	}

	tmpl, err := template.New("page.html.tmpl").
		Funcs(template.FuncMap{"t": deps.Localizer.T}).
		ParseFS(templateFS, "templates/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	return &Handler{
		deps:     deps,
		logger:   logger,
		validate: validator.New(),
		// A nil CheckOrigin rejects cross-origin handshakes.
		upgrader: websocket.Upgrader{},
		tmpl:     tmpl,
	}, nil
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLoggingMw)

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Get("/", h.handlePage)
	r.Get(SessionPath, h.handleSession)

	r.Route("/api/formsAPI", func(r chi.Router) {
		r.Use(cors.AllowAll().Handler)
		r.Post("/getAudio", h.handleGetAudio)
	})

	return r
}

func (h *Handler) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Debug("Request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "audioflow"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ready != nil {
		if err := h.deps.Ready(r.Context()); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			h.writeJSON(w, http.StatusServiceUnavailable,
				map[string]string{"status": "unavailable", "service": "audioflow"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "audioflow"})
}

// allow applies flood control for route and records rejections.
func (h *Handler) allow(route string, r *http.Request) bool {
	if h.deps.Floodgate.Allow(route, clientKey(r)) {
		return true
	}
	h.deps.Metrics.RecordFloodRejection(route)
	h.logger.Debug("Request rejected by flood control",
		zap.String("route", route),
		zap.String("client", clientKey(r)))
	return false
}

func (h *Handler) resolve(ctx context.Context, source, id string) audiometa.Result {
	start := time.Now()
	result := h.deps.Resolver.Resolve(ctx, id)
	h.deps.Metrics.RecordResolve(source, time.Since(start))
	return result
}

func (h *Handler) newController(source string) *page.Controller {
	return page.NewController(resolverFunc(func(ctx context.Context, id string) audiometa.Result {
		return h.resolve(ctx, source, id)
	}), page.Options{
		Strict:         h.deps.Strict,
		DemoIdentifier: h.deps.DemoIdentifier,
		Localizer:      h.deps.Localizer,
	}, h.logger.Named("page"))
}

type resolverFunc func(ctx context.Context, id string) audiometa.Result

func (f resolverFunc) Resolve(ctx context.Context, id string) audiometa.Result {
	return f(ctx, id)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("Failed to write response", zap.Error(err))
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
