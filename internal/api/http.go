package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/factoryos/console-sync/internal/services"
)

// maxUploadBytes bounds documents accepted by the upload route.
const maxUploadBytes = 32 << 20

// Handlers exposes page sessions over JSON.
type Handlers struct {
	service *services.ConsoleService
	logger  *slog.Logger
}

// NewHandlers wires handlers to service.
func NewHandlers(service *services.ConsoleService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger}
}

// NewRouter builds the local HTTP API.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/pages", func(r chi.Router) {
		r.Get("/", h.listPages)
		r.Post("/", h.mountPage)

		r.Route("/{pageID}", func(r chi.Router) {
			r.Get("/", h.snapshot)
			r.Delete("/", h.unmountPage)

			r.Put("/filters/machine", h.selectMachine)
			r.Post("/filters/sources/{source}/toggle", h.toggleSource)
			r.Post("/graph/active", h.focusNode)

			r.Post("/chat", h.sendChat)

			r.Post("/alerts/refresh", h.refreshAlerts)
			r.Post("/alerts/{alertID}/select", h.selectAlert)
			r.Post("/alerts/{alertID}/resolve", h.resolveAlert)
			r.Post("/simulation", h.simulate)

			r.Post("/upload", h.upload)
			r.Post("/machines", h.createMachine)

			r.Post("/technicians", h.createTechnician)
			r.Post("/tasks", h.createTask)
		})
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
