package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/docintake/internal/config"
	"github.com/kirillkom/docintake/internal/core/ports"
	"github.com/kirillkom/docintake/internal/observability/metrics"
)

const (
	metricsService = "api"

	// multipartOverhead leaves room for boundaries and part headers on top of
	// the file size limit.
	multipartOverhead int64 = 1 << 20
)

type Router struct {
	cfg       config.Config
	ingestor  ports.DocumentIngestor
	analytics ports.AnalyticsService
	documents ports.DocumentReader
	metrics   *metrics.HTTPServerMetrics
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(
	cfg config.Config,
	ingestor ports.DocumentIngestor,
	analytics ports.AnalyticsService,
	documents ports.DocumentReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		ingestor:  ingestor,
		analytics: analytics,
		documents: documents,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	return corsMiddleware(rt.routes(), rt.cfg.CORSAllowedOrigins)
}

func (rt *Router) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(metricsService, next)
		})
	}
	r.Use(func(next http.Handler) http.Handler {
		return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	r.Get("/healthz", rt.healthz)
	r.Get("/openapi.yaml", rt.openAPI)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Route("/v1/customers/{customer_id}", func(r chi.Router) {
		r.Post("/documents", rt.uploadDocument)
		r.Get("/documents", rt.listDocuments)
		r.Get("/documents/{document_hash}", rt.getDocument)
		r.Get("/documents/{document_hash}/content", rt.getDocumentContent)
		r.Get("/analytics", rt.analyze)
		r.Get("/analytics/report.xlsx", rt.analyticsReport)
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
