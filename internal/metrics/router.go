// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/utils"
	"github.com/MKhiriev/go-checkin/models"
)

const traceIDHeader = "X-Trace-ID"

// Health is the body of GET /healthz.
type Health struct {
	Online    bool       `json:"online"`
	Syncing   bool       `json:"syncing"`
	QueueSize int        `json:"queue_size"`
	Tickets   int        `json:"tickets"`
	CachedAt  *time.Time `json:"cached_at,omitempty"`
}

// HealthFunc collects the current health summary.
type HealthFunc func(ctx context.Context) Health

type buildInfo struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Commit  string `json:"commit"`
}

type router struct {
	health HealthFunc
	build  models.AppBuildInfo
	logger *logger.Logger
}

// NewRouter serves /metrics from gatherer, /healthz from health and
// /version from build.
func NewRouter(gatherer prometheus.Gatherer, health HealthFunc, build models.AppBuildInfo, log *logger.Logger) *chi.Mux {
	h := &router{health: health, build: build, logger: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.withTraceID, h.withLogging)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", h.getHealth)
	r.Get("/version", h.getVersion)

	return r
}

func (h *router) getHealth(w http.ResponseWriter, r *http.Request) {
	health := h.health(r.Context())

	status := http.StatusOK
	if !health.Online {
		status = http.StatusServiceUnavailable
	}

	if _, err := utils.WriteJSON(w, health, status); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "router.getHealth").Msg("failed to write health")
	}
}

func (h *router) getVersion(w http.ResponseWriter, r *http.Request) {
	info := buildInfo{
		Version: h.build.BuildVersion(),
		Date:    h.build.BuildDate(),
		Commit:  h.build.BuildCommit(),
	}
	if _, err := utils.WriteJSON(w, info, http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "router.getVersion").Msg("failed to write version")
	}
}

func (h *router) withTraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		l := h.logger.GetChildLogger()
		l.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("trace_id", traceID)
		})
		r = r.WithContext(l.WithContext(r.Context()))

		w.Header().Set(traceIDHeader, traceID)
		next.ServeHTTP(w, r)
	})
}

func (h *router) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.FromRequest(r).Debug().
			Str("uri", r.RequestURI).
			Str("method", r.Method).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Int("size", ww.BytesWritten()).
			Send()
	})
}
