// Package httpapi exposes a read-only admin API over a plugin host.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alexisbeaulieu97/dashhost/internal/application/host"
	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/metrics"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

const shutdownTimeout = 5 * time.Second

// Options configures the admin API.
type Options struct {
	Logger  ports.Logger
	Metrics ports.MetricsCollector
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Server serves plugin state as JSON.
type Server struct {
	host    *host.Host
	logger  ports.Logger
	metrics ports.MetricsCollector
	handler http.Handler
}

// PluginView is the JSON shape of one registered plugin.
type PluginView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Version      string   `json:"version,omitempty"`
	Author       string   `json:"author,omitempty"`
	Category     string   `json:"category,omitempty"`
	State        string   `json:"state"`
	Dependencies []string `json:"dependencies,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	Active       bool     `json:"active"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServer builds the router for h.
func NewServer(h *host.Host, opts Options) *Server {
	s := &Server{
		host:    h,
		logger:  logging.OrNoOp(opts.Logger).With("component", "httpapi"),
		metrics: opts.Metrics,
	}

	// Routes stay on the root router: subrouter routes inherit the prefix
	// matcher, which clears a method mismatch recorded by a sibling.
	router := mux.NewRouter()
	router.HandleFunc("/api/plugins", s.listPlugins).Methods(http.MethodGet)
	router.HandleFunc("/api/plugins/{id}", s.getPlugin).Methods(http.MethodGet)
	router.HandleFunc("/api/nav", s.getNav).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.getStats).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	if opts.MetricsHandler != nil {
		router.Handle("/metrics", opts.MetricsHandler).Methods(http.MethodGet)
	}
	router.Use(s.correlate, s.instrument)

	s.handler = otelhttp.NewHandler(router, "dashhost.admin")
	return s
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "admin api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve admin api: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown admin api: %w", err)
		}
		return nil
	}
}

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	registry := s.host.Registry()
	descriptors := registry.List()
	query := r.URL.Query()
	if category := query.Get("category"); category != "" {
		descriptors = registry.ListByCategory(category)
	}
	if search := query.Get("search"); search != "" {
		matches := make(map[string]bool)
		for _, d := range registry.Search(search) {
			matches[d.ID] = true
		}
		filtered := descriptors[:0:0]
		for _, d := range descriptors {
			if matches[d.ID] {
				filtered = append(filtered, d)
			}
		}
		descriptors = filtered
	}

	views := make([]PluginView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, s.view(d))
	}
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"plugins": views,
		"count":   len(views),
	})
}

func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, ok := s.host.Registry().Get(id)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, domainplugin.ErrCodeNotFound, fmt.Sprintf("plugin %q not registered", id))
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.view(d))
}

func (s *Server) getNav(w http.ResponseWriter, r *http.Request) {
	entries := s.host.Projection().Entries(s.host.Tracker().ActiveID())
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"active":  s.host.Tracker().ActiveID(),
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.host.Registry().Stats())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) view(d *domainplugin.Descriptor) PluginView {
	state, _ := s.host.Registry().State(d.ID)
	return PluginView{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		Version:      d.Version,
		Author:       d.Author,
		Category:     d.Category,
		State:        state.String(),
		Dependencies: d.Config.Dependencies,
		Permissions:  d.Config.Permissions,
		Active:       s.host.Tracker().ActiveID() == d.ID,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn(r.Context(), "encode response failed", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code domainplugin.ErrorCode, msg string) {
	s.writeJSON(w, r, status, errorBody{Code: string(code), Message: msg})
}

// correlate attaches the request's X-Correlation-ID, or a fresh one, to the
// request context.
func (s *Server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get("X-Correlation-ID"); id != "" {
			ctx = logging.WithCorrelationID(ctx, id)
		}
		ctx, id := logging.EnsureCorrelationID(ctx)
		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency labelled by route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)
		s.logger.Debug(r.Context(), "admin request", "method", r.Method, "route", route, "status", rw.status, "duration", elapsed)
		if s.metrics == nil {
			return
		}
		s.metrics.IncCounter(r.Context(), metrics.HTTPRequestsTotal, map[string]string{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(rw.status),
		})
		s.metrics.ObserveHistogram(r.Context(), metrics.HTTPRequestDuration, elapsed.Seconds(), map[string]string{
			"method": r.Method,
			"route":  route,
		})
	})
}
