// Package sandbox serves the Base HTTP API on top of the in-memory mock so
// SDK clients can run against a local process.
package sandbox

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ratio1/detabase_sdk_go/internal/detaapi"
	"github.com/Ratio1/detabase_sdk_go/pkg/base"
	"github.com/Ratio1/detabase_sdk_go/pkg/base/mock"
)

// Option configures a Server.
type Option func(*Server)

// WithLatency delays every API request by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		s.latency = d
	}
}

// WithFailures injects failures into API requests.
func WithFailures(cfg FailConfig) Option {
	return func(s *Server) {
		s.fail = cfg
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry registers the server metrics on reg instead of a private
// registry. /metrics serves whatever reg gathers.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// Server is an http.Handler emulating the Base API.
type Server struct {
	store    *mock.Mock
	router   chi.Router
	latency  time.Duration
	fail     FailConfig
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics
}

// New builds a Server backed by store.
func New(store *mock.Mock, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.observe)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"bases": s.store.Bases()})
	})

	r.Route("/v1/{project}/{base}", func(r chi.Router) {
		r.Use(s.authorize, s.inject)
		r.Put("/items", s.handlePut)
		r.Post("/items", s.handleInsert)
		r.Get("/items/{key}", s.handleGet)
		r.Delete("/items/{key}", s.handleDelete)
		r.Patch("/items/{key}", s.handleUpdate)
		r.Post("/query", s.handleQuery)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErrors(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErrors(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (s *Server) backend(r *http.Request) base.Backend {
	return s.store.Base(chi.URLParam(r, "base"))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []base.Item `json:"items"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Items == nil {
		writeErrors(w, http.StatusBadRequest, "Missing items")
		return
	}
	resp, err := s.backend(r).PutItems(r.Context(), body.Items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusMultiStatus, resp)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Item base.Item `json:"item"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Item == nil {
		writeErrors(w, http.StatusBadRequest, "Missing item")
		return
	}
	stored, err := s.backend(r).InsertItem(r.Context(), body.Item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKey(w, r)
	if !ok {
		return
	}
	item, err := s.backend(r).GetItem(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKey(w, r)
	if !ok {
		return
	}
	if err := s.backend(r).DeleteItem(r.Context(), key); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKey(w, r)
	if !ok {
		return
	}
	payload := base.NewUpdatePayload()
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := s.backend(r).UpdateItem(r.Context(), key, payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"key":       key,
		"set":       payload.Set,
		"increment": payload.Increment,
		"append":    payload.Append,
		"prepend":   payload.Prepend,
		"delete":    payload.Delete,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req base.QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.backend(r).Query(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// itemKey returns the decoded {key} path segment.
func itemKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			writeErrors(w, http.StatusBadRequest, "Invalid key")
			return "", false
		}
		key = unescaped
	}
	if key == "" {
		writeErrors(w, http.StatusBadRequest, "Key is required")
		return "", false
	}
	return key, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeErrors(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var remote *base.RemoteError
	if errors.As(err, &remote) {
		writeErrors(w, remote.StatusCode, remote.Message)
		return
	}
	s.logger.Error("sandbox: request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeErrors(w, http.StatusInternalServerError, err.Error())
}

func writeErrors(w http.ResponseWriter, status int, messages ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(detaapi.EncodeError(messages...))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		writeErrors(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
