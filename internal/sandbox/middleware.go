package sandbox

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Ratio1/detabase_sdk_go/pkg/base"
)

// FailConfig injects failures into a fraction of API requests.
type FailConfig struct {
	Rate float64
	Code int
}

// ParseFailConfig parses "rate=<float>,code=<httpStatus>". An empty string
// disables failure injection.
func ParseFailConfig(raw string) (FailConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return FailConfig{}, nil
	}
	cfg := FailConfig{Code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return FailConfig{}, fmt.Errorf("sandbox: invalid fail segment %q", part)
		}
		value := strings.TrimSpace(keyVal[1])
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return FailConfig{}, fmt.Errorf("sandbox: fail rate: %w", err)
			}
			if rate < 0 || rate > 1 {
				return FailConfig{}, fmt.Errorf("sandbox: fail rate %v outside [0, 1]", rate)
			}
			cfg.Rate = rate
		case "code":
			code, err := strconv.Atoi(value)
			if err != nil {
				return FailConfig{}, fmt.Errorf("sandbox: fail code: %w", err)
			}
			if code < 400 || code > 599 {
				return FailConfig{}, fmt.Errorf("sandbox: fail code %d is not an error status", code)
			}
			cfg.Code = code
		default:
			return FailConfig{}, fmt.Errorf("sandbox: unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}

// observe records metrics and a log line for every request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := statusOf(ww)
		elapsed := time.Since(start)
		s.metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.metrics.duration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		s.logger.Info("sandbox: request",
			"method", r.Method, "path", r.URL.Path, "status", status, "bytes", ww.BytesWritten(), "elapsed", elapsed)
	})
}

// authorize requires an X-API-Key whose project id matches the path.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID, err := base.ParseProjectKey(r.Header.Get(base.APIKeyHeader))
		if err != nil || projectID != chi.URLParam(r, "project") {
			writeErrors(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// inject applies the configured latency and failure rate.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-r.Context().Done():
				return
			}
		}
		if s.fail.Rate > 0 && rand.Float64() < s.fail.Rate {
			code := s.fail.Code
			if code == 0 {
				code = http.StatusInternalServerError
			}
			s.metrics.injected.Inc()
			writeErrors(w, code, "failure injected")
			return
		}
		next.ServeHTTP(w, r)
	})
}
