package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/umwero/pkg/metrics"
)

// MetricsMiddleware records request count, latency and failures for endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := float64(time.Since(start).Microseconds()) / 1000

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, elapsed)

		if kind, severity, failed := classifyStatus(rec.status); failed {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
			metrics.RecordErrorByType(kind, severity)
		}
	}
}

// classifyStatus names the failure class and severity of an HTTP status.
func classifyStatus(status int) (kind, severity string, failed bool) {
	switch {
	case status == http.StatusServiceUnavailable:
		return "unavailable", "high", true
	case status >= http.StatusInternalServerError:
		return "server_error", "high", true
	case status == http.StatusNotFound:
		return "not_found", "medium", true
	case status >= http.StatusBadRequest:
		return "client_error", "medium", true
	}
	return "", "", false
}

// statusRecorder remembers the first status a handler sends.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.written {
		s.status = code
		s.written = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.written = true
	return s.ResponseWriter.Write(b)
}
