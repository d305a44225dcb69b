package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/wordgraph/pkg/metrics"
)

// instrument records request count, latency and, for failures, the error
// code the handler answered with under the endpoint name.
func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		status := strconv.Itoa(rec.status)
		ms := float64(time.Since(start).Microseconds()) / 1000
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, ms)

		if rec.status < http.StatusBadRequest {
			return
		}
		code := rec.code
		if code == "" {
			// Answered by http.NotFound rather than writeError.
			code = "http_" + status
		}
		metrics.RecordErrorByComponent("http_"+endpoint, code)
	}
}

// statusRecorder keeps the status and the JSON error code of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	code   string
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// noteErrorCode tags w with code if it is being instrumented.
func noteErrorCode(w http.ResponseWriter, code string) {
	if s, ok := w.(*statusRecorder); ok {
		s.code = code
	}
}
