package metrics

import (
	"net/http"
	"time"
)

// statusWriter records the status code written by the handler so the
// middleware can label the request counter after the fact.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments a handler chain with request count,
// latency, and in-flight gauges from the registry.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			reg.RecordRequest(r.Method, r.URL.Path, sw.status, time.Since(start).Seconds())
		})
	}
}
