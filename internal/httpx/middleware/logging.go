package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"markdesk-server/internal/logger"
	"markdesk-server/internal/observability"
)

var accessLog = logger.WithComponent("ACCESS")

// Observe logs every request and records it in metrics under its chi route pattern,
// so "/api/posts/a.md" and "/api/posts/b.md" share one series.
func Observe(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			if metrics != nil {
				metrics.RecordHTTPRequest(r.Method, route, status, elapsed)
			}

			l := accessLog.WithFields(map[string]interface{}{
				"request_id": chimw.GetReqID(r.Context()),
				"status":     status,
				"bytes":      ww.BytesWritten(),
			})
			msg := "%s %s (%s)"
			switch {
			case status >= http.StatusInternalServerError:
				l.Error(msg, r.Method, r.URL.Path, elapsed)
			case status >= http.StatusBadRequest:
				l.Warn(msg, r.Method, r.URL.Path, elapsed)
			default:
				l.Debug(msg, r.Method, r.URL.Path, elapsed)
			}
		})
	}
}

// Recover turns a panic into a 500 and reports it to Sentry, leaving
// http.ErrAbortHandler to net/http.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			reportPanic(r, rec)
			if r.Header.Get("Connection") != "Upgrade" {
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
