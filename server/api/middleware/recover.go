package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/compose-network/bolt/internal/boltmetrics"
)

// Recover guards the operational API (health/ready/jobs/metrics) from panics
// triggered while serving a request — e.g. a malformed job history entry —
// and logs the stack trace instead of taking the whole process down.
// metrics may be nil when metrics reporting is disabled.
func Recover(log zerolog.Logger, metrics *boltmetrics.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if metrics != nil {
						metrics.APIPanics.Inc()
					}
					log.Error().
						Interface("error", rec).
						Str("path", r.URL.Path).
						Bytes("stack", debug.Stack()).
						Msg("bolt_api_panic")
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
