package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/m3rciful/profilebot/core/logger"
)

// Recover catches panics in downstream handlers. The webhook contract is an
// empty 200 on every request, so a panic is logged and answered with 200 too.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context(), "http", "panic",
					slog.String("status", "error"),
					slog.String("path", logger.RedactString(r.URL.Path)),
					slog.Any("err", rec),
					slog.String("stack", string(debug.Stack())),
				)
				w.WriteHeader(http.StatusOK)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
