package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/felixge/httpsnoop"

	"github.com/m3rciful/profilebot/core/logger"
)

var requestSeq atomic.Uint64

// Logging assigns a request id and logs one line per request once it is done.
// Successful requests are logged at debug level and sampled.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := "h" + strconv.FormatUint(requestSeq.Add(1), 36)
		ctx := logger.WithRID(r.Context(), rid)
		ctx = logger.WithLogger(ctx, logger.HTTP)

		start := time.Now()
		m := httpsnoop.CaptureMetrics(next, w, r.WithContext(ctx))

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", logger.RedactString(r.URL.Path)),
			slog.Int("http_code", m.Code),
			slog.Duration("duration", logger.Took(start)),
			slog.Int64("payload", m.Written),
		}
		switch {
		case m.Code >= http.StatusInternalServerError:
			logger.LogEvent(ctx, logger.HTTP, slog.LevelError, "request.done", append(attrs, slog.String("status", "error"))...)
		case m.Code >= http.StatusBadRequest:
			logger.LogEvent(ctx, logger.HTTP, slog.LevelWarn, "request.done", append(attrs, slog.String("status", "fail"))...)
		case logger.ShouldSampleDebug():
			logger.LogEvent(ctx, logger.HTTP, slog.LevelDebug, "request.done", append(attrs, slog.String("status", "ok"))...)
		}
	})
}

// Chain applies middlewares so that the first one is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
