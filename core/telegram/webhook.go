package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/profilebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// maxUpdateBytes bounds the size of a single webhook body.
const maxUpdateBytes = 1 << 20

// MessageHandler consumes the text of an inbound chat message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, chatID int64, text string) error
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(ctx context.Context, chatID int64, text string) error

// HandleMessage calls f.
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, chatID int64, text string) error {
	return f(ctx, chatID, text)
}

// WebhookHandler decodes Telegram updates and forwards message text to a
// MessageHandler. It always answers with an empty 200 so Telegram never
// redelivers an update.
type WebhookHandler struct {
	next MessageHandler
}

// NewWebhookHandler returns a handler forwarding messages to next.
func NewWebhookHandler(next MessageHandler) *WebhookHandler {
	return &WebhookHandler{next: next}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpdateBytes))
	if err != nil {
		logger.Warn(r.Context(), "tg", "update.read_fail",
			slog.String("status", "fail"),
			slog.String("err", logger.Redact(err)),
		)
		return
	}

	var upd tele.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		logger.Warn(r.Context(), "tg", "update.decode_fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Int("payload", len(body)),
		)
		return
	}

	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		logger.Debug(r.Context(), "tg", "update.skip",
			slog.String("status", "skip"),
			slog.Int("update_id", upd.ID),
		)
		return
	}

	// Outbound calls made while handling the update must finish even if
	// Telegram drops the connection.
	ctx := context.WithoutCancel(r.Context())
	ctx = logger.WithRID(ctx, logger.BuildRID(upd.ID, msg.Chat.ID))
	ctx = logger.WithUpdateMeta(ctx, upd.ID, msg.Chat.ID)
	ctx = logger.WithHandler(ctx, "message")

	start := time.Now()
	err = h.next.HandleMessage(ctx, msg.Chat.ID, msg.Text)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelError, "update.handled", append(attrs, slog.Any("err", err))...)
		return
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "update.handled", attrs...)
}

// HealthHandler answers liveness probes.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}
