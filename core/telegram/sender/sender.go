package sender

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/profilebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ErrNoBot is returned when a Sender was built without a bot.
var ErrNoBot = errors.New("telegram sender: no bot configured")

// Bot is the subset of *tele.Bot used to deliver messages.
type Bot interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Sender delivers text messages to chats. Delivery is best-effort: the
// error is logged here and returned so callers may decide to ignore it.
type Sender struct {
	bot Bot
}

// New wraps bot into a Sender.
func New(bot Bot) *Sender {
	return &Sender{bot: bot}
}

// Send posts text to chatID with an optional reply markup.
func (s *Sender) Send(ctx context.Context, chatID int64, text string, markup ...*tele.ReplyMarkup) error {
	if s == nil || s.bot == nil {
		return ErrNoBot
	}

	var opts []interface{}
	if len(markup) > 0 && markup[0] != nil {
		opts = append(opts, markup[0])
	}

	start := time.Now()
	_, err := s.bot.Send(tele.ChatID(chatID), text, opts...)
	attrs := []slog.Attr{
		slog.Int64("chat_id", chatID),
		slog.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("err", logger.Redact(err)),
			slog.String("error_kind", classifyError(err)),
		)
		logger.Warn(ctx, "tg.sender", "send.fail", attrs...)
		return err
	}
	logger.Debug(ctx, "tg.sender", "send.success", append(attrs, slog.String("status", "ok"))...)
	return nil
}
