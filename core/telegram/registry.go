package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/m3rciful/profilebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Command describes an entry of the bot command menu.
type Command struct {
	Description string
	Hidden      bool
}

// Registry holds the commands published in the Telegram command menu.
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// RegisterCommand adds a command. Names must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd Command) {
	if r == nil || name == "" || cmd.Description == "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return
	}
	if !strings.HasPrefix(name, "/") {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "no_slash_prefix"),
		)
		return
	}
	if _, exists := r.commands[name]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
}

// ListCommands returns the commands sorted by name, optionally skipping hidden ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	if r == nil {
		return nil
	}
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && meta.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// API is the subset of *tele.Bot used for startup registration.
type API interface {
	SetWebhook(w *tele.Webhook) error
	SetCommands(opts ...interface{}) error
}

// RegisterWebhook points Telegram at publicURL.
func RegisterWebhook(ctx context.Context, bot API, publicURL string) error {
	if bot == nil {
		return fmt.Errorf("telegram: nil bot")
	}
	start := time.Now()
	err := bot.SetWebhook(&tele.Webhook{Endpoint: &tele.WebhookEndpoint{PublicURL: publicURL}})
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("public_url", logger.RedactString(publicURL)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.LogEvent(ctx, logger.TWire, slog.LevelError, "webhook.register", append(attrs, slog.String("err", logger.Redact(err)))...)
		return fmt.Errorf("telegram: set webhook: %w", err)
	}
	logger.LogEvent(ctx, logger.TWire, slog.LevelInfo, "webhook.register", attrs...)
	return nil
}

// SetupCommands publishes the visible commands of reg in the command menu.
func SetupCommands(ctx context.Context, bot API, reg *Registry) error {
	cmds := reg.ListCommands(true)
	if len(cmds) == 0 {
		return nil
	}
	if err := bot.SetCommands(cmds); err != nil {
		logger.LogEvent(ctx, logger.TWire, slog.LevelError, "register.commands",
			slog.String("status", "error"),
			slog.String("err", logger.Redact(err)),
		)
		return fmt.Errorf("telegram: set commands: %w", err)
	}
	logger.LogEvent(ctx, logger.TWire, slog.LevelInfo, "register.commands",
		slog.String("status", "ok"),
		slog.Int("count", len(cmds)),
	)
	return nil
}
