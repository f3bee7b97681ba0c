package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/profilebot/core/config"
	"github.com/m3rciful/profilebot/core/logger"
	"github.com/m3rciful/profilebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// RunOptions controls the behaviour of Run.
type RunOptions struct {
	Config  *coreconfig.Config
	Handler MessageHandler

	// Listener overrides the listener built from the config.
	Listener net.Listener

	// OnStart runs once the listener accepts connections.
	OnStart func(ctx context.Context, addr net.Addr) error
	OnStop  func(ctx context.Context) error
}

// NewBot builds an offline bot client: updates arrive through the webhook
// server, the bot is only used for outbound API calls.
func NewBot(cfg *coreconfig.Config, client *http.Client) (*tele.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		URL:     cfg.Telegram.APIURL,
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

// NewMux routes the webhook path and the liveness probe.
func NewMux(webhookPath string, h MessageHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST "+webhookPath, NewWebhookHandler(h))
	mux.HandleFunc("GET /healthz", HealthHandler)
	return mux
}

// Run serves the webhook until ctx is done.
func Run(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.Handler == nil {
		return fmt.Errorf("telegram: nil message handler")
	}
	cfg := opts.Config

	ln := opts.Listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", cfg.ListenAddr()); err != nil {
			return fmt.Errorf("telegram: listen %s: %w", cfg.ListenAddr(), err)
		}
	}

	srv := &http.Server{
		Handler:           middleware.Chain(NewMux(cfg.WebhookPath(), opts.Handler), middleware.Logging, middleware.Recover),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode",
		slog.String("event", "mode"),
		slog.String("mode", "webhook"),
		slog.String("listen", ln.Addr().String()),
		slog.String("public_url", logger.RedactString(cfg.WebhookURL())),
	)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, ln.Addr()); err != nil {
			_ = srv.Close()
			return err
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = fmt.Errorf("telegram: shutdown: %w", err)
		}
		<-serveErr
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("telegram: serve: %w", err)
		}
	}

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx)); err != nil && runErr == nil {
			runErr = err
		}
	}

	logger.TG.LogAttrs(ctx, slog.LevelInfo, "stopped",
		slog.String("event", "stop"),
		slog.String("status", logger.Status(runErr)),
	)
	return runErr
}
