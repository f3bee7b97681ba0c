package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/m3rciful/profilebot/core/bootstrap"
	corecmd "github.com/m3rciful/profilebot/core/cmd"
	coreconfig "github.com/m3rciful/profilebot/core/config"
	"github.com/m3rciful/profilebot/core/logger"
	coretelegram "github.com/m3rciful/profilebot/core/telegram"
	"github.com/m3rciful/profilebot/core/telegram/sender"
	"github.com/m3rciful/profilebot/core/telegram/state"
	"github.com/m3rciful/profilebot/migrations"
	"github.com/m3rciful/profilebot/profile"
	"github.com/m3rciful/profilebot/relayer"

	tele "gopkg.in/telebot.v4"
)

type app struct {
	cfg     *coreconfig.Config
	infra   *bootstrap.Result
	bot     *tele.Bot
	machine *profile.Machine
}

func newApp(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}
	a, err := buildApp(cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

// buildApp wires the bot, the relayer client and the state machine on top
// of initialized infrastructure.
func buildApp(cfg *coreconfig.Config, infra *bootstrap.Result) (*app, error) {
	bot, err := coretelegram.NewBot(cfg, coretelegram.BuildHTTPClient(coretelegram.HTTPClientOptions{
		Retries: cfg.Telegram.SendRetries,
	}))
	if err != nil {
		return nil, err
	}

	creator := relayer.NewClient(cfg.Relayer.URL, cfg.Relayer.APIKey,
		coretelegram.BuildHTTPClient(coretelegram.HTTPClientOptions{Timeout: cfg.RelayerTimeout()}))

	opts := profile.Options{
		Store:     state.NewMemoryStore(),
		Messenger: sender.New(bot),
		Creator:   creator,
	}
	if infra != nil && infra.DB != nil {
		opts.Journal = profile.NewPGJournal(infra.DB)
	}
	machine, err := profile.NewMachine(opts)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	return &app{cfg: cfg, infra: infra, bot: bot, machine: machine}, nil
}

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		Config:  a.cfg,
		Handler: a.machine,
		OnStart: a.register,
		OnStop: func(context.Context) error {
			return a.infra.Close()
		},
	}, nil
}

// register announces the webhook and the command menu. Failures are logged
// and the server keeps running, so a later restart can retry.
func (a *app) register(ctx context.Context, _ net.Addr) error {
	if err := coretelegram.RegisterWebhook(ctx, a.bot, a.cfg.WebhookURL()); err != nil {
		logger.LogEvent(ctx, logger.TWire, slog.LevelWarn, "startup.degraded",
			slog.String("status", "fail"),
			slog.String("err", logger.Redact(err)),
		)
	}

	reg := coretelegram.NewRegistry()
	reg.RegisterCommand(profile.StartCommand, coretelegram.Command{Description: "Create a Universal Profile"})
	if err := coretelegram.SetupCommands(ctx, a.bot, reg); err != nil {
		logger.LogEvent(ctx, logger.TWire, slog.LevelWarn, "startup.degraded",
			slog.String("status", "fail"),
			slog.String("err", logger.Redact(err)),
		)
	}
	return nil
}
