package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("SERVER_URL", "https://bot.example.com")
	t.Setenv("API_KEY", "relayer-key")
}

func TestLoadFromEnvAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Fatalf("port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Relayer.URL != DefaultRelayerURL {
		t.Fatalf("relayer url = %q", cfg.Relayer.URL)
	}
	if cfg.Telegram.APIURL != DefaultTelegramAPIURL {
		t.Fatalf("api url = %q", cfg.Telegram.APIURL)
	}
	if got := cfg.RelayerTimeout(); got != 30*time.Second {
		t.Fatalf("relayer timeout = %s", got)
	}
	if cfg.JournalEnabled() {
		t.Fatal("journal must be disabled without DATABASE_URL")
	}
	if got, want := cfg.WebhookURL(), "https://bot.example.com/webhook/123:abc"; got != want {
		t.Fatalf("webhook url = %q, want %q", got, want)
	}
	if got := cfg.ListenAddr(); got != ":5001" {
		t.Fatalf("listen addr = %q", got)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
telegram:
  token: from-file
server:
  url: https://file.example.com/
  port: 9000
relayer:
  timeout_seconds: 5
logging:
  level: DEBUG
database:
  url: postgres://bot@localhost/bot?sslmode=disable
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q, env must win", cfg.Telegram.Token)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Relayer.TimeoutSeconds != 5 {
		t.Fatalf("timeout = %d", cfg.Relayer.TimeoutSeconds)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if !cfg.JournalEnabled() {
		t.Fatal("journal should be enabled")
	}
}

func TestNormalizeRejectsMissingRequired(t *testing.T) {
	cases := map[string]Config{
		"token": {
			Server:  ServerConfig{URL: "https://bot.example.com"},
			Relayer: RelayerConfig{APIKey: "k"},
		},
		"server url": {
			Telegram: TelegramConfig{Token: "t"},
			Relayer:  RelayerConfig{APIKey: "k"},
		},
		"api key": {
			Telegram: TelegramConfig{Token: "t"},
			Server:   ServerConfig{URL: "https://bot.example.com"},
		},
		"bad level": {
			Telegram: TelegramConfig{Token: "t"},
			Server:   ServerConfig{URL: "https://bot.example.com"},
			Relayer:  RelayerConfig{APIKey: "k"},
			Logging:  LoggingConfig{Level: "loud"},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			err := Normalize(&cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), "invalid config") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeNil(t *testing.T) {
	if err := Normalize(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
