package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the webhook listener port used when PORT is unset.
	DefaultPort = 5001
	// DefaultTelegramAPIURL is the public Bot API endpoint.
	DefaultTelegramAPIURL = "https://api.telegram.org"
	// DefaultRelayerURL is the LUKSO testnet universal profile relayer endpoint.
	DefaultRelayerURL = "https://relayer-api.testnet.lukso.network/v1/relayer/universal-profile"
	// DefaultRelayerTimeoutSeconds bounds a single relayer call.
	DefaultRelayerTimeoutSeconds = 30
	// DefaultDBMaxConnections sizes the journal connection pool.
	DefaultDBMaxConnections = 5

	webhookPathPrefix = "/webhook/"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token  string `yaml:"token" envconfig:"TOKEN" validate:"required"`
	APIURL string `yaml:"api_url" envconfig:"TELEGRAM_API_URL" validate:"required,url"`
	// SendRetries is the number of transport-level retries on transient dial errors; 0 disables them.
	SendRetries int `yaml:"send_retries" envconfig:"TELEGRAM_SEND_RETRIES" validate:"gte=0,lte=5"`
}

// ServerConfig specifies the inbound webhook listener.
type ServerConfig struct {
	URL    string `yaml:"url" envconfig:"SERVER_URL" validate:"required,url"`
	Listen string `yaml:"listen" envconfig:"LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
}

// RelayerConfig configures the profile creation API.
type RelayerConfig struct {
	URL            string `yaml:"url" envconfig:"RELAYER_URL" validate:"required,url"`
	APIKey         string `yaml:"api_key" envconfig:"API_KEY" validate:"required"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"RELAYER_TIMEOUT_SECONDS" validate:"gte=0"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT" validate:"omitempty,oneof=json kv text pretty"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	File        string `yaml:"file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// DatabaseConfig enables the optional submission journal. An empty URL disables it.
type DatabaseConfig struct {
	URL            string `yaml:"url" envconfig:"DATABASE_URL"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS" validate:"gte=0"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Server   ServerConfig   `yaml:"server"`
	Relayer  RelayerConfig  `yaml:"relayer"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
}

// Load reads configuration from an optional YAML file and environment variables.
// A missing file is not an error; every setting can come from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Normalize applies defaults and validates required configuration fields.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = DefaultTelegramAPIURL
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Relayer.URL == "" {
		cfg.Relayer.URL = DefaultRelayerURL
	}
	if cfg.Relayer.TimeoutSeconds == 0 {
		cfg.Relayer.TimeoutSeconds = DefaultRelayerTimeoutSeconds
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = DefaultDBMaxConnections
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WebhookPath is the secret path the webhook is served at.
func (c *Config) WebhookPath() string {
	return webhookPathPrefix + c.Telegram.Token
}

// WebhookURL is the public URL registered with Telegram.
func (c *Config) WebhookURL() string {
	return strings.TrimRight(c.Server.URL, "/") + c.WebhookPath()
}

// ListenAddr is the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Listen, c.Server.Port)
}

// RelayerTimeout returns the relayer call timeout.
func (c *Config) RelayerTimeout() time.Duration {
	return time.Duration(c.Relayer.TimeoutSeconds) * time.Second
}

// JournalEnabled reports whether submissions should be recorded in Postgres.
func (c *Config) JournalEnabled() bool {
	return strings.TrimSpace(c.Database.URL) != ""
}
