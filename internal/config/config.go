package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration, loaded from the environment.
type Config struct {
	// Remote marketplace API.
	APIBaseURL string `env:"CHATSYNC_API_URL" envDefault:"http://localhost:5000/api"`
	PushURL    string `env:"CHATSYNC_PUSH_URL" envDefault:"ws://localhost:5000/ws"`
	Token      string `env:"CHATSYNC_TOKEN"`

	// Session owner, as known to the remote API.
	UserID     string `env:"CHATSYNC_USER_ID"`
	UserName   string `env:"CHATSYNC_USER_NAME"`
	UserAvatar string `env:"CHATSYNC_USER_AVATAR"`

	// Sync behavior.
	PollInterval     time.Duration `env:"CHATSYNC_POLL_INTERVAL" envDefault:"30s"`
	RequestTimeout   time.Duration `env:"CHATSYNC_REQUEST_TIMEOUT" envDefault:"10s"`
	ReconnectBase    time.Duration `env:"CHATSYNC_RECONNECT_BASE" envDefault:"1s"`
	ReconnectMax     time.Duration `env:"CHATSYNC_RECONNECT_MAX" envDefault:"30s"`
	ReconnectRetries int           `env:"CHATSYNC_RECONNECT_RETRIES" envDefault:"5"`

	// Local facade.
	ListenAddr string `env:"CHATSYNC_LISTEN_ADDR" envDefault:":8086"`

	// Observability.
	AMQPURL      string `env:"CHATSYNC_AMQP_URL"`
	AMQPExchange string `env:"CHATSYNC_AMQP_EXCHANGE" envDefault:"chatsync.events"`
	OTLPEndpoint string `env:"CHATSYNC_OTLP_ENDPOINT"`
	Environment  string `env:"CHATSYNC_ENVIRONMENT" envDefault:"development"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
