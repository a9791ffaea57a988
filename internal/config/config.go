package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	HTTP        HTTPConfig        `yaml:"http"`
	Notify      NotifyConfig      `yaml:"notify"`
	Kitchen     KitchenConfig     `yaml:"kitchen"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Client      ClientConfig      `yaml:"client"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// Migrate applies the embedded schema at startup.
	Migrate bool `yaml:"migrate"`
}

type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type NotifyConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	SubscriberBuffer  int           `yaml:"subscriber_buffer"`
	DispatchBuffer    int           `yaml:"dispatch_buffer"`
}

type KitchenConfig struct {
	// Timezone decides where a business day starts for ticket numbering.
	Timezone string `yaml:"timezone"`
}

type IdempotencyConfig struct {
	Window time.Duration `yaml:"window"`
}

// ClientConfig drives the client-side modes (sync, kitchen-board).
type ClientConfig struct {
	BaseURL        string        `yaml:"base_url"`
	VenueID        int64         `yaml:"venue_id"`
	ActorID        int64         `yaml:"actor_id"`
	QueuePath      string        `yaml:"queue_path"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	MaxRetries     int           `yaml:"max_retries"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	ProbeInterval  time.Duration `yaml:"probe_interval"`
}

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "comanda",
			Database: "comanda",
			Migrate:  true,
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			User: "guest",
		},
		HTTP: HTTPConfig{Port: 3000},
		Notify: NotifyConfig{
			HeartbeatInterval: 15 * time.Second,
			SubscriberBuffer:  32,
			DispatchBuffer:    1024,
		},
		Kitchen:     KitchenConfig{Timezone: "UTC"},
		Idempotency: IdempotencyConfig{Window: 24 * time.Hour},
		Client: ClientConfig{
			BaseURL:        "http://localhost:3000",
			QueuePath:      "comanda-queue.db",
			RetryDelay:     5 * time.Second,
			MaxRetries:     3,
			ReconnectDelay: 5 * time.Second,
			PollInterval:   20 * time.Second,
			ProbeInterval:  10 * time.Second,
		},
	}
}

// Load reads path over the defaults, then applies .env and COMANDA_* overrides.
// A missing file is not an error: defaults plus environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("COMANDA_LOG_LEVEL", &cfg.Log.Level)
	str("COMANDA_DB_HOST", &cfg.Database.Host)
	str("COMANDA_DB_USER", &cfg.Database.User)
	str("COMANDA_DB_PASSWORD", &cfg.Database.Password)
	str("COMANDA_DB_NAME", &cfg.Database.Database)
	str("COMANDA_RABBITMQ_HOST", &cfg.RabbitMQ.Host)
	str("COMANDA_RABBITMQ_USER", &cfg.RabbitMQ.User)
	str("COMANDA_RABBITMQ_PASSWORD", &cfg.RabbitMQ.Password)
	str("COMANDA_BASE_URL", &cfg.Client.BaseURL)

	if err := num("COMANDA_DB_PORT", &cfg.Database.Port); err != nil {
		return err
	}
	if err := num("COMANDA_RABBITMQ_PORT", &cfg.RabbitMQ.Port); err != nil {
		return err
	}
	return num("COMANDA_HTTP_PORT", &cfg.HTTP.Port)
}

// Location resolves the kitchen timezone, falling back to UTC.
func (c KitchenConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
