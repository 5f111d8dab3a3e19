package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ServiceName    = "orderhub"
	ServiceVersion = "0.1.0"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`     // サーバーポート
	GoEnv    string `envconfig:"GO_ENV" default:"dev"`    // dev/prod/test
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug/info/warn/error

	// postgres か memory（memoryは再起動で消える）
	Store string `envconfig:"STORE" default:"postgres"`

	// DATABASE_URL があれば最優先で使う
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"orderhub"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	// カンマ区切り。空ならイベント送信しない
	KafkaBrokers        string        `envconfig:"KAFKA_BROKERS"`
	KafkaPublishTimeout time.Duration `envconfig:"KAFKA_PUBLISH_TIMEOUT" default:"3s"`

	// 空ならトレースは no-op
	OtelEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Loadは環境変数から読む（.envの読み込みはmain側）
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	//必須チェック
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT is required")
	}
	switch c.GoEnv {
	case "dev", "prod", "test":
	default:
		return fmt.Errorf("GO_ENV must be one of dev/prod/test: %q", c.GoEnv)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug/info/warn/error: %q", c.LogLevel)
	}
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE must be one of postgres/memory: %q", c.Store)
	}
	if c.Store == "postgres" && c.DatabaseURL == "" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresPort <= 0 {
			return fmt.Errorf("POSTGRES_PORT must be positive")
		}
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// Addr は ":8080" の形にそろえる
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) KafkaBrokerList() []string {
	brokers := []string{}
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
