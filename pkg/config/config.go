package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/postgresql"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/redis"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/validation"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and an optional .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return errors.NewTracer("failed to parse config").Wrap(err)
	}

	return nil
}

// Config holds the configuration for the exchange process.
type Config struct {
	App        AppConfig         `envPrefix:"APP_"`
	Redis      redis.Config      `envPrefix:"REDIS_"`
	Postgres   postgresql.Config `envPrefix:"POSTGRES_"`
	Kafka      KafkaConfig       `envPrefix:"KAFKA_"`
	Settlement SettlementConfig  `envPrefix:"SETTLEMENT_"`
	Book       BookConfig        `envPrefix:"BOOK_"`
	Publisher  PublisherConfig   `envPrefix:"PUBLISHER_"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Name             string        `env:"NAME" envDefault:"rtcrypto-exchange"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	Symbols          []string      `env:"SYMBOLS" envSeparator:"," envDefault:"BTC-USD" validate:"required,min=1,dive,required"`
	QueueSize        int           `env:"QUEUE_SIZE" envDefault:"1024" validate:"gt=0"`
	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
	AllowedOrigins   []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// KafkaConfig holds the order intake stream and the trade topic.
type KafkaConfig struct {
	Brokers    []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	OrderTopic string   `env:"ORDER_TOPIC" envDefault:"orders"`
	GroupID    string   `env:"GROUP_ID" envDefault:"matching-engine"`
	TradeTopic string   `env:"TRADE_TOPIC" envDefault:"trade-executed"`
	// ConsumeOrders turns on the Kafka order consumer next to the websocket and REST intake.
	ConsumeOrders bool `env:"CONSUME_ORDERS" envDefault:"false"`
}

// SettlementConfig holds the settlement worker pool and wallet store settings.
type SettlementConfig struct {
	Workers     int           `env:"WORKERS" envDefault:"4" validate:"gt=0"`
	QueueSize   int           `env:"QUEUE_SIZE" envDefault:"4096" validate:"gt=0"`
	LockTimeout time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	Store       string        `env:"STORE" envDefault:"postgres" validate:"oneof=postgres memory"`
}

// BookConfig selects the priority index backing the order books.
type BookConfig struct {
	Index     string `env:"INDEX" envDefault:"redis" validate:"oneof=redis memory"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:""`
}

// PublisherConfig selects where trade events go.
type PublisherConfig struct {
	Driver  string `env:"DRIVER" envDefault:"redis" validate:"oneof=redis kafka"`
	Channel string `env:"CHANNEL" envDefault:"trade:executed" validate:"required"`
}

// Validate checks the option sets that env tags cannot express.
func (c *Config) Validate() error {
	return validation.Struct(c, errors.GeneralBadRequestError)
}
