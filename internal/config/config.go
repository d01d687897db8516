// Package config provides configuration management for the ETL pipeline.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the pipeline.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Twitch   TwitchConfig
	ETL      ETLConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// TwitchConfig contains Helix API credentials and endpoints.
type TwitchConfig struct {
	ClientID          string
	AccessToken       string
	BaseURL           string
	AuthURL           string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
}

// ETLConfig contains pipeline tuning knobs and seed inputs.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ETLConfig struct {
	WorkDir       string
	SeedLogins    []string
	SeedGameIDs   []string
	PageSize      int
	MaxPages      int
	MaxRecords    int
	BatchCap      int
	Concurrency   int
	MaxRetries    int
	RetryDelay    time.Duration
	LoadBatchSize int
	TopGamesLimit int
	VideoPagesPer int
	ClipPagesPer  int
	RunTimeout    time.Duration
	PublishReport bool
	StatusServer  bool
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RabbitMQConfig contains RabbitMQ connection and routing configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// ServerConfig contains status server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Twitch API
	viper.SetDefault("twitch.baseurl", "https://api.twitch.tv/helix")
	viper.SetDefault("twitch.authurl", "https://id.twitch.tv/oauth2")
	viper.SetDefault("twitch.requesttimeout", 30*time.Second)
	viper.SetDefault("twitch.requestspersecond", 10.0)
	viper.SetDefault("twitch.burst", 10)

	// ETL
	viper.SetDefault("etl.workdir", "./data")
	viper.SetDefault("etl.seedlogins", []string{})
	viper.SetDefault("etl.seedgameids", []string{})
	viper.SetDefault("etl.pagesize", 100)
	viper.SetDefault("etl.maxpages", 10)
	viper.SetDefault("etl.maxrecords", 1000)
	viper.SetDefault("etl.batchcap", 100)
	viper.SetDefault("etl.concurrency", 20)
	viper.SetDefault("etl.maxretries", 3)
	viper.SetDefault("etl.retrydelay", 5*time.Second)
	viper.SetDefault("etl.loadbatchsize", 500)
	viper.SetDefault("etl.topgameslimit", 50)
	viper.SetDefault("etl.videopagesper", 2)
	viper.SetDefault("etl.clippagesper", 1)
	viper.SetDefault("etl.runtimeout", 15*time.Minute)
	viper.SetDefault("etl.publishreport", false)
	viper.SetDefault("etl.statusserver", false)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "twitch_analytics")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// RabbitMQ
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "twitch.etl")
	viper.SetDefault("rabbitmq.queue", "twitch.etl.reports")
	viper.SetDefault("rabbitmq.routingkey", "etl.run.completed")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
