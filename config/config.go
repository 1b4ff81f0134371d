/*
Package config loads the rebate engine configuration.

SOURCES (later wins):
  1. Defaults set in code
  2. config.yaml in ".", "./config" or the directories passed to New
  3. Environment variables prefixed REBATE_ ("selector.mode" -> REBATE_SELECTOR_MODE)

  A .env file in the working directory is loaded into the environment first
  (joho/godotenv). Variables already set in the process are not overridden.

EXAMPLE config.yaml:
  server:
    address: ":8080"
  storage:
    driver: sqlite
    path: ./data/rebates.db
  selector:
    mode: determined
  kafka:
    enabled: true
    brokers: ["localhost:9092"]
*/
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "REBATE"

type Configuration struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Selector SelectorConfig `mapstructure:"selector" validate:"required"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logging  LoggingConfig  `mapstructure:"logging" validate:"required"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory sqlite"`
	Path   string `mapstructure:"path" validate:"required_if=Driver sqlite"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type SelectorConfig struct {
	Mode string `mapstructure:"mode" validate:"required,oneof=direct determined"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `mapstructure:"topic" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// New reads configuration from defaults, config.yaml and the environment.
// Extra directories are searched for config.yaml before the defaults.
func New(configPaths ...string) (*Configuration, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	if len(configPaths) == 0 {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.WithHint(errors.Wrap(err, "invalid configuration"),
			"check config.yaml and REBATE_* environment variables")
	}
	return nil
}

// GetDefaultConfig returns the configuration used when nothing is overridden.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:   ServerConfig{Address: ":8080", ShutdownTimeout: 10 * time.Second},
		Storage:  StorageConfig{Driver: "sqlite", Path: "./data/rebates.db"},
		Cache:    CacheConfig{Enabled: true, TTL: 5 * time.Minute},
		Selector: SelectorConfig{Mode: "direct"},
		Kafka:    KafkaConfig{Topic: "rebate.calculations"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("selector.mode", d.Selector.Mode)
	v.SetDefault("kafka.enabled", d.Kafka.Enabled)
	_ = v.BindEnv("kafka.brokers", EnvPrefix+"_KAFKA_BROKERS")
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("logging.level", d.Logging.Level)
}
