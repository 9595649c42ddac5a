package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the runtime settings of the API server.
type Config struct {
	Port         string
	DatabaseDSN  string
	DatabaseName string
	JWTSecret    string
	RabbitMQURL  string
	LogLevel     string
	LogFormat    string
	CORSOrigins  []string
}

// ListenAddr returns the address passed to fiber's Listen.
func (c Config) ListenAddr() string {
	return ":" + c.Port
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("DATABASE_DSN", "file:taskboard.db?cache=shared")
	v.SetDefault("DATABASE_NAME", "taskboard")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
}

// Load reads configuration from the environment and, when present, a
// config file named "config" in the working directory.
func Load() (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds and validates a Config from an initialised viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:         strings.TrimPrefix(strings.TrimSpace(v.GetString("PORT")), ":"),
		DatabaseDSN:  v.GetString("DATABASE_DSN"),
		DatabaseName: v.GetString("DATABASE_NAME"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		RabbitMQURL:  v.GetString("RABBITMQ_URL"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		LogFormat:    v.GetString("LOG_FORMAT"),
		CORSOrigins:  splitList(v.GetString("CORS_ORIGINS")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if _, err := strconv.ParseUint(cfg.Port, 10, 16); err != nil {
		return Config{}, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}
	if cfg.DatabaseDSN == "" {
		return Config{}, errors.New("DATABASE_DSN is required")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
