package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("JWT_SECRET", "s3cret")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, ":5000", cfg.ListenAddr())
	assert.Equal(t, "taskboard", cfg.DatabaseName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
}

func TestFromViperRequiresSecret(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	_, err := FromViper(v)
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestFromViperPort(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("JWT_SECRET", "s3cret")

	v.Set("PORT", ":8080")
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr())

	v.Set("PORT", "http")
	_, err = FromViper(v)
	assert.Error(t, err)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PORT", "7001")
	t.Setenv("DATABASE_DSN", "memory")
	t.Setenv("CORS_ORIGINS", " https://tasks.example.com , ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "7001", cfg.Port)
	assert.Equal(t, "memory", cfg.DatabaseDSN)
	assert.Equal(t, []string{"https://tasks.example.com"}, cfg.CORSOrigins)
}
