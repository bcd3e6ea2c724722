package config_test

import (
	"testing"

	"github.com/Pandnak/dancers-matcher/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dancers")
	t.Setenv("JWT_SECRET_KEY", "secret")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.ServerPort)
		assert.Empty(t, cfg.WSAllowedOrigins)
		assert.False(t, cfg.PhotoStorageConfigured())
	})

	t.Run("ws origins parsed from comma-separated list", func(t *testing.T) {
		t.Setenv("WS_ALLOWED_ORIGINS", "https://dancers.example, https://admin.dancers.example ,")

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://dancers.example",
			"https://admin.dancers.example",
		}, cfg.WSAllowedOrigins)
	})

	t.Run("invalid port", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "70000")

		_, err := config.Load()
		assert.Error(t, err)
	})
}
