package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShipCreekGroup/email-parser/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 180*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, 262144, cfg.Limits.MaxTextBytes)
	assert.Equal(t, "gemini", cfg.Parser.Provider)
	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:3000")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("EMAILPARSER_SERVER_PORT", ":9090")
	t.Setenv("EMAILPARSER_PARSER_PROVIDER", "openai")
	t.Setenv("EMAILPARSER_PARSER_API_KEY", "flat-key")
	t.Setenv("EMAILPARSER_LIMITS_MAX_TEXT_BYTES", "1024")
	t.Setenv("EMAILPARSER_CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Parser.Provider)
	assert.Equal(t, 1024, cfg.Limits.MaxTextBytes)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_PlatformPortFallback(t *testing.T) {
	t.Setenv("PORT", "7777")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Port)
}

func TestParserConfig_PrimaryFallsBackToFlat(t *testing.T) {
	p := &config.ParserConfig{
		Provider:     "gemini",
		APIKey:       "flat-key",
		DefaultModel: "gemini-2.0-flash",
		TimeoutSecs:  60,
	}

	primary := p.PrimaryConfig()
	assert.Equal(t, "gemini", primary.Provider)
	assert.Equal(t, "flat-key", primary.APIKey)
	assert.Nil(t, p.SecondaryConfig())
}

func TestParserConfig_MultiProvider(t *testing.T) {
	t.Setenv("EMAILPARSER_PARSER_PRIMARY_PROVIDER", "claude")
	t.Setenv("EMAILPARSER_PARSER_PRIMARY_API_KEY", "claude-key")
	t.Setenv("EMAILPARSER_PARSER_SECONDARY_PROVIDER", "gemini")
	t.Setenv("EMAILPARSER_PARSER_SECONDARY_API_KEY", "gemini-key")

	cfg, err := config.Load()
	require.NoError(t, err)

	primary := cfg.Parser.PrimaryConfig()
	require.NotNil(t, primary)
	assert.Equal(t, "claude", primary.Provider)
	assert.Equal(t, "claude-key", primary.APIKey)

	secondary := cfg.Parser.SecondaryConfig()
	require.NotNil(t, secondary)
	assert.Equal(t, "gemini", secondary.Provider)
}
