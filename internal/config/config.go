package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Parser ParserConfig
	CORS   CORSConfig
	Limits LimitsConfig
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LimitsConfig bounds the pasted text accepted per parse request.
type LimitsConfig struct {
	MaxTextBytes int `mapstructure:"max_text_bytes"`
}

// ParserProviderConfig holds settings for a single LLM streaming provider.
type ParserProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ParserConfig holds LLM parser settings with multi-provider support.
type ParserConfig struct {
	// Legacy flat fields (backwards-compatible)
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`

	// Multi-provider fields
	Primary   ParserProviderConfig `mapstructure:"primary"`
	Secondary ParserProviderConfig `mapstructure:"secondary"`
}

// PrimaryConfig returns the primary provider config, falling back to legacy flat fields.
func (p *ParserConfig) PrimaryConfig() *ParserProviderConfig {
	if p.Primary.Provider != "" {
		return &p.Primary
	}
	return &ParserProviderConfig{
		Provider:     p.Provider,
		APIKey:       p.APIKey,
		DefaultModel: p.DefaultModel,
		TimeoutSecs:  p.TimeoutSecs,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (p *ParserConfig) SecondaryConfig() *ParserProviderConfig {
	if p.Secondary.Provider != "" {
		return &p.Secondary
	}
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the EMAILPARSER_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EMAILPARSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	// Streaming responses hold the connection open well past a normal
	// request; the write timeout must cover a whole model response.
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Limits defaults
	v.SetDefault("limits.max_text_bytes", 262144)

	// Parser defaults (legacy flat)
	v.SetDefault("parser.provider", "gemini")
	v.SetDefault("parser.api_key", "")
	v.SetDefault("parser.default_model", "gemini-2.0-flash")
	v.SetDefault("parser.timeout_secs", 120)

	// Parser primary/secondary defaults
	v.SetDefault("parser.primary.provider", "")
	v.SetDefault("parser.primary.api_key", "")
	v.SetDefault("parser.primary.default_model", "")
	v.SetDefault("parser.primary.timeout_secs", 120)
	v.SetDefault("parser.secondary.provider", "")
	v.SetDefault("parser.secondary.api_key", "")
	v.SetDefault("parser.secondary.default_model", "")
	v.SetDefault("parser.secondary.timeout_secs", 120)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "EMAILPARSER_SERVER_PORT",
		"server.read_timeout":            "EMAILPARSER_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "EMAILPARSER_SERVER_WRITE_TIMEOUT",
		"server.environment":             "EMAILPARSER_SERVER_ENVIRONMENT",
		"log.level":                      "EMAILPARSER_LOG_LEVEL",
		"log.format":                     "EMAILPARSER_LOG_FORMAT",
		"cors.allowed_origins":           "EMAILPARSER_CORS_ALLOWED_ORIGINS",
		"limits.max_text_bytes":          "EMAILPARSER_LIMITS_MAX_TEXT_BYTES",
		"parser.provider":                "EMAILPARSER_PARSER_PROVIDER",
		"parser.api_key":                 "EMAILPARSER_PARSER_API_KEY",
		"parser.default_model":           "EMAILPARSER_PARSER_DEFAULT_MODEL",
		"parser.timeout_secs":            "EMAILPARSER_PARSER_TIMEOUT_SECS",
		"parser.primary.provider":        "EMAILPARSER_PARSER_PRIMARY_PROVIDER",
		"parser.primary.api_key":         "EMAILPARSER_PARSER_PRIMARY_API_KEY",
		"parser.primary.default_model":   "EMAILPARSER_PARSER_PRIMARY_DEFAULT_MODEL",
		"parser.primary.timeout_secs":    "EMAILPARSER_PARSER_PRIMARY_TIMEOUT_SECS",
		"parser.secondary.provider":      "EMAILPARSER_PARSER_SECONDARY_PROVIDER",
		"parser.secondary.api_key":       "EMAILPARSER_PARSER_SECONDARY_API_KEY",
		"parser.secondary.default_model": "EMAILPARSER_PARSER_SECONDARY_DEFAULT_MODEL",
		"parser.secondary.timeout_secs":  "EMAILPARSER_PARSER_SECONDARY_TIMEOUT_SECS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if EMAILPARSER_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("EMAILPARSER_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Limits = LimitsConfig{
		MaxTextBytes: v.GetInt("limits.max_text_bytes"),
	}

	cfg.Parser = ParserConfig{
		Provider:     v.GetString("parser.provider"),
		APIKey:       v.GetString("parser.api_key"),
		DefaultModel: v.GetString("parser.default_model"),
		TimeoutSecs:  v.GetInt("parser.timeout_secs"),
		Primary: ParserProviderConfig{
			Provider:     v.GetString("parser.primary.provider"),
			APIKey:       v.GetString("parser.primary.api_key"),
			DefaultModel: v.GetString("parser.primary.default_model"),
			TimeoutSecs:  v.GetInt("parser.primary.timeout_secs"),
		},
		Secondary: ParserProviderConfig{
			Provider:     v.GetString("parser.secondary.provider"),
			APIKey:       v.GetString("parser.secondary.api_key"),
			DefaultModel: v.GetString("parser.secondary.default_model"),
			TimeoutSecs:  v.GetInt("parser.secondary.timeout_secs"),
		},
	}

	return cfg, nil
}
