// Package config loads runtime configuration from environment variables
// with sensible defaults for local demo use. All variables carry the RMD_
// prefix, e.g. RMD_SERVER_PORT.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Reasoning ReasoningConfig
	Scoring   ScoringConfig
	Alerts    AlertsConfig
	LogLevel  string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Path          string
	MigrationsDir string
}

type ReasoningConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Enabled bool
	Timeout time.Duration
}

type ScoringConfig struct {
	ModerateThreshold int
	HighThreshold     int
	ConfidenceBase    float64
	ConfidenceSpan    float64
}

type AlertsConfig struct {
	WebhookURL string
}

// Load reads configuration from the environment. Missing variables fall
// back to defaults; nothing here fails, so a bare environment still boots
// a working offline demo.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("RMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Optional config.yaml in the working directory; env wins over file.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetDefault("server.port", "8080")
	v.SetDefault("database.path", "data/rmd_health.db")
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("reasoning.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("reasoning.model", "deepseek/deepseek-chat")
	v.SetDefault("reasoning.api_key", "")
	v.SetDefault("reasoning.enabled", true)
	v.SetDefault("reasoning.timeout", "60s")
	v.SetDefault("scoring.moderate_threshold", 4)
	v.SetDefault("scoring.high_threshold", 8)
	v.SetDefault("scoring.confidence_base", 0.40)
	v.SetDefault("scoring.confidence_span", 0.55)
	v.SetDefault("alerts.webhook_url", "")
	v.SetDefault("log_level", "info")

	return &Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
		},
		Database: DatabaseConfig{
			Path:          v.GetString("database.path"),
			MigrationsDir: v.GetString("database.migrations_dir"),
		},
		Reasoning: ReasoningConfig{
			BaseURL: v.GetString("reasoning.base_url"),
			Model:   v.GetString("reasoning.model"),
			APIKey:  v.GetString("reasoning.api_key"),
			Enabled: v.GetBool("reasoning.enabled"),
			Timeout: v.GetDuration("reasoning.timeout"),
		},
		Scoring: ScoringConfig{
			ModerateThreshold: v.GetInt("scoring.moderate_threshold"),
			HighThreshold:     v.GetInt("scoring.high_threshold"),
			ConfidenceBase:    v.GetFloat64("scoring.confidence_base"),
			ConfidenceSpan:    v.GetFloat64("scoring.confidence_span"),
		},
		Alerts: AlertsConfig{
			WebhookURL: v.GetString("alerts.webhook_url"),
		},
		LogLevel: v.GetString("log_level"),
	}
}
