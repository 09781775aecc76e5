// Package config loads service configuration from a file, the environment and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCREENER"

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Workflow   WorkflowConfig   `mapstructure:"workflow"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Email      EmailConfig      `mapstructure:"email"`
	Session    SessionConfig    `mapstructure:"session"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig configures the HTTP and websocket transport.
type ServerConfig struct {
	Port                     int           `mapstructure:"port" validate:"min=1,max=65535"`
	AllowedOrigins           []string      `mapstructure:"allowed_origins"`
	MaxConnectionsPerIP      int           `mapstructure:"max_connections_per_ip" validate:"min=1"`
	MaxMessagesPerConnection int           `mapstructure:"max_messages_per_connection" validate:"min=1"`
	RateLimitPerMinute       int           `mapstructure:"rate_limit_per_minute" validate:"min=0"`
	ShutdownTimeout          time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig points at the relational store.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// CheckpointConfig selects the session checkpoint backend.
type CheckpointConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory postgres sqlite gorm-postgres"`
	// DSN is used by the sqlite and gorm-postgres drivers; postgres reuses database.url.
	DSN string `mapstructure:"dsn" validate:"required_if=Driver sqlite,required_if=Driver gorm-postgres"`
}

// WorkflowConfig tunes the conversation state machine.
type WorkflowConfig struct {
	MessageWindow int           `mapstructure:"message_window" validate:"min=1"`
	ResumeWindow  time.Duration `mapstructure:"resume_window" validate:"gt=0"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout" validate:"min=0"`
}

// EmbeddingConfig configures the embedding oracle.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider" validate:"oneof=gemini none"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BatchSize int    `mapstructure:"batch_size" validate:"min=1"`
}

// EmailConfig configures outcome notifications. When disabled, notifications are only logged.
type EmailConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host" validate:"required_if=Enabled true"`
	Port         int           `mapstructure:"port" validate:"min=0,max=65535"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	From         string        `mapstructure:"from" validate:"required_if=Enabled true,omitempty,email"`
	TLS          string        `mapstructure:"tls" validate:"oneof=mandatory opportunistic none"`
	Timeout      time.Duration `mapstructure:"timeout"`
	HRAddress    string        `mapstructure:"hr_address" validate:"omitempty,email"`
	CompanyName  string        `mapstructure:"company_name"`
	SupportEmail string        `mapstructure:"support_email"`
	SupportPhone string        `mapstructure:"support_phone"`
	Website      string        `mapstructure:"website"`
}

// SessionConfig configures session token signing.
type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// LogConfig configures the logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// minSecretLength is the shortest accepted session signing secret.
const minSecretLength = 16

var validate = validator.New()

// SetDefaults registers every key with its default so environment overrides are always seen.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_connections_per_ip", 3)
	v.SetDefault("server.max_messages_per_connection", 50)
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")

	v.SetDefault("checkpoint.driver", "memory")
	v.SetDefault("checkpoint.dsn", "")

	v.SetDefault("workflow.message_window", 6)
	v.SetDefault("workflow.resume_window", 5*time.Minute)
	v.SetDefault("workflow.lock_timeout", 30*time.Second)

	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.model", "text-embedding-004")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.batch_size", 50)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.tls", "mandatory")
	v.SetDefault("email.timeout", 15*time.Second)
	v.SetDefault("email.hr_address", "")
	v.SetDefault("email.company_name", "")
	v.SetDefault("email.support_email", "")
	v.SetDefault("email.support_phone", "")
	v.SetDefault("email.website", "")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// NewViper returns a viper instance with defaults and environment bindings applied.
// Keys map to SCREENER_<SECTION>_<KEY>; DATABASE_URL and GEMINI_API_KEY are also honored.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// BindEnv only errors without a key.
	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("embedding.api_key", EnvPrefix+"_EMBEDDING_API_KEY", "GEMINI_API_KEY")
	return v
}

// Load reads the optional config file at path, applies the environment and validates the result.
func Load(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field formats and ranges. It does not require settings that only
// some commands need; see RequireDatabase and RequireSessionSecret.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("config error: %s failed %q validation", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if c.Session.Secret != "" && len(c.Session.Secret) < minSecretLength {
		return fmt.Errorf("config error: session.secret must be at least %d characters", minSecretLength)
	}
	return nil
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required (set %s_DATABASE_URL or DATABASE_URL)", EnvPrefix)
	}
	return nil
}

// RequireSessionSecret reports an error when no session signing secret is configured.
func (c *Config) RequireSessionSecret() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is required (set %s_SESSION_SECRET)", EnvPrefix)
	}
	return nil
}
