package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Audit backends.
const (
	AuditNone     = "none"
	AuditRedis    = "redis"
	AuditPostgres = "postgres"
	AuditNATS     = "nats"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Response ResponseConfig `mapstructure:"response"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Path         string        `mapstructure:"path"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuditConfig struct {
	Backend  string              `mapstructure:"backend"`
	Redis    RedisAuditConfig    `mapstructure:"redis"`
	Postgres PostgresAuditConfig `mapstructure:"postgres"`
	NATS     NATSAuditConfig     `mapstructure:"nats"`
}

type RedisAuditConfig struct {
	URL        string        `mapstructure:"url"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int64         `mapstructure:"max_entries"`
}

type PostgresAuditConfig struct {
	DSN string `mapstructure:"dsn"`
}

type NATSAuditConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ResponseConfig configures the replies of the built-in handlers.
// CRMLinkTemplate may contain {chat_id} and {visitor_number}.
type ResponseConfig struct {
	CRMLinkTemplate string `mapstructure:"crm_link_template"`
	EnableAssign    bool   `mapstructure:"enable_assign"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.path", "/webhooks/jivo")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("audit.backend", AuditNone)
	v.SetDefault("audit.redis.url", "redis://localhost:6379/0")
	v.SetDefault("audit.redis.key_prefix", "jivohook")
	v.SetDefault("audit.redis.ttl", "168h")
	v.SetDefault("audit.redis.max_entries", 10000)
	v.SetDefault("audit.postgres.dsn", "")
	v.SetDefault("audit.nats.url", "nats://localhost:4222")
	v.SetDefault("audit.nats.subject_prefix", "jivohook.audit")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("response.crm_link_template", "")
	v.SetDefault("response.enable_assign", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/jivohook")
	}

	// Environment variables override (JIVOHOOK_SERVER_PORT, etc.)
	v.SetEnvPrefix("JIVOHOOK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path must start with /: %q", c.Server.Path)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server.max_body_bytes %d", c.Server.MaxBodyBytes)
	}

	switch c.Audit.Backend {
	case AuditNone, AuditRedis, AuditNATS:
	case AuditPostgres:
		if c.Audit.Postgres.DSN == "" {
			return errors.New("audit.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown audit.backend %q", c.Audit.Backend)
	}

	if c.Metrics.Enabled && c.Metrics.Path == c.Server.Path {
		return fmt.Errorf("metrics.path and server.path must differ: %q", c.Metrics.Path)
	}
	return nil
}
