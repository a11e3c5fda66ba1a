// Package config defines the workdoc configuration file and how it is loaded
// from YAML, environment variables, and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. WORKDOC_AUTH_JWT_SECRET.
const EnvPrefix = "WORKDOC"

// Config is the top-level workdoc configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Mail     MailConfig     `mapstructure:"mail" yaml:"mail"`
	Events   EventsConfig   `mapstructure:"events" yaml:"events"`
	Render   RenderConfig   `mapstructure:"render" yaml:"render"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string   `mapstructure:"host" yaml:"host"`
	Port            int      `mapstructure:"port" yaml:"port"`
	BaseURL         string   `mapstructure:"base_url" yaml:"base_url"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodySize     string   `mapstructure:"max_body_size" yaml:"max_body_size"`
	CORSOrigins     []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimit       int      `mapstructure:"rate_limit" yaml:"rate_limit"` // auth requests per IP per minute, 0 disables
}

// AuthConfig controls token signing and password hashing.
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL   string `mapstructure:"token_ttl" yaml:"token_ttl"`
	BcryptCost int    `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// DatabaseConfig selects the store backend. Driver is sqlite, postgres, or mysql.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// StorageConfig selects where rendered documents and screenshots live.
type StorageConfig struct {
	Backend      string   `mapstructure:"backend" yaml:"backend"` // local or s3
	DocumentsDir string   `mapstructure:"documents_dir" yaml:"documents_dir"`
	UploadsDir   string   `mapstructure:"uploads_dir" yaml:"uploads_dir"`
	S3           S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config configures the S3 storage backend. Endpoint is set for
// S3-compatible services such as MinIO.
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// MailConfig configures outbound SMTP.
type MailConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Username     string `mapstructure:"username" yaml:"username"`
	Password     string `mapstructure:"password" yaml:"password"`
	From         string `mapstructure:"from" yaml:"from"`
	ManagerEmail string `mapstructure:"manager_email" yaml:"manager_email"`
	AppURL       string `mapstructure:"app_url" yaml:"app_url"`
}

// EventsConfig selects the admin event broker. Backend is memory or redis.
type EventsConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	RedisURL  string `mapstructure:"redis_url" yaml:"redis_url"`
	Channel   string `mapstructure:"channel" yaml:"channel"`
	QueueSize int    `mapstructure:"queue_size" yaml:"queue_size"`
}

// RenderConfig controls report rendering.
type RenderConfig struct {
	LogoPath string `mapstructure:"logo_path" yaml:"logo_path"`
	Compress bool   `mapstructure:"compress" yaml:"compress"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when no file or override is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			BaseURL:         "http://localhost:5000",
			ShutdownTimeout: "30s",
			MaxBodySize:     "10MB",
			CORSOrigins:     []string{"*"},
			RateLimit:       60,
		},
		Auth: AuthConfig{
			TokenTTL:   "24h",
			BcryptCost: 12,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/workdoc.db",
		},
		Storage: StorageConfig{
			Backend:      "local",
			DocumentsDir: "documents",
			UploadsDir:   "uploads",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Mail: MailConfig{
			Host:   "smtp.gmail.com",
			Port:   587,
			AppURL: "http://localhost:3000",
		},
		Events: EventsConfig{
			Backend:   "memory",
			Channel:   "workdoc:events",
			QueueSize: 100,
		},
		Render: RenderConfig{
			LogoPath: "assets/logo.png",
			Compress: true,
			Timezone: "UTC",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default on v so environment variables can
// override keys that are absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	for key, val := range map[string]any{
		"server.host":             d.Server.Host,
		"server.port":             d.Server.Port,
		"server.base_url":         d.Server.BaseURL,
		"server.shutdown_timeout": d.Server.ShutdownTimeout,
		"server.max_body_size":    d.Server.MaxBodySize,
		"server.cors_origins":     d.Server.CORSOrigins,
		"server.rate_limit":       d.Server.RateLimit,
		"auth.jwt_secret":         d.Auth.JWTSecret,
		"auth.token_ttl":          d.Auth.TokenTTL,
		"auth.bcrypt_cost":        d.Auth.BcryptCost,
		"database.driver":         d.Database.Driver,
		"database.dsn":            d.Database.DSN,
		"storage.backend":         d.Storage.Backend,
		"storage.documents_dir":   d.Storage.DocumentsDir,
		"storage.uploads_dir":     d.Storage.UploadsDir,
		"storage.s3.bucket":       d.Storage.S3.Bucket,
		"storage.s3.region":       d.Storage.S3.Region,
		"storage.s3.endpoint":     d.Storage.S3.Endpoint,
		"storage.s3.access_key":   d.Storage.S3.AccessKey,
		"storage.s3.secret_key":   d.Storage.S3.SecretKey,
		"storage.s3.prefix":       d.Storage.S3.Prefix,
		"mail.host":               d.Mail.Host,
		"mail.port":               d.Mail.Port,
		"mail.username":           d.Mail.Username,
		"mail.password":           d.Mail.Password,
		"mail.from":               d.Mail.From,
		"mail.manager_email":      d.Mail.ManagerEmail,
		"mail.app_url":            d.Mail.AppURL,
		"events.backend":          d.Events.Backend,
		"events.redis_url":        d.Events.RedisURL,
		"events.channel":          d.Events.Channel,
		"events.queue_size":       d.Events.QueueSize,
		"render.logo_path":        d.Render.LogoPath,
		"render.compress":         d.Render.Compress,
		"render.timezone":         d.Render.Timezone,
		"logging.level":           d.Logging.Level,
		"logging.format":          d.Logging.Format,
	} {
		v.SetDefault(key, val)
	}
}

// ConfigureEnv enables WORKDOC_* environment overrides on v.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the effective configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be corrected at use time.
func (c *Config) Validate() error {
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	if _, err := c.MaxBodyBytes(); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q (want local or s3)", c.Storage.Backend)
	}
	switch c.Events.Backend {
	case "memory":
	case "redis":
		if c.Events.RedisURL == "" {
			return fmt.Errorf("events.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown events.backend %q (want memory or redis)", c.Events.Backend)
	}
	if _, err := time.LoadLocation(c.Render.Timezone); err != nil {
		return fmt.Errorf("render.timezone: %w", err)
	}
	return nil
}

// TokenTTL returns the session token lifetime.
func (c *Config) TokenTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("auth.token_ttl: invalid duration %q", c.Auth.TokenTTL)
	}
	return d, nil
}

// ShutdownTimeout returns the graceful shutdown window.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("server.shutdown_timeout: invalid duration %q", c.Server.ShutdownTimeout)
	}
	return d, nil
}

// MaxBodyBytes parses server.max_body_size, e.g. "10MB", "512KB", "1048576".
func (c *Config) MaxBodyBytes() (int64, error) {
	return ParseByteSize(c.Server.MaxBodySize)
}

// ParseByteSize parses a size with an optional KB, MB, or GB suffix.
func ParseByteSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	for _, u := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}

// Location returns the time zone used for report timestamps.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Render.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Auth.JWTSecret = mask(c.Auth.JWTSecret)
	c.Mail.Password = mask(c.Mail.Password)
	c.Storage.S3.SecretKey = mask(c.Storage.S3.SecretKey)
	return c
}

// YAML renders c as a YAML document.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
