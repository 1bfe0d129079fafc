// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath  = "config.toml"
	DefaultHTTPAddr    = ":8080"
	DefaultBodyLimit   = "1M"
	DefaultRateLimit   = 20
	DefaultPGHost      = "127.0.0.1"
	DefaultPGPort      = 5432
	DefaultPGUser      = "postgres"
	DefaultPGDatabase  = "crm"
	DefaultPGSSLMode   = "disable"
	DefaultReplayTTL   = "72h"
	DefaultHTTPTimeout = "30s"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Sources   SourcesConfig   `toml:"sources"`
	Registrar RegistrarConfig `toml:"registrar"`
	Admin     AdminConfig     `toml:"admin"`
}

// LogConfig holds logging level and format (e.g. level=info, format=json).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address and edge limits.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	BodyLimit string `toml:"body_limit"`
	RateLimit int    `toml:"rate_limit"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// RedisConfig holds the replay-guard Redis connection. An empty addr
// disables the fast path; the database unique index still applies.
type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	ReplayTTL string `toml:"replay_ttl"`
}

// SourcesConfig holds the per-source webhook settings.
type SourcesConfig struct {
	WhatsApp SourceConfig `toml:"whatsapp"`
	Email    OwnedSource  `toml:"email"`
	Calendar OwnedSource  `toml:"calendar"`
	CRM      SourceConfig `toml:"crm"`
}

// SourceConfig holds the shared secret a source must present on delivery.
type SourceConfig struct {
	Token string `toml:"token"`
}

// OwnedSource is a source whose payloads must be told apart from the
// account owner's own address (email forwarder, calendar).
type OwnedSource struct {
	Token      string `toml:"token"`
	OwnerEmail string `toml:"owner_email"`
}

// RegistrarConfig holds outbound subscription management settings.
type RegistrarConfig struct {
	CRM      CRMRegistrarConfig   `toml:"crm"`
	Calendar WatchRegistrarConfig `toml:"calendar"`
}

// CRMRegistrarConfig drives webhook-subscription registration against
// the CRM provider's API.
type CRMRegistrarConfig struct {
	BaseURL     string `toml:"base_url"`
	BearerToken string `toml:"bearer_token"`
	CallbackURL string `toml:"callback_url"`
	Timeout     string `toml:"timeout"`
	Cron        string `toml:"cron"`
}

// WatchRegistrarConfig drives calendar watch-channel renewal. The calendar
// provider expires push channels, so renewal runs on a schedule.
type WatchRegistrarConfig struct {
	BaseURL      string `toml:"base_url"`
	TokenURL     string `toml:"token_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	CalendarID   string `toml:"calendar_id"`
	CallbackURL  string `toml:"callback_url"`
	Timeout      string `toml:"timeout"`
	Cron         string `toml:"cron"`
}

// AdminConfig holds the bearer token protecting the read and export endpoints.
type AdminConfig struct {
	Token string `toml:"token"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Addr:      DefaultHTTPAddr,
			BodyLimit: DefaultBodyLimit,
			RateLimit: DefaultRateLimit,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Redis: RedisConfig{
			ReplayTTL: DefaultReplayTTL,
		},
		Registrar: RegistrarConfig{
			CRM: CRMRegistrarConfig{
				Timeout: DefaultHTTPTimeout,
			},
			Calendar: WatchRegistrarConfig{
				Timeout: DefaultHTTPTimeout,
			},
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Duration parses raw as a Go duration string, falling back when raw is
// empty or malformed. Duration fields stay strings in TOML so configs read
// naturally ("30s", "72h").
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
