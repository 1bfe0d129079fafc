package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultHTTPAddr)
	}
	if cfg.Postgres.Database != DefaultPGDatabase {
		t.Errorf("Postgres.Database = %q, want %q", cfg.Postgres.Database, DefaultPGDatabase)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("Redis.Addr = %q, want empty", cfg.Redis.Addr)
	}
	if cfg.Redis.ReplayTTL != DefaultReplayTTL {
		t.Errorf("Redis.ReplayTTL = %q, want %q", cfg.Redis.ReplayTTL, DefaultReplayTTL)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	content := `
[server]
addr = ":9091"
rate_limit = 5

[postgres]
host = "db.internal"
database = "contacts"

[sources.whatsapp]
token = "wa-secret"

[sources.email]
token = "mail-secret"
owner_email = "Owner@Example.com"

[registrar.crm]
base_url = "https://api.crm.example"
bearer_token = "crm-key"
callback_url = "https://hooks.example/webhooks/crm"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9091" {
		t.Errorf("Server.Addr = %q, want :9091", cfg.Server.Addr)
	}
	if cfg.Server.RateLimit != 5 {
		t.Errorf("Server.RateLimit = %d, want 5", cfg.Server.RateLimit)
	}
	if cfg.Server.BodyLimit != DefaultBodyLimit {
		t.Errorf("Server.BodyLimit = %q, want default %q", cfg.Server.BodyLimit, DefaultBodyLimit)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q, want db.internal", cfg.Postgres.Host)
	}
	if cfg.Postgres.Port != DefaultPGPort {
		t.Errorf("Postgres.Port = %d, want default %d", cfg.Postgres.Port, DefaultPGPort)
	}
	if cfg.Sources.WhatsApp.Token != "wa-secret" {
		t.Errorf("Sources.WhatsApp.Token = %q", cfg.Sources.WhatsApp.Token)
	}
	if cfg.Sources.Email.OwnerEmail != "Owner@Example.com" {
		t.Errorf("Sources.Email.OwnerEmail = %q", cfg.Sources.Email.OwnerEmail)
	}
	if cfg.Registrar.CRM.BearerToken != "crm-key" {
		t.Errorf("Registrar.CRM.BearerToken = %q", cfg.Registrar.CRM.BearerToken)
	}
	if cfg.Registrar.CRM.Timeout != DefaultHTTPTimeout {
		t.Errorf("Registrar.CRM.Timeout = %q, want default", cfg.Registrar.CRM.Timeout)
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\naddr = "), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for malformed TOML")
	}
}
