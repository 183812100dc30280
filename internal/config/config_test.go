package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_TTL_HOURS", "")

	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("got env %q, want dev", cfg.Env)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("got session ttl %s, want 168h", cfg.SessionTTL)
	}
	if cfg.Search.Index != "products" {
		t.Fatalf("got index %q, want products", cfg.Search.Index)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("REINDEX_INTERVAL", "5s")
	t.Setenv("PORT", "not-a-number")

	cfg := Load()

	if cfg.DBURL != "postgres://u:p@db:5432/x" {
		t.Fatalf("got db url %q", cfg.DBURL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Fatalf("got origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.ReindexInterval != 5*time.Second {
		t.Fatalf("got interval %s, want 5s", cfg.ReindexInterval)
	}
	if cfg.Port != 8080 {
		t.Fatalf("got port %d, want fallback 8080", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = " " }, wantErr: true},
		{name: "bad driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, wantErr: true},
		{name: "resend without key", mutate: func(c *Config) { c.Mail.Driver = "resend" }, wantErr: true},
		{name: "bad mail driver", mutate: func(c *Config) { c.Mail.Driver = "pigeon" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{JWTSecret: "secret", StoreDriver: "memory", Mail: MailConfig{Driver: "log"}}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("got err %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
