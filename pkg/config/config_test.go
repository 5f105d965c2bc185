package config

import (
	"testing"
	"time"

	"github.com/brightclass/brightclass/pkg/authz"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BRIGHTCLASS_POSTGRES_URL", "postgres://localhost/brightclass?sslmode=disable")
	t.Setenv("BRIGHTCLASS_OIDC_ISSUER", "https://auth.brightclass.test")
	t.Setenv("BRIGHTCLASS_OIDC_CLIENT_ID", "brightclass-web")
}

func TestLoadConfig_Defaults(t *testing.T) {
	validEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("expected default health port 9090, got %q", cfg.Server.HealthPort)
	}
	if cfg.Authz.CacheTTL != authz.DefaultCacheTTL {
		t.Errorf("expected default cache TTL %v, got %v", authz.DefaultCacheTTL, cfg.Authz.CacheTTL)
	}
	if cfg.Authz.AuditReads {
		t.Error("expected read auditing disabled by default")
	}
	if len(cfg.Auth.AdminEmails) != 0 {
		t.Errorf("expected empty admin email list by default, got %v", cfg.Auth.AdminEmails)
	}
	if cfg.Observability.LogLevel != "info" || cfg.Observability.LogFormat != "json" {
		t.Errorf("unexpected log defaults: %+v", cfg.Observability)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	validEnv(t)
	t.Setenv("BRIGHTCLASS_PORT", "8081")
	t.Setenv("BRIGHTCLASS_CACHE_TTL", "2m")
	t.Setenv("BRIGHTCLASS_AUDIT_READS", "true")
	t.Setenv("BRIGHTCLASS_ADMIN_EMAILS", "ops@school.test, lead@school.test")
	t.Setenv("BRIGHTCLASS_REDIS_URL", "redis://localhost:6379")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8081" {
		t.Errorf("expected port override, got %q", cfg.Server.Port)
	}
	if cfg.Authz.CacheTTL != 2*time.Minute {
		t.Errorf("expected 2m TTL, got %v", cfg.Authz.CacheTTL)
	}
	if !cfg.Authz.AuditReads {
		t.Error("expected read auditing enabled")
	}
	if len(cfg.Auth.AdminEmails) != 2 || cfg.Auth.AdminEmails[1] != "lead@school.test" {
		t.Errorf("unexpected admin emails: %v", cfg.Auth.AdminEmails)
	}
	if cfg.Redis.URL != "redis://localhost:6379" {
		t.Errorf("unexpected redis URL: %q", cfg.Redis.URL)
	}
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
	}{
		{
			name: "missing postgres url",
			setup: func(t *testing.T) {
				t.Setenv("BRIGHTCLASS_OIDC_ISSUER", "https://auth.brightclass.test")
				t.Setenv("BRIGHTCLASS_OIDC_CLIENT_ID", "brightclass-web")
			},
		},
		{
			name: "missing oidc issuer",
			setup: func(t *testing.T) {
				t.Setenv("BRIGHTCLASS_POSTGRES_URL", "postgres://localhost/x")
				t.Setenv("BRIGHTCLASS_OIDC_CLIENT_ID", "brightclass-web")
			},
		},
		{
			name: "port collision",
			setup: func(t *testing.T) {
				validEnv(t)
				t.Setenv("BRIGHTCLASS_PORT", "9090")
			},
		},
		{
			name: "negative retention",
			setup: func(t *testing.T) {
				validEnv(t)
				t.Setenv("BRIGHTCLASS_AUDIT_RETENTION_DAYS", "-1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			if _, err := LoadConfig(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
