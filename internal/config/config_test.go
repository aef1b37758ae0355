package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "counsel"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLModeAndAppID(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "iss"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE and RTC_APP_ID")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Call.RingTimeout != 60*time.Second {
		t.Fatalf("expected 60s ring timeout, got %s", c.Call.RingTimeout)
	}
	if c.Call.OfflineGrace != 3*time.Second {
		t.Fatalf("expected 3s offline grace, got %s", c.Call.OfflineGrace)
	}
	if c.RTC.TokenTTL != time.Hour {
		t.Fatalf("expected 1h rtc token ttl, got %s", c.RTC.TokenTTL)
	}
}

func TestValidate_GraceMustBeShorterThanRing(t *testing.T) {
	c := validLocal()
	c.Call.RingTimeout = 5 * time.Second
	c.Call.OfflineGrace = 10 * time.Second
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when grace exceeds ring timeout")
	}
}

func TestValidate_VAPIDKeysComeInPairs(t *testing.T) {
	c := validLocal()
	c.Push.VAPIDPublicKey = "pub"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for half-configured VAPID keys")
	}
}

func TestLoad_ReadsCallPolicyFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_NAME", "n")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("CALL_RING_TIMEOUT", "45s")
	t.Setenv("CALL_OFFLINE_GRACE", "5s")
	t.Setenv("BACKEND_BASE_URL", "http://backend/")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Call.RingTimeout != 45*time.Second || c.Call.OfflineGrace != 5*time.Second {
		t.Fatalf("unexpected call policy: %+v", c.Call)
	}
	if c.Backend.BaseURL != "http://backend" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.Backend.BaseURL)
	}
}
