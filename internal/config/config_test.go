package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "app", Name: "app", SSLMode: "disable"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth: AuthConfig{
			JWTSecret:       "secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
}

func TestValidate_OK(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_RequiresEnv(t *testing.T) {
	c := validConfig()
	c.App.Env = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing APP_ENV")
	}

	c = validConfig()
	c.App.Env = "prod" // not a valid value; must be "production"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestValidate_ProductionRequiresCallbackBaseURL(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "issuer"
	c.Auth.JWTAudience = "aud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing TWILIO_CALLBACK_BASE_URL in production")
	}

	c.Twilio.CallbackBaseURL = "https://api.example.com"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid production config, got %v", err)
	}
}

func TestValidate_RefreshTTLMustExceedAccessTTL(t *testing.T) {
	c := validConfig()
	c.Auth.AccessTokenTTL = time.Hour
	c.Auth.RefreshTokenTTL = time.Minute
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for refresh TTL <= access TTL")
	}
}

func TestBillingDefaults(t *testing.T) {
	b := BillingConfig{}.WithBillingDefaults()
	if b.Currency != "USD" {
		t.Fatalf("expected USD default, got %q", b.Currency)
	}
	if b.VoicemailReconcileWindow != 10*time.Minute {
		t.Fatalf("unexpected reconcile window: %v", b.VoicemailReconcileWindow)
	}
	if b.ActiveCallTTL != 4*time.Hour {
		t.Fatalf("unexpected active call ttl: %v", b.ActiveCallTTL)
	}

	b = BillingConfig{VoicemailReconcileWindow: time.Minute}.WithBillingDefaults()
	if b.VoicemailReconcileWindow != time.Minute {
		t.Fatalf("explicit window overridden: %v", b.VoicemailReconcileWindow)
	}
}
