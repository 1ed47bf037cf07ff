package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/test")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.BusinessStartHour != 9 || cfg.BusinessEndHour != 17 {
		t.Errorf("business hours = %d-%d, want 9-17", cfg.BusinessStartHour, cfg.BusinessEndHour)
	}
	if cfg.SlotDuration != 30*time.Minute {
		t.Errorf("SlotDuration = %v", cfg.SlotDuration)
	}
	if cfg.MaxSlotsPerUserPerDay != 1 {
		t.Errorf("MaxSlotsPerUserPerDay = %d", cfg.MaxSlotsPerUserPerDay)
	}
	if cfg.AppointmentRetention != 3*24*time.Hour {
		t.Errorf("AppointmentRetention = %v", cfg.AppointmentRetention)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 168*time.Hour {
		t.Errorf("RefreshTokenTTL = %v", cfg.RefreshTokenTTL)
	}
	if cfg.Google.Enabled() {
		t.Error("google should be disabled without credentials")
	}
	if cfg.SMTP.Enabled() {
		t.Error("smtp should be disabled without credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BUSINESS_START_HOUR", "8")
	t.Setenv("BUSINESS_END_HOUR", "12")
	t.Setenv("SLOT_DURATION_MINUTES", "45")
	t.Setenv("MAX_SLOTS_PER_USER_PER_DAY", "3")
	t.Setenv("APPOINTMENT_RETENTION_DAYS", "7")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("REFRESH_TOKEN_TTL_HOURS", "24")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BusinessStartHour != 8 || cfg.BusinessEndHour != 12 {
		t.Errorf("business hours = %d-%d", cfg.BusinessStartHour, cfg.BusinessEndHour)
	}
	if cfg.SlotDuration != 45*time.Minute {
		t.Errorf("SlotDuration = %v", cfg.SlotDuration)
	}
	if cfg.MaxSlotsPerUserPerDay != 3 {
		t.Errorf("MaxSlotsPerUserPerDay = %d", cfg.MaxSlotsPerUserPerDay)
	}
	if cfg.AppointmentRetention != 7*24*time.Hour {
		t.Errorf("AppointmentRetention = %v", cfg.AppointmentRetention)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 24*time.Hour {
		t.Errorf("RefreshTokenTTL = %v", cfg.RefreshTokenTTL)
	}
}

func TestLoadRequiresCoreEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost:5432/test")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadRejectsInvertedBusinessHours(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BUSINESS_START_HOUR", "17")
	t.Setenv("BUSINESS_END_HOUR", "9")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for end hour before start hour")
	}
}

func TestEnvIntOrDefaultIgnoresBadValues(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 5},
		{"abc", 5},
		{"-1", 5},
		{"0", 5},
		{"12", 12},
	}
	for _, tt := range tests {
		t.Setenv("TEST_INT_ENV", tt.value)
		if got := envIntOrDefault("TEST_INT_ENV", 5); got != tt.want {
			t.Errorf("envIntOrDefault(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestEnvBoolOrDefault(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"true", true},
		{"1", true},
		{"YES", true},
		{"false", false},
		{"0", false},
		{"off", false},
		{"maybe", true},
	}
	for _, tt := range tests {
		t.Setenv("TEST_BOOL_ENV", tt.value)
		if got := EnvBoolOrDefault("TEST_BOOL_ENV", true); got != tt.want {
			t.Errorf("EnvBoolOrDefault(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
