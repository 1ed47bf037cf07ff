package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full environment-driven configuration surface. Every
// business rule that the booking and auth services depend on (business
// hours, slot duration, per-day limit, token TTLs, retention horizon)
// lives here rather than as constants in the services.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	Port        string
	AppEnv      string
	SentryDSN   string
	CronSecret  string

	BusinessStartHour     int
	BusinessEndHour       int // exclusive, last slot ends at this hour
	SlotDuration          time.Duration
	MaxSlotsPerUserPerDay int
	AppointmentRetention  time.Duration

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	Google GoogleConfig
	SMTP   SMTPConfig

	AdminEmail string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURI != ""
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.User != "" && s.Password != "" && s.From != ""
}

func Load() (Config, error) {
	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DatabaseURL: databaseURL,
		JWTSecret:   jwtSecret,
		Port:        envOrDefault("PORT", "8080"),
		AppEnv:      envOrDefault("APP_ENV", "development"),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		CronSecret:  strings.TrimSpace(os.Getenv("CRON_SECRET")),

		BusinessStartHour:     envIntOrDefault("BUSINESS_START_HOUR", 9),
		BusinessEndHour:       envIntOrDefault("BUSINESS_END_HOUR", 17),
		SlotDuration:          envMinutesOrDefault("SLOT_DURATION_MINUTES", 30),
		MaxSlotsPerUserPerDay: envIntOrDefault("MAX_SLOTS_PER_USER_PER_DAY", 1),
		AppointmentRetention:  envDaysOrDefault("APPOINTMENT_RETENTION_DAYS", 3),

		AccessTokenTTL:  envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTokenTTL: envHoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 168),

		DBMaxOpenConns:    envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime: envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),

		Google: GoogleConfig{
			ClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
			RedirectURI:  strings.TrimSpace(os.Getenv("GOOGLE_REDIRECT_URI")),
		},
		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
			Port:     envIntOrDefault("SMTP_PORT", 587),
			User:     strings.TrimSpace(os.Getenv("SMTP_USER")),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     strings.TrimSpace(os.Getenv("FROM_EMAIL")),
			FromName: envOrDefault("FROM_NAME", "TaxByNav"),
		},

		AdminEmail: strings.TrimSpace(strings.ToLower(os.Getenv("ADMIN_EMAIL"))),
	}

	if cfg.BusinessEndHour <= cfg.BusinessStartHour {
		return Config{}, fmt.Errorf("BUSINESS_END_HOUR (%d) must be after BUSINESS_START_HOUR (%d)",
			cfg.BusinessEndHour, cfg.BusinessStartHour)
	}

	return cfg, nil
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envDaysOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * 24 * time.Hour
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
