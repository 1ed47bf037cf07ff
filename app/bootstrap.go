package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/sheshasaibaba/taxbynav-backend/internal/auth"
	"github.com/sheshasaibaba/taxbynav-backend/internal/booking"
	"github.com/sheshasaibaba/taxbynav-backend/internal/config"
	"github.com/sheshasaibaba/taxbynav-backend/internal/db"
	"github.com/sheshasaibaba/taxbynav-backend/internal/mailer"
	"github.com/sheshasaibaba/taxbynav-backend/internal/maintenance"
	"github.com/sheshasaibaba/taxbynav-backend/internal/observability"
)

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Config  config.Config
	Handler http.Handler
	Sweeper *maintenance.Sweeper
	Logger  *observability.Logger
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.RunMigrations {
		if err := db.RunMigrations(database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	authRepo := auth.NewRepository(database)
	authService := auth.NewService(authRepo, cfg.JWTSecret).
		WithTokenTTLs(cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	if cfg.Google.Enabled() {
		google, err := auth.NewGoogleClient(cfg.Google)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("init google oauth: %w", err)
		}
		authService.WithGoogle(google)
	} else {
		logger.Warn("google_oauth_disabled", map[string]any{
			"reason": "GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET or GOOGLE_REDIRECT_URI not set",
		})
	}

	authHandler := auth.NewHandler(authService)

	bookingRepo := booking.NewRepository(database)
	bookingService := booking.NewService(
		bookingRepo,
		cfg.BusinessStartHour,
		cfg.BusinessEndHour,
		cfg.SlotDuration,
		cfg.MaxSlotsPerUserPerDay,
	)
	bookingHandler := booking.NewHandler(bookingService, authRepo)
	if cfg.SMTP.Enabled() {
		bookingHandler.WithMail(mailer.New(cfg.SMTP), cfg.AdminEmail)
	}

	sweeper := maintenance.NewSweeper(
		bookingRepo,
		authRepo,
		logger,
		cfg.AppointmentRetention,
		cfg.RefreshTokenTTL*2,
	)
	sweepHandler := maintenance.NewSweepHandler(sweeper, cfg.CronSecret)

	limiter := auth.NewRateLimiter(5, 10)

	mux := http.NewServeMux()
	mux.Handle("POST /auth/signup", limiter.Middleware(http.HandlerFunc(authHandler.Signup)))
	mux.Handle("POST /auth/login", limiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)
	mux.Handle("GET /auth/me", auth.Middleware(cfg.JWTSecret, http.HandlerFunc(authHandler.Me)))
	mux.HandleFunc("GET /auth/google", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)

	mux.HandleFunc("GET /slots", bookingHandler.Slots)
	mux.Handle("POST /appointments", auth.Middleware(cfg.JWTSecret, http.HandlerFunc(bookingHandler.Book)))
	mux.Handle("GET /appointments", auth.Middleware(cfg.JWTSecret, http.HandlerFunc(bookingHandler.List)))
	mux.Handle("GET /appointments/admin", auth.Middleware(cfg.JWTSecret, http.HandlerFunc(bookingHandler.ListAdmin)))
	mux.Handle("DELETE /appointments/{id}", auth.Middleware(cfg.JWTSecret, http.HandlerFunc(bookingHandler.Cancel)))

	mux.HandleFunc("GET /internal/maintenance/sweep", sweepHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/sweep", sweepHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(database))

	handler := observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, mux))

	return &Runtime{
		Config:  cfg,
		Handler: handler,
		Sweeper: sweeper,
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
