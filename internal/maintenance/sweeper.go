package maintenance

import (
	"context"
	"time"

	"github.com/sheshasaibaba/taxbynav-backend/internal/auth"
	"github.com/sheshasaibaba/taxbynav-backend/internal/booking"
	"github.com/sheshasaibaba/taxbynav-backend/internal/observability"
)

const defaultBatchSize = 500

// Sweeper deletes appointments past the retention horizon and
// garbage-collects stale refresh tokens. Every pass is idempotent; the
// deletes take only ordinary row locks, so booking traffic is unaffected.
type Sweeper struct {
	bookings       *booking.Repository
	tokens         *auth.Repository
	logger         *observability.Logger
	retention      time.Duration
	tokenRetention time.Duration
	batchSize      int
	now            func() time.Time
}

type SweepResult struct {
	DeletedAppointments  int64 `json:"deleted_appointments"`
	DeletedRefreshTokens int64 `json:"deleted_refresh_tokens"`
}

func NewSweeper(
	bookings *booking.Repository,
	tokens *auth.Repository,
	logger *observability.Logger,
	retention time.Duration,
	tokenRetention time.Duration,
) *Sweeper {
	return &Sweeper{
		bookings:       bookings,
		tokens:         tokens,
		logger:         logger,
		retention:      retention,
		tokenRetention: tokenRetention,
		batchSize:      defaultBatchSize,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()

	deletedAppointments, err := s.bookings.DeleteOlderThan(ctx, now.Add(-s.retention))
	if err != nil {
		return SweepResult{}, err
	}

	deletedTokens, err := s.tokens.CleanupStaleRefreshTokens(ctx, s.tokenRetention, s.batchSize, now)
	if err != nil {
		return SweepResult{}, err
	}

	return SweepResult{
		DeletedAppointments:  deletedAppointments,
		DeletedRefreshTokens: deletedTokens,
	}, nil
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	s.sweepAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	result, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("retention_sweep_failed", map[string]any{"error": err.Error()})
		return
	}

	if result.DeletedAppointments > 0 || result.DeletedRefreshTokens > 0 {
		s.logger.Info("retention_sweep_completed", map[string]any{
			"deleted_appointments":   result.DeletedAppointments,
			"deleted_refresh_tokens": result.DeletedRefreshTokens,
		})
	}
}
