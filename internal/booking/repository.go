package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create books the slot inside one transaction. The owner's user row is
// locked first, which serializes that user's bookings and makes the
// per-day count check hold even under concurrent requests. Global slot
// uniqueness is not checked here at all: the unique index on slot_start
// decides the race, and a violation comes back as ErrSlotTaken.
func (r *Repository) Create(ctx context.Context, userID string, slotStart time.Time, message string, maxPerDay int) (Appointment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Appointment{}, fmt.Errorf("generate appointment id: %w", err)
	}

	slotStart = slotStart.UTC()
	dayStart := time.Date(slotStart.Year(), slotStart.Month(), slotStart.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Appointment{}, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback()

	var lockedID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM users WHERE id = $1 FOR UPDATE
	`, userID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Appointment{}, ErrForbidden
		}
		return Appointment{}, fmt.Errorf("lock user row: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE user_id = $1 AND slot_start >= $2 AND slot_start < $3
	`, userID, dayStart, dayEnd).Scan(&count)
	if err != nil {
		return Appointment{}, fmt.Errorf("count same-day appointments: %w", err)
	}
	if count >= maxPerDay {
		return Appointment{}, ErrDailyLimitExceeded
	}

	appt := Appointment{
		ID:        id.String(),
		UserID:    userID,
		SlotStart: slotStart,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO appointments (id, user_id, slot_start, message, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
	`, appt.ID, appt.UserID, appt.SlotStart, appt.Message, appt.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Appointment{}, ErrSlotTaken
		}
		return Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return Appointment{}, ErrSlotTaken
		}
		return Appointment{}, fmt.Errorf("commit booking tx: %w", err)
	}

	return appt, nil
}

// BookedStarts returns the occupied slot starts inside [from, to).
func (r *Repository) BookedStarts(ctx context.Context, from, to time.Time) (map[time.Time]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT slot_start FROM appointments
		WHERE slot_start >= $1 AND slot_start < $2
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}
	defer rows.Close()

	booked := make(map[time.Time]bool)
	for rows.Next() {
		var start time.Time
		if err := rows.Scan(&start); err != nil {
			return nil, fmt.Errorf("scan booked slot: %w", err)
		}
		booked[start.UTC()] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booked slots: %w", err)
	}

	return booked, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID string, from *time.Time) ([]Appointment, error) {
	query := `
		SELECT id, user_id, slot_start, COALESCE(message, ''), created_at
		FROM appointments
		WHERE user_id = $1`
	args := []any{userID}
	if from != nil {
		query += ` AND slot_start >= $2`
		args = append(args, from.UTC())
	}
	query += ` ORDER BY slot_start ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.UserID, &a.SlotStart, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		a.SlotStart = a.SlotStart.UTC()
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return appointments, nil
}

func (r *Repository) ListAllWithUsers(ctx context.Context) ([]AppointmentWithUser, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.slot_start, COALESCE(a.message, ''), a.created_at,
		       u.email, u.name
		FROM appointments a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.slot_start ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query appointments with users: %w", err)
	}
	defer rows.Close()

	out := make([]AppointmentWithUser, 0)
	for rows.Next() {
		var a AppointmentWithUser
		if err := rows.Scan(&a.ID, &a.UserID, &a.SlotStart, &a.Message, &a.CreatedAt, &a.UserEmail, &a.UserName); err != nil {
			return nil, fmt.Errorf("scan appointment with user: %w", err)
		}
		a.SlotStart = a.SlotStart.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments with users: %w", err)
	}

	return out, nil
}

// Delete removes the appointment after an ownership check. Unknown id
// and foreign owner stay distinguishable (404 vs 403); a second cancel
// of the same id is ErrNotFound, not success.
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback()

	var ownerID string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id FROM appointments WHERE id = $1 FOR UPDATE
	`, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("read appointment owner: %w", err)
	}
	if ownerID != userID {
		return ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel tx: %w", err)
	}

	return nil
}

// DeleteOlderThan bulk-deletes appointments created before the cutoff.
// Safe to run repeatedly and concurrently with bookings.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM appointments WHERE created_at < $1
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old appointments: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("old appointments rows affected: %w", err)
	}

	return affected, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var (
	ErrSlotTaken          = errors.New("slot already booked")
	ErrDailyLimitExceeded = errors.New("daily booking limit reached")
	ErrNotFound           = errors.New("appointment not found")
	ErrForbidden          = errors.New("appointment belongs to another user")
)
