package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
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

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, COALESCE(password_hash, ''), google_account, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.GoogleAccount, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by email: %w", err)
	}

	return user, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, COALESCE(password_hash, ''), google_account, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.GoogleAccount, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by id: %w", err)
	}

	return user, nil
}

// CreateUser inserts a password account. The unique index on email is the
// duplicate check; a violation surfaces as ErrEmailTaken rather than a
// pre-SELECT that could race.
func (r *Repository) CreateUser(ctx context.Context, email, name, passwordHash string) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	now := time.Now().UTC()
	user := User{
		ID:           id.String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, google_account, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $5)
	`, user.ID, user.Email, user.Name, user.PasswordHash, now)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// GetOrCreateGoogleUser finds the account linked to a verified google
// identity, creating a passwordless one if needed. An existing password
// account with the same email is marked google-linked instead.
func (r *Repository) GetOrCreateGoogleUser(ctx context.Context, email, name string) (User, error) {
	user, err := r.GetByEmail(ctx, email)
	if err == nil {
		if !user.GoogleAccount {
			now := time.Now().UTC()
			if _, err := r.db.ExecContext(ctx, `
				UPDATE users SET google_account = true, updated_at = $2 WHERE id = $1
			`, user.ID, now); err != nil {
				return User{}, fmt.Errorf("link google account: %w", err)
			}
			user.GoogleAccount = true
			user.UpdatedAt = now
		}
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	now := time.Now().UTC()
	user = User{
		ID:            id.String(),
		Email:         email,
		Name:          name,
		GoogleAccount: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, google_account, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, true, $4, $4)
	`, user.ID, user.Email, user.Name, now)
	if err != nil {
		if isUniqueViolation(err) {
			// lost a race with a concurrent signup for the same email
			return r.GetByEmail(ctx, email)
		}
		return User{}, fmt.Errorf("insert google user: %w", err)
	}

	return user, nil
}

func (r *Repository) CreateRefreshToken(ctx context.Context, userID, rawToken string, expiresAt time.Time) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate refresh token id: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`, id.String(), userID, hashToken(rawToken), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// RotateRefreshToken atomically revokes the presented token and creates
// its successor. The row lock makes a concurrent second use of the same
// token observe revoked_at and fail; at most one unrevoked descendant
// exists per chain.
func (r *Repository) RotateRefreshToken(ctx context.Context, rawOldToken, rawNewToken string, newExpiresAt, now time.Time) (string, error) {
	newID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate refresh token id: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin refresh rotation tx: %w", err)
	}
	defer tx.Rollback()

	var oldID string
	var userID string
	var expiresAt time.Time
	var revokedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
		FOR UPDATE
	`, hashToken(rawOldToken)).Scan(&oldID, &userID, &expiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("read refresh token: %w", err)
	}

	if revokedAt.Valid || now.After(expiresAt.UTC().Add(clockSkewLeeway)) {
		return "", ErrInvalidRefreshToken
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`, newID.String(), userID, hashToken(rawNewToken), newExpiresAt.UTC())
	if err != nil {
		return "", fmt.Errorf("insert rotated refresh token: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, replaced_by = $3
		WHERE id = $1
	`, oldID, now.UTC(), newID.String())
	if err != nil {
		return "", fmt.Errorf("revoke old refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit refresh rotation tx: %w", err)
	}

	return userID, nil
}

// RevokeRefreshToken marks the token revoked. Unknown or already-revoked
// tokens are a no-op; logout always succeeds.
func (r *Repository) RevokeRefreshToken(ctx context.Context, rawToken string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE token_hash = $1
	`, hashToken(rawToken), now.UTC())
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

// CleanupStaleRefreshTokens garbage-collects expired and long-revoked
// rows in batches. Revoked rows are kept for the retention window so the
// rotation chain stays auditable.
func (r *Repository) CleanupStaleRefreshTokens(ctx context.Context, retention time.Duration, batchSize int, now time.Time) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	if retention <= 0 {
		retention = 14 * 24 * time.Hour
	}
	cutoff := now.UTC().Add(-retention)

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM refresh_tokens
			WHERE expires_at < $1 OR (revoked_at IS NOT NULL AND revoked_at < $1)
			ORDER BY created_at ASC
			LIMIT $2
		)
		DELETE FROM refresh_tokens t
		USING stale
		WHERE t.id = stale.id
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete stale refresh tokens: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale refresh tokens rows affected: %w", err)
	}

	return affected, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
