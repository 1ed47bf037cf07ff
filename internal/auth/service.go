package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

type Service struct {
	repo       *Repository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	google     IdentityExchanger
	now        func() time.Time
}

func NewService(repo *Repository, jwtSecret string) *Service {
	return &Service{
		repo:       repo,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithTokenTTLs(accessTTL, refreshTTL time.Duration) *Service {
	if accessTTL > 0 {
		s.accessTTL = accessTTL
	}
	if refreshTTL > 0 {
		s.refreshTTL = refreshTTL
	}
	return s
}

func (s *Service) WithGoogle(exchanger IdentityExchanger) *Service {
	s.google = exchanger
	return s
}

// WithClock overrides the time source. Tests use this for deterministic
// expiry checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Login verifies email+password and issues a token pair. Unknown email,
// google-only account and wrong password all return the same
// ErrInvalidCredentials so responses cannot be used to enumerate accounts.
func (s *Service) Login(ctx context.Context, email, password string) (Tokens, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Tokens{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tokens{}, ErrInvalidCredentials
		}
		return Tokens{}, err
	}
	if user.PasswordHash == "" {
		return Tokens{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Tokens{}, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user.ID)
}

func (s *Service) Signup(ctx context.Context, email, password, name string) (Tokens, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Tokens{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, email, name, string(hash))
	if err != nil {
		return Tokens{}, err
	}

	return s.issueTokens(ctx, user.ID)
}

// Refresh rotates the presented refresh token: the old row is revoked and
// a successor inserted in one transaction, so a leaked token is good for
// at most one use.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return Tokens{}, ErrInvalidRefreshToken
	}

	newRefresh, err := randomToken(48)
	if err != nil {
		return Tokens{}, fmt.Errorf("generate new refresh token: %w", err)
	}

	now := s.now()
	userID, err := s.repo.RotateRefreshToken(ctx, refreshToken, newRefresh, now.Add(s.refreshTTL), now)
	if err != nil {
		return Tokens{}, err
	}

	access, expiresIn, err := signAccessToken(s.jwtSecret, userID, s.accessTTL, now)
	if err != nil {
		return Tokens{}, err
	}

	return Tokens{
		AccessToken:  access,
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	}, nil
}

// Logout revokes the refresh token. It never reports failure for unknown
// or already-revoked tokens.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	return s.repo.RevokeRefreshToken(ctx, refreshToken, s.now())
}

// VerifyAccess validates a bearer token and returns the user id it
// asserts. Pure signature+expiry check, no store round trip.
func (s *Service) VerifyAccess(raw string) (string, error) {
	return VerifyAccess(s.jwtSecret, raw)
}

func (s *Service) Me(ctx context.Context, userID string) (UserPublic, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserPublic{}, ErrUnauthorized
		}
		return UserPublic{}, err
	}
	return user.Public(), nil
}

// GoogleLoginURL builds the provider authorization redirect. Stateless;
// the callback carries everything needed.
func (s *Service) GoogleLoginURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrGoogleAuth
	}
	return s.google.AuthURL(state), nil
}

// GoogleCallback exchanges the authorization code for a verified identity
// and logs the linked account in without a local password.
func (s *Service) GoogleCallback(ctx context.Context, code string) (Tokens, error) {
	if s.google == nil {
		return Tokens{}, ErrGoogleAuth
	}

	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		return Tokens{}, err
	}

	email := strings.TrimSpace(strings.ToLower(identity.Email))
	if email == "" {
		return Tokens{}, ErrGoogleAuth
	}
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user, err := s.repo.GetOrCreateGoogleUser(ctx, email, name)
	if err != nil {
		return Tokens{}, err
	}

	return s.issueTokens(ctx, user.ID)
}

func (s *Service) issueTokens(ctx context.Context, userID string) (Tokens, error) {
	now := s.now()

	access, expiresIn, err := signAccessToken(s.jwtSecret, userID, s.accessTTL, now)
	if err != nil {
		return Tokens{}, err
	}

	refreshToken, err := randomToken(48)
	if err != nil {
		return Tokens{}, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.repo.CreateRefreshToken(ctx, userID, refreshToken, now.Add(s.refreshTTL)); err != nil {
		return Tokens{}, err
	}

	return Tokens{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	}, nil
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUnauthorized        = errors.New("unauthorized")
)
