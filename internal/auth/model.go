package auth

import "time"

type User struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string // empty for google-only accounts
	GoogleAccount bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserPublic is the wire shape for /auth/me.
type UserPublic struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	GoogleAccount bool   `json:"google_account"`
}

func (u User) Public() UserPublic {
	return UserPublic{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		GoogleAccount: u.GoogleAccount,
	}
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshTokenRecord struct {
	ID         string
	UserID     string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}
