package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenType = "access"

// Tolerance applied to expiry checks so tokens are not rejected at the
// exact boundary by minor clock drift.
const clockSkewLeeway = 5 * time.Second

func signAccessToken(secret []byte, userID string, ttl time.Duration, now time.Time) (string, int64, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"typ": accessTokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign jwt: %w", err)
	}

	return encoded, int64(ttl.Seconds()), nil
}

// VerifyAccess checks signature, expiry and token type. It never touches
// the store; a valid signature is the whole proof.
func VerifyAccess(secret []byte, raw string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockSkewLeeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrUnauthorized
	}
	if tokenType, _ := claims["typ"].(string); tokenType != accessTokenType {
		return "", ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrUnauthorized
	}

	return sub, nil
}
