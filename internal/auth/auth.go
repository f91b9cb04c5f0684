package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/entity"
)

// Claims is the JWT payload for operator sessions.
type Claims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller handed to request handlers. Handlers
// never reach into the session themselves.
type Principal struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

// NewToken signs a session token for the given user.
func NewToken(cfg config.Auth, user *entity.User, now time.Time) (string, error) {
	claims := &Claims{
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// PrincipalFromClaims converts verified claims into a Principal.
func PrincipalFromClaims(claims *Claims) (Principal, error) {
	if claims == nil {
		return Principal{}, fmt.Errorf("nil claims")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid subject: %w", err)
	}
	return Principal{
		UserID:   id,
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	}, nil
}
