package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/entity"
)

var testAuthCfg = config.Auth{JWTSecret: "test-secret", TokenTTL: time.Hour}

func TestTokenRoundTrip(t *testing.T) {
	user := &entity.User{ID: 7, Username: "admin", IsAdmin: true}

	signed, err := NewToken(testAuthCfg, user, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return []byte(testAuthCfg.JWTSecret), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token not valid")
	}

	principal, err := PrincipalFromClaims(claims)
	if err != nil {
		t.Fatalf("principal: %v", err)
	}
	if principal.UserID != 7 || principal.Username != "admin" || !principal.IsAdmin {
		t.Errorf("principal = %+v, want user 7 admin", principal)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	user := &entity.User{ID: 1, Username: "old"}

	signed, err := NewToken(testAuthCfg, user, time.Now().UTC().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = jwt.ParseWithClaims(signed, new(Claims), func(*jwt.Token) (any, error) {
		return []byte(testAuthCfg.JWTSecret), nil
	})
	if err == nil {
		t.Error("expired token parsed without error")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	user := &entity.User{ID: 2, Username: "mallory"}

	signed, err := NewToken(testAuthCfg, user, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = jwt.ParseWithClaims(signed, new(Claims), func(*jwt.Token) (any, error) {
		return []byte("another-secret"), nil
	})
	if err == nil {
		t.Error("token verified against the wrong secret")
	}
}

func TestPrincipalFromBadSubject(t *testing.T) {
	claims := &Claims{Username: "x", RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-number"}}
	if _, err := PrincipalFromClaims(claims); err == nil {
		t.Error("non-numeric subject accepted")
	}
}
