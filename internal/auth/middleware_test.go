package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/entity"
)

func newGuardedServer(t *testing.T) (*echo.Echo, config.Config) {
	t.Helper()

	cfg := config.Config{Auth: config.Auth{JWTSecret: "guard-secret", TokenTTL: time.Hour}}
	e := echo.New()
	guard := NewAdminGuard(cfg)
	e.GET("/protected", func(c echo.Context) error {
		principal, err := FromContext(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, principal.Username)
	}, guard...)
	return e, cfg
}

func request(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGuardRejectsMissingToken(t *testing.T) {
	e, _ := newGuardedServer(t)

	rec := request(e, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGuardRejectsGarbageToken(t *testing.T) {
	e, _ := newGuardedServer(t)

	rec := request(e, "not.a.jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGuardRejectsNonAdmin(t *testing.T) {
	e, cfg := newGuardedServer(t)

	signed, err := NewToken(cfg.Auth, &entity.User{ID: 3, Username: "viewer"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec := request(e, signed)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestGuardAdmitsAdmin(t *testing.T) {
	e, cfg := newGuardedServer(t)

	signed, err := NewToken(cfg.Auth, &entity.User{ID: 1, Username: "admin", IsAdmin: true}, time.Now().UTC())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec := request(e, signed)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "admin" {
		t.Errorf("body = %q, want the principal username", rec.Body.String())
	}
}
