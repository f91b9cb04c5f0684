package auth

import (
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/presentation/http/response"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

const contextKey = "user"

// AdminGuard is the middleware chain protecting management routes: token
// verification followed by an admin-flag check.
type AdminGuard []echo.MiddlewareFunc

// Module provides the admin guard to Fx.
var Module = fx.Provide(NewAdminGuard)

// NewAdminGuard builds the guard from the configured JWT secret.
func NewAdminGuard(cfg config.Config) AdminGuard {
	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey: contextKey,
		SigningKey: []byte(cfg.Auth.JWTSecret),
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return response.New(c).
				WithError(errorbank.Unauthorized("invalid or missing token", errorbank.WithCause(err))).
				Build()
		},
	})

	adminOnly := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, err := FromContext(c)
			if err != nil {
				return response.New(c).
					WithError(errorbank.Unauthorized("invalid session", errorbank.WithCause(err))).
					Build()
			}
			if !principal.IsAdmin {
				return response.New(c).
					WithError(errorbank.Forbidden("administrator access required")).
					Build()
			}
			return next(c)
		}
	}

	return AdminGuard{verify, adminOnly}
}

// FromContext extracts the authenticated Principal set by the guard.
func FromContext(c echo.Context) (Principal, error) {
	raw, ok := c.Get(contextKey).(*jwt.Token)
	if !ok || raw == nil {
		return Principal{}, errorbank.Unauthorized("no session token")
	}
	claims, ok := raw.Claims.(*Claims)
	if !ok {
		return Principal{}, errorbank.Unauthorized("unexpected claims type")
	}
	return PrincipalFromClaims(claims)
}
