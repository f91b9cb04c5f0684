package product

import (
	"go.uber.org/fx"

	"github.com/labstack/echo/v4"

	"github.com/abasto-labs/abasto/internal/auth"
)

// Module wires HTTP product handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler, guard auth.AdminGuard) {
		Register(e, h, guard)
	}),
)
