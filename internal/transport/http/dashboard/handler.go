package dashboard

import (
	"github.com/labstack/echo/v4"

	"github.com/abasto-labs/abasto/internal/auth"
	"github.com/abasto-labs/abasto/internal/dto"
	"github.com/abasto-labs/abasto/internal/presentation/http/response"
	service "github.com/abasto-labs/abasto/internal/service/dashboard"
)

// Handler exposes the operator dashboard summary.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a dashboard Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, guard auth.AdminGuard) {
	e.GET("/dashboard", h.summary, guard...)
}

func (h *Handler) summary(c echo.Context) error {
	b := response.New(c)

	summary, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}

	resp := dto.DashboardResponse{
		Products:      summary.Products,
		Warehouses:    summary.Warehouses,
		Supervisors:   summary.Supervisors,
		Schools:       summary.Schools,
		PendingOrders: summary.PendingOrders,
		LowStock:      make([]dto.ProductResponse, 0, len(summary.LowStock)),
	}
	for _, product := range summary.LowStock {
		resp.LowStock = append(resp.LowStock, dto.ProductResponse{
			ID:          product.ID,
			Name:        product.Name,
			Code:        product.Code,
			Quantity:    product.Quantity,
			WarehouseID: product.WarehouseID,
			CreatedAt:   product.CreatedAt,
		})
	}
	return b.WithData(resp).Build()
}
