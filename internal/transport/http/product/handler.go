package product

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/abasto-labs/abasto/internal/auth"
	"github.com/abasto-labs/abasto/internal/dto"
	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/internal/presentation/http/response"
	service "github.com/abasto-labs/abasto/internal/service/product"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/abasto-labs/abasto/transport/http/product")

// Handler exposes product catalog and stock endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a product Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, guard auth.AdminGuard) {
	g := e.Group("/products", guard...)
	g.GET("", h.list)
	g.GET("/low-stock", h.lowStock)
	g.GET("/:id", h.getByID)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.PUT("/:id/stock", h.setStock)
	g.DELETE("/:id", h.remove)
}

type payload struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Quantity    int    `json:"quantity"`
	WarehouseID *int64 `json:"warehouse_id"`
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	products, err := h.svc.List(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(products)).WithMeta("count", len(products)).Build()
}

func (h *Handler) lowStock(c echo.Context) error {
	b := response.New(c)

	products, err := h.svc.LowStockList(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(products)).WithMeta("count", len(products)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	product, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(product)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var p payload
	if err := c.Bind(&p); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.create", trace.WithAttributes(attribute.String("product.code", p.Code)))
	defer span.End()

	product := &entity.Product{
		Name:        p.Name,
		Code:        p.Code,
		Quantity:    p.Quantity,
		WarehouseID: p.WarehouseID,
	}
	if err := h.svc.Create(ctx, product); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(product)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	var p payload
	if err := c.Bind(&p); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	product := &entity.Product{
		ID:          id,
		Name:        p.Name,
		Code:        p.Code,
		WarehouseID: p.WarehouseID,
	}
	if err := h.svc.Update(c.Request().Context(), product); err != nil {
		return b.WithError(err).Build()
	}

	updated, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(updated)).Build()
}

func (h *Handler) setStock(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	var p struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&p); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.setStock", trace.WithAttributes(
		attribute.Int64("product.id", id),
		attribute.Int("product.quantity", p.Quantity),
	))
	defer span.End()

	if err := h.svc.SetStock(ctx, id, p.Quantity); err != nil {
		return b.WithError(err).Build()
	}

	product, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(product)).Build()
}

func (h *Handler) remove(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func toDTO(product *entity.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          product.ID,
		Name:        product.Name,
		Code:        product.Code,
		Quantity:    product.Quantity,
		WarehouseID: product.WarehouseID,
		CreatedAt:   product.CreatedAt,
	}
}

func toDTOs(products []*entity.Product) []dto.ProductResponse {
	out := make([]dto.ProductResponse, 0, len(products))
	for _, product := range products {
		out = append(out, toDTO(product))
	}
	return out
}
