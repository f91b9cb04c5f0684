package public

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/abasto-labs/abasto/internal/dto"
	"github.com/abasto-labs/abasto/internal/presentation/http/response"
	service "github.com/abasto-labs/abasto/internal/service/order"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/abasto-labs/abasto/transport/http/public")

// Handler exposes the unauthenticated submission surface. A school identifies
// itself with the token from its scannable code; no session is involved.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a public Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/public")
	g.POST("/orders", h.submit)
}

type submitItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type submitPayload struct {
	SchoolToken string       `json:"school_token"`
	Requester   string       `json:"requester"`
	Notes       string       `json:"notes"`
	Items       []submitItem `json:"items"`
}

func (h *Handler) submit(c echo.Context) error {
	b := response.New(c)

	var payload submitPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "public.orders.submit")
	defer span.End()

	req := service.SubmitRequest{
		SchoolToken: payload.SchoolToken,
		Requester:   payload.Requester,
		Notes:       payload.Notes,
	}
	for _, item := range payload.Items {
		req.Items = append(req.Items, service.SubmitItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.svc.Submit(ctx, req)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewOrderResponse(order)).Build()
}
