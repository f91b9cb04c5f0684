package school

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
	"github.com/abasto-labs/abasto/internal/qr"
	service "github.com/abasto-labs/abasto/internal/service/school"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/abasto-labs/abasto/transport/http/school")

// Handler exposes school registry endpoints, including the printable code
// image carrying the school's submission token.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a school Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, guard auth.AdminGuard) {
	g := e.Group("/schools", guard...)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.GET("/:id/qr", h.qrImage)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

type payload struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	schools, err := h.svc.List(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.SchoolResponse, 0, len(schools))
	for _, school := range schools {
		out = append(out, toDTO(school))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	school, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(school)).Build()
}

// qrImage renders the school's token as a PNG. Operators print this and post
// it at the school; scanning it is how staff reach the submission form.
func (h *Handler) qrImage(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "schools.qr", trace.WithAttributes(attribute.Int64("school.id", id)))
	defer span.End()

	school, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	size := qr.DefaultSize
	if raw := c.QueryParam("size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			size = parsed
		}
	}

	png, err := qr.Render(school.Token, size)
	if err != nil {
		return b.WithError(errorbank.Internal("failed to render code", errorbank.WithCause(err))).Build()
	}
	return b.WithBlob("image/png", png).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var p payload
	if err := c.Bind(&p); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	school := &entity.School{Name: p.Name, Address: p.Address}
	if err := h.svc.Create(c.Request().Context(), school); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(school)).Build()
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

	school := &entity.School{ID: id, Name: p.Name, Address: p.Address}
	if err := h.svc.Update(c.Request().Context(), school); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(school)).Build()
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

func toDTO(school *entity.School) dto.SchoolResponse {
	return dto.SchoolResponse{
		ID:        school.ID,
		Name:      school.Name,
		Token:     school.Token,
		Address:   school.Address,
		CreatedAt: school.CreatedAt,
	}
}
