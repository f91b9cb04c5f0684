package supervisor

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/abasto-labs/abasto/internal/auth"
	"github.com/abasto-labs/abasto/internal/dto"
	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/internal/presentation/http/response"
	"github.com/abasto-labs/abasto/internal/qr"
	service "github.com/abasto-labs/abasto/internal/service/supervisor"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

// Handler exposes supervisor registry endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a supervisor Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, guard auth.AdminGuard) {
	g := e.Group("/supervisors", guard...)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.GET("/:id/qr", h.qrImage)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

type payload struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	supervisors, err := h.svc.List(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.SupervisorResponse, 0, len(supervisors))
	for _, supervisor := range supervisors {
		out = append(out, toDTO(supervisor))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	supervisor, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(supervisor)).Build()
}

func (h *Handler) qrImage(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	supervisor, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return b.WithError(err).Build()
	}

	size := qr.DefaultSize
	if raw := c.QueryParam("size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			size = parsed
		}
	}

	png, err := qr.Render(supervisor.Token, size)
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

	supervisor := &entity.Supervisor{Name: p.Name, Surname: p.Surname, Email: p.Email}
	if err := h.svc.Create(c.Request().Context(), supervisor); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(supervisor)).Build()
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

	supervisor := &entity.Supervisor{ID: id, Name: p.Name, Surname: p.Surname, Email: p.Email}
	if err := h.svc.Update(c.Request().Context(), supervisor); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(supervisor)).Build()
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

func toDTO(supervisor *entity.Supervisor) dto.SupervisorResponse {
	return dto.SupervisorResponse{
		ID:        supervisor.ID,
		Name:      supervisor.Name,
		Surname:   supervisor.Surname,
		Email:     supervisor.Email,
		Token:     supervisor.Token,
		CreatedAt: supervisor.CreatedAt,
	}
}
