package assignment

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/abasto-labs/abasto/internal/auth"
	"github.com/abasto-labs/abasto/internal/dto"
	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/internal/presentation/http/response"
	service "github.com/abasto-labs/abasto/internal/service/assignment"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

// Handler exposes supervisor-school assignment endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an assignment Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, guard auth.AdminGuard) {
	g := e.Group("/assignments", guard...)
	g.GET("", h.list)
	g.POST("", h.create)
	g.DELETE("/:id", h.remove)
}

// list returns all assignments, or a single school's when school_id is given.
func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	var (
		assignments []*entity.Assignment
		err         error
	)
	if raw := c.QueryParam("school_id"); raw != "" {
		schoolID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return b.WithError(errorbank.BadRequest("invalid school_id", errorbank.WithCause(parseErr))).Build()
		}
		assignments, err = h.svc.ListBySchool(c.Request().Context(), schoolID)
	} else {
		assignments, err = h.svc.List(c.Request().Context())
	}
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		out = append(out, toDTO(assignment))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var p struct {
		SupervisorID int64 `json:"supervisor_id"`
		SchoolID     int64 `json:"school_id"`
		Primary      bool  `json:"primary"`
	}
	if err := c.Bind(&p); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	assignment := &entity.Assignment{
		SupervisorID: p.SupervisorID,
		SchoolID:     p.SchoolID,
		Primary:      p.Primary,
	}
	if err := h.svc.Create(c.Request().Context(), assignment); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(assignment)).Build()
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

func toDTO(assignment *entity.Assignment) dto.AssignmentResponse {
	resp := dto.AssignmentResponse{
		ID:           assignment.ID,
		SupervisorID: assignment.SupervisorID,
		SchoolID:     assignment.SchoolID,
		Primary:      assignment.Primary,
		CreatedAt:    assignment.CreatedAt,
	}
	if assignment.Supervisor != nil {
		resp.SupervisorName = assignment.Supervisor.Name + " " + assignment.Supervisor.Surname
	}
	if assignment.School != nil {
		resp.SchoolName = assignment.School.Name
	}
	return resp
}
