package assignment

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abasto-labs/abasto/internal/entity"
	repo "github.com/abasto-labs/abasto/internal/repository/assignment"
	schoolrepo "github.com/abasto-labs/abasto/internal/repository/school"
	supervisorrepo "github.com/abasto-labs/abasto/internal/repository/supervisor"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/abasto-labs/abasto/service/assignment")

// Service manages supervisor-school links. A school needs at least one link
// before its orders can be accepted, since notifications route through it.
type Service struct {
	repo        *repo.Repository
	supervisors *supervisorrepo.Repository
	schools     *schoolrepo.Repository
}

// NewService wires a new Service instance.
func NewService(r *repo.Repository, supervisors *supervisorrepo.Repository, schools *schoolrepo.Repository) *Service {
	return &Service{repo: r, supervisors: supervisors, schools: schools}
}

// Create links a supervisor to a school. Both sides must exist and the pair
// must be new; marking the link primary demotes the school's previous primary.
func (s *Service) Create(ctx context.Context, assignment *entity.Assignment) error {
	if assignment == nil || assignment.SupervisorID == 0 || assignment.SchoolID == 0 {
		return errorbank.BadRequest("supervisor_id and school_id are required")
	}
	ctx, span := serviceTracer.Start(ctx, "AssignmentService.Create", trace.WithAttributes(
		attribute.Int64("assignment.supervisor_id", assignment.SupervisorID),
		attribute.Int64("assignment.school_id", assignment.SchoolID),
	))
	defer span.End()

	if _, err := s.supervisors.GetByID(ctx, assignment.SupervisorID); err != nil {
		if errors.Is(err, supervisorrepo.ErrNotFound) {
			return errorbank.NotFound("supervisor not found")
		}
		return errorbank.Internal("failed to resolve supervisor", errorbank.WithCause(err))
	}
	if _, err := s.schools.GetByID(ctx, assignment.SchoolID); err != nil {
		if errors.Is(err, schoolrepo.ErrNotFound) {
			return errorbank.NotFound("school not found")
		}
		return errorbank.Internal("failed to resolve school", errorbank.WithCause(err))
	}

	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		if errors.Is(err, repo.ErrDuplicatePair) {
			return errorbank.Conflict("supervisor is already assigned to this school")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return errorbank.Internal("failed to create assignment", errorbank.WithCause(err))
	}
	return nil
}

// List returns all assignments with supervisor and school loaded.
func (s *Service) List(ctx context.Context) ([]*entity.Assignment, error) {
	assignments, err := s.repo.List(ctx)
	if err != nil {
		return nil, errorbank.Internal("failed to list assignments", errorbank.WithCause(err))
	}
	return assignments, nil
}

// ListBySchool returns a school's assignments.
func (s *Service) ListBySchool(ctx context.Context, schoolID int64) ([]*entity.Assignment, error) {
	if _, err := s.schools.GetByID(ctx, schoolID); err != nil {
		if errors.Is(err, schoolrepo.ErrNotFound) {
			return nil, errorbank.NotFound("school not found")
		}
		return nil, errorbank.Internal("failed to resolve school", errorbank.WithCause(err))
	}
	assignments, err := s.repo.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, errorbank.Internal("failed to list assignments", errorbank.WithCause(err))
	}
	return assignments, nil
}

// Delete removes an assignment. Past orders are untouched; they reference the
// school directly.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("assignment not found")
		}
		return errorbank.Internal("failed to delete assignment", errorbank.WithCause(err))
	}
	return nil
}
