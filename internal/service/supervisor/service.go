package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
	repo "github.com/abasto-labs/abasto/internal/repository/supervisor"
	"github.com/abasto-labs/abasto/pkg/errorbank"
	"github.com/abasto-labs/abasto/pkg/token"
)

var serviceTracer = otel.Tracer("github.com/abasto-labs/abasto/service/supervisor")

// Service manages the supervisor registry.
type Service struct {
	repo *repo.Repository
}

// NewService wires a new Service instance.
func NewService(r *repo.Repository) *Service {
	return &Service{repo: r}
}

// Create mints a token and persists a new supervisor. Email must be unique;
// it is where order notifications land.
func (s *Service) Create(ctx context.Context, supervisor *entity.Supervisor) error {
	if supervisor == nil {
		return errorbank.BadRequest("supervisor payload is required")
	}
	if supervisor.Name == "" || supervisor.Surname == "" || supervisor.Email == "" {
		return errorbank.BadRequest("name, surname and email are required")
	}
	ctx, span := serviceTracer.Start(ctx, "SupervisorService.Create", trace.WithAttributes(attribute.String("supervisor.email", supervisor.Email)))
	defer span.End()

	exists, err := s.repo.ExistsByEmail(ctx, supervisor.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to check supervisor email", errorbank.WithCause(err))
	}
	if exists {
		return errorbank.Conflict(fmt.Sprintf("supervisor email %q already exists", supervisor.Email))
	}

	tok, err := token.New()
	if err != nil {
		return errorbank.Internal("failed to mint supervisor token", errorbank.WithCause(err))
	}
	supervisor.Token = tok
	if supervisor.CreatedAt.IsZero() {
		supervisor.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Create(ctx, supervisor); err != nil {
		if database.IsUniqueViolation(err) {
			return errorbank.Conflict(fmt.Sprintf("supervisor email %q already exists", supervisor.Email))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return errorbank.Internal("failed to create supervisor", errorbank.WithCause(err))
	}
	return nil
}

// Get fetches a supervisor by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Supervisor, error) {
	supervisor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("supervisor not found")
		}
		return nil, errorbank.Internal("failed to load supervisor", errorbank.WithCause(err))
	}
	return supervisor, nil
}

// List returns all supervisors.
func (s *Service) List(ctx context.Context) ([]*entity.Supervisor, error) {
	supervisors, err := s.repo.List(ctx)
	if err != nil {
		return nil, errorbank.Internal("failed to list supervisors", errorbank.WithCause(err))
	}
	return supervisors, nil
}

// Update persists name, surname and email changes.
func (s *Service) Update(ctx context.Context, supervisor *entity.Supervisor) error {
	if supervisor == nil || supervisor.ID == 0 {
		return errorbank.BadRequest("supervisor id is required")
	}
	if supervisor.Name == "" || supervisor.Surname == "" || supervisor.Email == "" {
		return errorbank.BadRequest("name, surname and email are required")
	}
	ctx, span := serviceTracer.Start(ctx, "SupervisorService.Update", trace.WithAttributes(attribute.Int64("supervisor.id", supervisor.ID)))
	defer span.End()

	if err := s.repo.Update(ctx, supervisor); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("supervisor not found")
		}
		if database.IsUniqueViolation(err) {
			return errorbank.Conflict(fmt.Sprintf("supervisor email %q already exists", supervisor.Email))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return errorbank.Internal("failed to update supervisor", errorbank.WithCause(err))
	}
	return nil
}

// Delete removes a supervisor.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("supervisor not found")
		}
		return errorbank.Internal("failed to delete supervisor", errorbank.WithCause(err))
	}
	return nil
}
