package school

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abasto-labs/abasto/internal/cache"
	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
	repo "github.com/abasto-labs/abasto/internal/repository/school"
	"github.com/abasto-labs/abasto/pkg/errorbank"
	"github.com/abasto-labs/abasto/pkg/token"
)

var serviceTracer = otel.Tracer("github.com/abasto-labs/abasto/service/school")

// Service manages the school registry. Every school gets an opaque token at
// creation which is what the printed scannable codes carry.
type Service struct {
	repo   *repo.Repository
	cache  cache.Store
	logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(r *repo.Repository, store cache.Store, logger *zap.Logger) *Service {
	return &Service{repo: r, cache: store, logger: logger}
}

// Create mints a token and persists a new school.
func (s *Service) Create(ctx context.Context, school *entity.School) error {
	if school == nil || school.Name == "" {
		return errorbank.BadRequest("school name is required")
	}
	ctx, span := serviceTracer.Start(ctx, "SchoolService.Create", trace.WithAttributes(attribute.String("school.name", school.Name)))
	defer span.End()

	tok, err := token.New()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token mint failed")
		return errorbank.Internal("failed to mint school token", errorbank.WithCause(err))
	}
	school.Token = tok
	if school.CreatedAt.IsZero() {
		school.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Create(ctx, school); err != nil {
		if database.IsUniqueViolation(err) {
			return errorbank.Conflict("school token collision, retry the request")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return errorbank.Internal("failed to create school", errorbank.WithCause(err))
	}
	return nil
}

// Get fetches a school by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.School, error) {
	school, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("school not found")
		}
		return nil, errorbank.Internal("failed to load school", errorbank.WithCause(err))
	}
	return school, nil
}

// List returns all schools.
func (s *Service) List(ctx context.Context) ([]*entity.School, error) {
	schools, err := s.repo.List(ctx)
	if err != nil {
		return nil, errorbank.Internal("failed to list schools", errorbank.WithCause(err))
	}
	return schools, nil
}

// Update persists name and address changes. The token never changes, but the
// cached token entry is dropped so reads pick up the new fields.
func (s *Service) Update(ctx context.Context, school *entity.School) error {
	if school == nil || school.ID == 0 {
		return errorbank.BadRequest("school id is required")
	}
	if school.Name == "" {
		return errorbank.BadRequest("school name is required")
	}
	ctx, span := serviceTracer.Start(ctx, "SchoolService.Update", trace.WithAttributes(attribute.Int64("school.id", school.ID)))
	defer span.End()

	existing, err := s.repo.GetByID(ctx, school.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("school not found")
		}
		return errorbank.Internal("failed to load school", errorbank.WithCause(err))
	}

	if err := s.repo.Update(ctx, school); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return errorbank.Internal("failed to update school", errorbank.WithCause(err))
	}
	school.Token = existing.Token
	s.invalidateToken(ctx, existing.Token)
	return nil
}

// Delete removes a school and its cached token entry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	school, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("school not found")
		}
		return errorbank.Internal("failed to load school", errorbank.WithCause(err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return errorbank.Internal("failed to delete school", errorbank.WithCause(err))
	}
	s.invalidateToken(ctx, school.Token)
	return nil
}

func (s *Service) invalidateToken(ctx context.Context, tok string) {
	if s.cache == nil || tok == "" {
		return
	}
	if err := s.cache.Delete(ctx, "schools:token:"+tok); err != nil {
		s.logger.Warn("school token cache invalidation failed", zap.Error(err))
	}
}
