package school

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
)

var repoTracer = otel.Tracer("github.com/abasto-labs/abasto/repository/school")

// ErrNotFound is returned when a school is missing.
var ErrNotFound = errors.New("school not found")

// Repository encapsulates read/write access for schools.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new school.
func (r *Repository) Create(ctx context.Context, school *entity.School) error {
	if school == nil {
		return errors.New("nil school")
	}
	ctx, span := repoTracer.Start(ctx, "SchoolRepository.Create", trace.WithAttributes(attribute.String("school.name", school.Name)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(school).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a school by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.School, error) {
	school := new(entity.School)
	err := r.reader.NewSelect().Model(school).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return school, nil
}

// GetByToken resolves a school from its public submission token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*entity.School, error) {
	ctx, span := repoTracer.Start(ctx, "SchoolRepository.GetByToken")
	defer span.End()

	school := new(entity.School)
	err := r.reader.NewSelect().Model(school).Where("token = ?", token).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return school, nil
}

// List returns all schools ordered by name.
func (r *Repository) List(ctx context.Context) ([]*entity.School, error) {
	var schools []*entity.School
	err := r.reader.NewSelect().Model(&schools).Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return schools, nil
}

// Update persists name and address changes for a school. The token is
// immutable once minted; printed codes must keep resolving.
func (r *Repository) Update(ctx context.Context, school *entity.School) error {
	if school == nil {
		return errors.New("nil school")
	}
	res, err := r.writer.NewUpdate().Model(school).
		Column("name", "address").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a school.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.writer.NewDelete().Model((*entity.School)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of schools.
func (r *Repository) Count(ctx context.Context) (int, error) {
	return r.reader.NewSelect().Model((*entity.School)(nil)).Count(ctx)
}
