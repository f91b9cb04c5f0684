package supervisor

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

var repoTracer = otel.Tracer("github.com/abasto-labs/abasto/repository/supervisor")

// ErrNotFound is returned when a supervisor is missing.
var ErrNotFound = errors.New("supervisor not found")

// Repository encapsulates read/write access for supervisors.
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

// Create persists a new supervisor.
func (r *Repository) Create(ctx context.Context, supervisor *entity.Supervisor) error {
	if supervisor == nil {
		return errors.New("nil supervisor")
	}
	ctx, span := repoTracer.Start(ctx, "SupervisorRepository.Create", trace.WithAttributes(attribute.String("supervisor.email", supervisor.Email)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(supervisor).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a supervisor by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Supervisor, error) {
	supervisor := new(entity.Supervisor)
	err := r.reader.NewSelect().Model(supervisor).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return supervisor, nil
}

// ExistsByEmail reports whether a supervisor with the email already exists.
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.reader.NewSelect().Model((*entity.Supervisor)(nil)).
		Where("email = ?", email).
		Exists(ctx)
}

// List returns all supervisors ordered by surname.
func (r *Repository) List(ctx context.Context) ([]*entity.Supervisor, error) {
	var supervisors []*entity.Supervisor
	err := r.reader.NewSelect().Model(&supervisors).Order("surname ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return supervisors, nil
}

// Update persists name, surname and email changes for a supervisor.
func (r *Repository) Update(ctx context.Context, supervisor *entity.Supervisor) error {
	if supervisor == nil {
		return errors.New("nil supervisor")
	}
	res, err := r.writer.NewUpdate().Model(supervisor).
		Column("name", "surname", "email").
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

// Delete removes a supervisor.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.writer.NewDelete().Model((*entity.Supervisor)(nil)).Where("id = ?", id).Exec(ctx)
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

// Count returns the number of supervisors.
func (r *Repository) Count(ctx context.Context) (int, error) {
	return r.reader.NewSelect().Model((*entity.Supervisor)(nil)).Count(ctx)
}
