package assignment

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

var repoTracer = otel.Tracer("github.com/abasto-labs/abasto/repository/assignment")

// ErrNotFound is returned when an assignment is missing.
var ErrNotFound = errors.New("assignment not found")

// ErrDuplicatePair is returned when the supervisor-school pair already exists.
var ErrDuplicatePair = errors.New("supervisor already assigned to school")

// Repository encapsulates read/write access for supervisor-school links.
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

// Create persists a new assignment. Uniqueness is enforced at the pair level.
// When the new assignment is primary, the school's previous primary is demoted
// in the same transaction so the flag stays singular.
func (r *Repository) Create(ctx context.Context, assignment *entity.Assignment) error {
	if assignment == nil {
		return errors.New("nil assignment")
	}
	ctx, span := repoTracer.Start(ctx, "AssignmentRepository.Create", trace.WithAttributes(
		attribute.Int64("assignment.supervisor_id", assignment.SupervisorID),
		attribute.Int64("assignment.school_id", assignment.SchoolID),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*entity.Assignment)(nil)).
			Where("supervisor_id = ?", assignment.SupervisorID).
			Where("school_id = ?", assignment.SchoolID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicatePair
		}

		if assignment.Primary {
			if _, err := tx.NewUpdate().Model((*entity.Assignment)(nil)).
				Set("is_primary = ?", false).
				Where("school_id = ?", assignment.SchoolID).
				Where("is_primary = ?", true).
				Exec(ctx); err != nil {
				return err
			}
		}

		_, err = tx.NewInsert().Model(assignment).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an assignment by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Assignment, error) {
	assignment := new(entity.Assignment)
	err := r.reader.NewSelect().Model(assignment).
		Relation("Supervisor").
		Relation("School").
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// List returns all assignments with both sides loaded.
func (r *Repository) List(ctx context.Context) ([]*entity.Assignment, error) {
	var assignments []*entity.Assignment
	err := r.reader.NewSelect().Model(&assignments).
		Relation("Supervisor").
		Relation("School").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListBySchool returns a school's assignments, oldest first.
func (r *Repository) ListBySchool(ctx context.Context, schoolID int64) ([]*entity.Assignment, error) {
	var assignments []*entity.Assignment
	err := r.reader.NewSelect().Model(&assignments).
		Relation("Supervisor").
		Where("school_id = ?", schoolID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// CountBySchool counts a school's assignments. Submission requires at least
// one, otherwise there is nowhere to route the order.
func (r *Repository) CountBySchool(ctx context.Context, schoolID int64) (int, error) {
	ctx, span := repoTracer.Start(ctx, "AssignmentRepository.CountBySchool", trace.WithAttributes(attribute.Int64("assignment.school_id", schoolID)))
	defer span.End()

	count, err := r.reader.NewSelect().Model((*entity.Assignment)(nil)).
		Where("school_id = ?", schoolID).
		Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return 0, err
	}
	return count, nil
}

// RoutingForSchool resolves the supervisor who receives a school's order
// notifications: the primary assignment when one exists, otherwise the oldest.
func (r *Repository) RoutingForSchool(ctx context.Context, schoolID int64) (*entity.Assignment, error) {
	ctx, span := repoTracer.Start(ctx, "AssignmentRepository.RoutingForSchool", trace.WithAttributes(attribute.Int64("assignment.school_id", schoolID)))
	defer span.End()

	assignment := new(entity.Assignment)
	err := r.reader.NewSelect().Model(assignment).
		Relation("Supervisor").
		Where("school_id = ?", schoolID).
		OrderExpr("?TableAlias.is_primary DESC, ?TableAlias.created_at ASC, ?TableAlias.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return assignment, nil
}

// Delete removes an assignment unconditionally. Orders reference the school,
// not the assignment, so nothing cascades.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.writer.NewDelete().Model((*entity.Assignment)(nil)).Where("id = ?", id).Exec(ctx)
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
