package warehouse

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

var repoTracer = otel.Tracer("github.com/abasto-labs/abasto/repository/warehouse")

// ErrNotFound is returned when a warehouse is missing.
var ErrNotFound = errors.New("warehouse not found")

// Repository encapsulates read/write access for warehouses.
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

// Create persists a new warehouse.
func (r *Repository) Create(ctx context.Context, warehouse *entity.Warehouse) error {
	if warehouse == nil {
		return errors.New("nil warehouse")
	}
	ctx, span := repoTracer.Start(ctx, "WarehouseRepository.Create", trace.WithAttributes(attribute.String("warehouse.name", warehouse.Name)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(warehouse).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a warehouse by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Warehouse, error) {
	warehouse := new(entity.Warehouse)
	err := r.reader.NewSelect().Model(warehouse).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return warehouse, nil
}

// List returns all warehouses ordered by name.
func (r *Repository) List(ctx context.Context) ([]*entity.Warehouse, error) {
	var warehouses []*entity.Warehouse
	err := r.reader.NewSelect().Model(&warehouses).Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return warehouses, nil
}

// Update persists name and location changes for a warehouse.
func (r *Repository) Update(ctx context.Context, warehouse *entity.Warehouse) error {
	if warehouse == nil {
		return errors.New("nil warehouse")
	}
	res, err := r.writer.NewUpdate().Model(warehouse).
		Column("name", "location").
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

// Delete removes a warehouse.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.writer.NewDelete().Model((*entity.Warehouse)(nil)).Where("id = ?", id).Exec(ctx)
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

// Count returns the number of warehouses.
func (r *Repository) Count(ctx context.Context) (int, error) {
	return r.reader.NewSelect().Model((*entity.Warehouse)(nil)).Count(ctx)
}
