package product

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

var repoTracer = otel.Tracer("github.com/abasto-labs/abasto/repository/product")

// ErrNotFound is returned when a product is missing.
var ErrNotFound = errors.New("product not found")

// Repository encapsulates read/write access for products.
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

// Create persists a new product.
func (r *Repository) Create(ctx context.Context, product *entity.Product) error {
	if product == nil {
		return errors.New("nil product")
	}
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Create", trace.WithAttributes(attribute.String("product.code", product.Code)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(product).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a product by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.GetByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product := new(entity.Product)
	err := r.reader.NewSelect().Model(product).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return product, nil
}

// GetByCode fetches a product by its unique code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	product := new(entity.Product)
	err := r.reader.NewSelect().Model(product).Where("code = ?", code).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ExistsByCode reports whether a product with the code already exists.
func (r *Repository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.reader.NewSelect().Model((*entity.Product)(nil)).
		Where("code = ?", code).
		Exists(ctx)
}

// List returns all products newest first.
func (r *Repository) List(ctx context.Context) ([]*entity.Product, error) {
	var products []*entity.Product
	err := r.reader.NewSelect().Model(&products).Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ListBelow returns products with quantity on hand at or below the threshold,
// lowest first. The low-stock scan reads through this.
func (r *Repository) ListBelow(ctx context.Context, threshold int) ([]*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.ListBelow", trace.WithAttributes(attribute.Int("threshold", threshold)))
	defer span.End()

	var products []*entity.Product
	err := r.reader.NewSelect().Model(&products).
		Where("quantity <= ?", threshold).
		Order("quantity ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return products, nil
}

// Update persists name, code and warehouse changes for a product.
func (r *Repository) Update(ctx context.Context, product *entity.Product) error {
	if product == nil {
		return errors.New("nil product")
	}
	res, err := r.writer.NewUpdate().Model(product).
		Column("name", "code", "warehouse_id").
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

// SetQuantity overwrites the quantity on hand. Negative values are refused at
// the service layer; the predicate here keeps the invariant regardless.
func (r *Repository) SetQuantity(ctx context.Context, id int64, quantity int) error {
	if quantity < 0 {
		return errors.New("quantity must be non-negative")
	}
	res, err := r.writer.NewUpdate().Model((*entity.Product)(nil)).
		Set("quantity = ?", quantity).
		Where("id = ?", id).
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

// Delete removes a product.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.writer.NewDelete().Model((*entity.Product)(nil)).Where("id = ?", id).Exec(ctx)
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

// Count returns the number of products.
func (r *Repository) Count(ctx context.Context) (int, error) {
	return r.reader.NewSelect().Model((*entity.Product)(nil)).Count(ctx)
}
