package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
)

var repoTracer = otel.Tracer("github.com/abasto-labs/abasto/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// ErrAlreadyProcessed is returned when a resolution is attempted against an
// order that is no longer pending.
var ErrAlreadyProcessed = errors.New("order already processed")

// StockShortfall describes one line whose product cannot cover the requested
// quantity.
type StockShortfall struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

// InsufficientStockError aborts an approval; it carries every short line so
// the caller can report them all at once.
type InsufficientStockError struct {
	Shortfalls []StockShortfall
}

func (e *InsufficientStockError) Error() string {
	names := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		names = append(names, fmt.Sprintf("%s (want %d, have %d)", s.ProductName, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(names, ", ")
}

// Repository encapsulates read/write access for orders and their lines.
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

// Create persists an order and its lines as a single transaction. Either the
// order and every line land, or nothing does.
func (r *Repository) Create(ctx context.Context, order *entity.Order, lines []*entity.OrderLine) error {
	if order == nil {
		return errors.New("nil order")
	}
	if len(lines) == 0 {
		return errors.New("order requires at least one line")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(
		attribute.Int64("order.school_id", order.SchoolID),
		attribute.Int("order.lines", len(lines)),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		for _, line := range lines {
			line.OrderID = order.ID
		}
		if _, err := tx.NewInsert().Model(&lines).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order with its school and lines (including products).
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("School").
		Relation("Lines").
		Relation("Lines.Product").
		Where("?TableAlias.id = ?", id).
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
	return order, nil
}

// List returns orders newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status entity.OrderStatus) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []*entity.Order
	q := r.reader.NewSelect().Model(&orders).
		Relation("School").
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// CountBySchoolSince counts a school's orders created after the given instant.
// The submission rate limit is evaluated against this.
func (r *Repository) CountBySchoolSince(ctx context.Context, schoolID int64, since time.Time) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CountBySchoolSince", trace.WithAttributes(
		attribute.Int64("order.school_id", schoolID),
	))
	defer span.End()

	count, err := r.reader.NewSelect().Model((*entity.Order)(nil)).
		Where("school_id = ?", schoolID).
		Where("created_at > ?", since).
		Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return 0, err
	}
	return count, nil
}

// CountByStatus counts orders in the given state.
func (r *Repository) CountByStatus(ctx context.Context, status entity.OrderStatus) (int, error) {
	return r.reader.NewSelect().Model((*entity.Order)(nil)).
		Where("status = ?", status).
		Count(ctx)
}

// Approve transitions a pending order to approved and decrements stock for
// every line in one transaction. If any product cannot cover its line the
// whole transaction rolls back and an InsufficientStockError lists every
// short product. Returns the approved order with lines loaded.
func (r *Repository) Approve(ctx context.Context, id int64, now time.Time) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Approve", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(order).Where("id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if order.Status != entity.OrderPending {
			return ErrAlreadyProcessed
		}

		var lines []*entity.OrderLine
		if err := tx.NewSelect().Model(&lines).
			Relation("Product").
			Where("order_id = ?", id).
			Scan(ctx); err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("order %d has no lines", id)
		}

		var shortfalls []StockShortfall
		for _, line := range lines {
			if line.Product == nil || line.Product.Quantity < line.Quantity {
				available := 0
				name := fmt.Sprintf("product %d", line.ProductID)
				if line.Product != nil {
					available = line.Product.Quantity
					name = line.Product.Name
				}
				shortfalls = append(shortfalls, StockShortfall{
					ProductID:   line.ProductID,
					ProductName: name,
					Requested:   line.Quantity,
					Available:   available,
				})
			}
		}
		if len(shortfalls) > 0 {
			return &InsufficientStockError{Shortfalls: shortfalls}
		}

		for _, line := range lines {
			// Guarded decrement: the quantity predicate re-checks stock at
			// write time so a concurrent approval cannot drive it negative.
			res, err := tx.NewUpdate().Model((*entity.Product)(nil)).
				Set("quantity = quantity - ?", line.Quantity).
				Where("id = ?", line.ProductID).
				Where("quantity >= ?", line.Quantity).
				Exec(ctx)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return &InsufficientStockError{Shortfalls: []StockShortfall{{
					ProductID:   line.ProductID,
					ProductName: line.Product.Name,
					Requested:   line.Quantity,
					Available:   line.Product.Quantity,
				}}}
			}
		}

		res, err := tx.NewUpdate().Model((*entity.Order)(nil)).
			Set("status = ?", entity.OrderApproved).
			Set("approved_at = ?", now).
			Where("id = ?", id).
			Where("status = ?", entity.OrderPending).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrAlreadyProcessed
		}

		order.Status = entity.OrderApproved
		order.ApprovedAt = &now
		order.Lines = lines
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "approve failed")
		return nil, err
	}
	return order, nil
}

// Reject transitions a pending order to rejected. Stock is untouched.
func (r *Repository) Reject(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Reject", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(order).Where("id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if order.Status != entity.OrderPending {
			return ErrAlreadyProcessed
		}

		res, err := tx.NewUpdate().Model((*entity.Order)(nil)).
			Set("status = ?", entity.OrderRejected).
			Where("id = ?", id).
			Where("status = ?", entity.OrderPending).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrAlreadyProcessed
		}

		order.Status = entity.OrderRejected
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reject failed")
		return nil, err
	}
	return order, nil
}
