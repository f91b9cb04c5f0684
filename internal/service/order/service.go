package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abasto-labs/abasto/internal/cache"
	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/internal/messaging"
	"github.com/abasto-labs/abasto/internal/notifier"
	assignmentrepo "github.com/abasto-labs/abasto/internal/repository/assignment"
	repo "github.com/abasto-labs/abasto/internal/repository/order"
	productrepo "github.com/abasto-labs/abasto/internal/repository/product"
	schoolrepo "github.com/abasto-labs/abasto/internal/repository/school"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/abasto-labs/abasto/service/order")

// Service owns the order lifecycle: public submission with rate and quantity
// limits, and the pending->approved/rejected transitions.
type Service struct {
	orders      *repo.Repository
	products    *productrepo.Repository
	schools     *schoolrepo.Repository
	assignments *assignmentrepo.Repository
	lowStock    *notifier.LowStock
	cache       cache.Store
	cacheTTL    time.Duration
	logger      *zap.Logger
	publisher   messaging.Client
	limits      config.Orders
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders      *repo.Repository
	Products    *productrepo.Repository
	Schools     *schoolrepo.Repository
	Assignments *assignmentrepo.Repository
	LowStock    *notifier.LowStock
	Cache       cache.Store
	Config      config.Config
	Logger      *zap.Logger
	Publisher   messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:      p.Orders,
		products:    p.Products,
		schools:     p.Schools,
		assignments: p.Assignments,
		lowStock:    p.LowStock,
		cache:       p.Cache,
		cacheTTL:    p.Config.Cache.DefaultTTL,
		logger:      p.Logger,
		publisher:   p.Publisher,
		limits:      p.Config.Orders,
	}
}

// SubmitItem is one requested product within a submission.
type SubmitItem struct {
	ProductID int64
	Quantity  int
}

// SubmitRequest is the public order submission payload.
type SubmitRequest struct {
	SchoolToken string
	Requester   string
	Notes       string
	Items       []SubmitItem
}

// Submit validates a public submission and persists the order with its lines
// atomically. Stock is untouched here; only approval consumes it.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Submit")
	defer span.End()

	if req.SchoolToken == "" {
		return nil, errorbank.BadRequest("school token is required")
	}
	if req.Requester == "" {
		return nil, errorbank.BadRequest("requester name is required")
	}

	school, err := s.schoolByToken(ctx, req.SchoolToken)
	if err != nil {
		if errors.Is(err, schoolrepo.ErrNotFound) {
			return nil, errorbank.NotFound("unknown school token")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "school lookup failed")
		return nil, errorbank.Internal("failed to resolve school", errorbank.WithCause(err))
	}
	span.SetAttributes(attribute.Int64("order.school_id", school.ID))

	assigned, err := s.assignments.CountBySchool(ctx, school.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assignment count failed")
		return nil, errorbank.Internal("failed to check school assignments", errorbank.WithCause(err))
	}
	if assigned == 0 {
		return nil, errorbank.Unprocessable("school has no assigned supervisor")
	}

	since := time.Now().UTC().Add(-s.limits.Window)
	recent, err := s.orders.CountBySchoolSince(ctx, school.ID, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate check failed")
		return nil, errorbank.Internal("failed to check submission limit", errorbank.WithCause(err))
	}
	if recent >= s.limits.SchoolWindowLimit {
		return nil, errorbank.Unprocessable(
			fmt.Sprintf("school already submitted %d orders in the last %d days", recent, int(s.limits.Window.Hours()/24)),
			errorbank.WithDetail("limit", s.limits.SchoolWindowLimit),
		)
	}

	lines, err := s.buildLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	order := &entity.Order{
		SchoolID:  school.ID,
		Requester: req.Requester,
		Notes:     req.Notes,
		Status:    entity.OrderPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.orders.Create(ctx, order, lines); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}
	order.Lines = lines
	order.School = school

	messaging.PublishEvent(ctx, s.publisher, s.logger, messaging.EventOrderSubmitted,
		fmt.Sprintf("order-%d", order.ID), SubmittedEvent{
			OrderID:    order.ID,
			SchoolID:   school.ID,
			SchoolName: school.Name,
			Requester:  order.Requester,
			CreatedAt:  order.CreatedAt,
		})
	s.lowStock.Check(ctx)

	return order, nil
}

// buildLines validates requested quantities and resolves products. Zero
// quantities are dropped; anything above the per-product cap rejects the
// whole submission.
func (s *Service) buildLines(ctx context.Context, items []SubmitItem) ([]*entity.OrderLine, error) {
	lines := make([]*entity.OrderLine, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if item.Quantity < 0 {
			return nil, errorbank.BadRequest("quantities must be non-negative")
		}
		if item.Quantity > s.limits.MaxQtyPerProduct {
			return nil, errorbank.Unprocessable(
				fmt.Sprintf("quantity %d exceeds the per-product limit of %d", item.Quantity, s.limits.MaxQtyPerProduct),
				errorbank.WithDetail("product_id", item.ProductID),
			)
		}
		if item.Quantity == 0 {
			continue
		}
		if seen[item.ProductID] {
			return nil, errorbank.BadRequest("duplicate product in submission", errorbank.WithDetail("product_id", item.ProductID))
		}
		seen[item.ProductID] = true

		if _, err := s.products.GetByID(ctx, item.ProductID); err != nil {
			if errors.Is(err, productrepo.ErrNotFound) {
				return nil, errorbank.NotFound("unknown product", errorbank.WithDetail("product_id", item.ProductID))
			}
			return nil, errorbank.Internal("failed to resolve product", errorbank.WithCause(err))
		}

		lines = append(lines, &entity.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	if len(lines) == 0 {
		return nil, errorbank.Unprocessable("at least one product quantity must be greater than zero")
	}
	return lines, nil
}

// Approve transitions a pending order to approved, consuming stock for every
// line or nothing at all. The low-stock check runs after the commit; its
// outcome never unwinds the approval.
func (s *Service) Approve(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Approve", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	now := time.Now().UTC()
	order, err := s.orders.Approve(ctx, id, now)
	if err != nil {
		var short *repo.InsufficientStockError
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, errorbank.NotFound("order not found")
		case errors.Is(err, repo.ErrAlreadyProcessed):
			return nil, errorbank.Conflict("order already processed")
		case errors.As(err, &short):
			details := make([]map[string]any, 0, len(short.Shortfalls))
			for _, sf := range short.Shortfalls {
				details = append(details, map[string]any{
					"product_id": sf.ProductID,
					"product":    sf.ProductName,
					"requested":  sf.Requested,
					"available":  sf.Available,
				})
			}
			return nil, errorbank.Unprocessable("insufficient stock for one or more lines",
				errorbank.WithDetail("shortfalls", details))
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to approve order", errorbank.WithCause(err))
		}
	}

	messaging.PublishEvent(ctx, s.publisher, s.logger, messaging.EventOrderApproved,
		fmt.Sprintf("order-%d", order.ID), ResolvedEvent{
			OrderID:    order.ID,
			SchoolID:   order.SchoolID,
			Status:     string(order.Status),
			ResolvedAt: now,
		})
	s.lowStock.Check(ctx)

	return order, nil
}

// Reject transitions a pending order to rejected. Stock is untouched.
func (s *Service) Reject(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Reject", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.orders.Reject(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, errorbank.NotFound("order not found")
		case errors.Is(err, repo.ErrAlreadyProcessed):
			return nil, errorbank.Conflict("order already processed")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to reject order", errorbank.WithCause(err))
		}
	}

	messaging.PublishEvent(ctx, s.publisher, s.logger, messaging.EventOrderRejected,
		fmt.Sprintf("order-%d", order.ID), ResolvedEvent{
			OrderID:    order.ID,
			SchoolID:   order.SchoolID,
			Status:     string(order.Status),
			ResolvedAt: time.Now().UTC(),
		})

	return order, nil
}

// Get retrieves an order with school and lines.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

// List returns orders, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	var filter entity.OrderStatus
	switch status {
	case "":
		filter = ""
	case string(entity.OrderPending), string(entity.OrderApproved), string(entity.OrderRejected):
		filter = entity.OrderStatus(status)
	default:
		return nil, errorbank.BadRequest("unknown status filter", errorbank.WithDetail("status", status))
	}

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

func (s *Service) schoolTokenKey(token string) string {
	return "schools:token:" + token
}

// schoolByToken resolves a school through the cache first; the public
// endpoint is the hottest read in the system.
func (s *Service) schoolByToken(ctx context.Context, token string) (*entity.School, error) {
	if s.cache != nil {
		if bytes, err := s.cache.Get(ctx, s.schoolTokenKey(token)); err == nil {
			var school entity.School
			if err := json.Unmarshal(bytes, &school); err == nil {
				return &school, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("school cache read failed", zap.Error(err))
		}
	}

	school, err := s.schools.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if bytes, err := json.Marshal(school); err == nil {
			if err := s.cache.Set(ctx, s.schoolTokenKey(token), bytes, s.cacheTTL); err != nil {
				s.logger.Warn("school cache write failed", zap.Error(err))
			}
		}
	}
	return school, nil
}

// SubmittedEvent is emitted when a new order lands.
type SubmittedEvent struct {
	OrderID    int64     `json:"order_id"`
	SchoolID   int64     `json:"school_id"`
	SchoolName string    `json:"school_name"`
	Requester  string    `json:"requester"`
	CreatedAt  time.Time `json:"created_at"`
}

// ResolvedEvent is emitted when an order is approved or rejected.
type ResolvedEvent struct {
	OrderID    int64     `json:"order_id"`
	SchoolID   int64     `json:"school_id"`
	Status     string    `json:"status"`
	ResolvedAt time.Time `json:"resolved_at"`
}
