package dashboard

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/internal/notifier"
	orderrepo "github.com/abasto-labs/abasto/internal/repository/order"
	productrepo "github.com/abasto-labs/abasto/internal/repository/product"
	schoolrepo "github.com/abasto-labs/abasto/internal/repository/school"
	supervisorrepo "github.com/abasto-labs/abasto/internal/repository/supervisor"
	warehouserepo "github.com/abasto-labs/abasto/internal/repository/warehouse"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/abasto-labs/abasto/service/dashboard")

// Summary is the operator landing view: registry counts, the pending order
// backlog and products at or below the restock threshold.
type Summary struct {
	Products      int
	Warehouses    int
	Supervisors   int
	Schools       int
	PendingOrders int
	LowStock      []*entity.Product
}

// Service aggregates counts across the registries.
type Service struct {
	products    *productrepo.Repository
	warehouses  *warehouserepo.Repository
	supervisors *supervisorrepo.Repository
	schools     *schoolrepo.Repository
	orders      *orderrepo.Repository
	lowStock    *notifier.LowStock
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Products    *productrepo.Repository
	Warehouses  *warehouserepo.Repository
	Supervisors *supervisorrepo.Repository
	Schools     *schoolrepo.Repository
	Orders      *orderrepo.Repository
	LowStock    *notifier.LowStock
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		products:    p.Products,
		warehouses:  p.Warehouses,
		supervisors: p.Supervisors,
		schools:     p.Schools,
		orders:      p.Orders,
		lowStock:    p.LowStock,
	}
}

// Summary collects the dashboard numbers in one pass.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	ctx, span := serviceTracer.Start(ctx, "DashboardService.Summary")
	defer span.End()

	var (
		summary Summary
		err     error
	)
	if summary.Products, err = s.products.Count(ctx); err != nil {
		return nil, errorbank.Internal("failed to count products", errorbank.WithCause(err))
	}
	if summary.Warehouses, err = s.warehouses.Count(ctx); err != nil {
		return nil, errorbank.Internal("failed to count warehouses", errorbank.WithCause(err))
	}
	if summary.Supervisors, err = s.supervisors.Count(ctx); err != nil {
		return nil, errorbank.Internal("failed to count supervisors", errorbank.WithCause(err))
	}
	if summary.Schools, err = s.schools.Count(ctx); err != nil {
		return nil, errorbank.Internal("failed to count schools", errorbank.WithCause(err))
	}
	if summary.PendingOrders, err = s.orders.CountByStatus(ctx, entity.OrderPending); err != nil {
		return nil, errorbank.Internal("failed to count pending orders", errorbank.WithCause(err))
	}
	if summary.LowStock, err = s.lowStock.Scan(ctx); err != nil {
		return nil, errorbank.Internal("failed to scan stock levels", errorbank.WithCause(err))
	}
	return &summary, nil
}
