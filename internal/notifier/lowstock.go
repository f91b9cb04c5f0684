package notifier

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/internal/messaging"
	productrepo "github.com/abasto-labs/abasto/internal/repository/product"
)

var lowStockTracer = otel.Tracer("github.com/abasto-labs/abasto/notifier")

// LowStock scans the catalog for products at or below the configured
// threshold and mails the administrator one summary listing them all. The
// check holds no state of its own: running it twice against unchanged stock
// composes the same message twice and mutates nothing.
type LowStock struct {
	products  *productrepo.Repository
	mailer    Mailer
	publisher messaging.Client
	logger    *zap.Logger
	threshold int
	adminTo   string
}

// NewLowStock wires the low-stock checker.
func NewLowStock(products *productrepo.Repository, mailer Mailer, publisher messaging.Client, cfg config.Config, logger *zap.Logger) *LowStock {
	return &LowStock{
		products:  products,
		mailer:    mailer,
		publisher: publisher,
		logger:    logger,
		threshold: cfg.Notifier.LowStockThreshold,
		adminTo:   cfg.Notifier.AdminEmail,
	}
}

// Scan returns the products currently at or below the threshold.
func (l *LowStock) Scan(ctx context.Context) ([]*entity.Product, error) {
	ctx, span := lowStockTracer.Start(ctx, "LowStock.Scan", trace.WithAttributes(attribute.Int("threshold", l.threshold)))
	defer span.End()
	return l.products.ListBelow(ctx, l.threshold)
}

// Check runs the scan and, when anything is short, dispatches the summary.
// Best-effort end to end: every failure is logged and swallowed so callers in
// the order workflow never see it.
func (l *LowStock) Check(ctx context.Context) {
	products, err := l.Scan(ctx)
	if err != nil {
		l.logger.Warn("low-stock scan failed", zap.Error(err))
		return
	}
	if len(products) == 0 {
		return
	}

	body := l.compose(products)
	if err := l.mailer.Send(ctx, l.adminTo, "Low stock alert", body); err != nil {
		l.logger.Warn("low-stock notification failed",
			zap.Int("products", len(products)),
			zap.Error(err),
		)
	}

	type lowProduct struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Code     string `json:"code"`
		Quantity int    `json:"quantity"`
	}
	payload := make([]lowProduct, 0, len(products))
	for _, p := range products {
		payload = append(payload, lowProduct{ID: p.ID, Name: p.Name, Code: p.Code, Quantity: p.Quantity})
	}
	messaging.PublishEvent(ctx, l.publisher, l.logger, messaging.EventStockLow, "stock-low", payload)
}

func (l *LowStock) compose(products []*entity.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following products are at or below the stock threshold of %d:\n\n", l.threshold)
	for _, p := range products {
		fmt.Fprintf(&b, "  - %s (%s): %d on hand\n", p.Name, p.Code, p.Quantity)
	}
	return b.String()
}
