package stock

import (
	"context"
	"encoding/json"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abasto-labs/abasto/internal/messaging"
	"github.com/abasto-labs/abasto/internal/worker"
)

// Module registers the stock alert worker handler.
var Module = fx.Module("worker_stock",
	fx.Provide(
		fx.Annotate(
			NewLowStockHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewLowStockHandler records stock alerts for the audit log. The email itself
// is sent inline by the checker; this keeps a durable trace of every alert.
func NewLowStockHandler(logger *zap.Logger) worker.HandlerRegistration {
	handler := func(ctx context.Context, env messaging.Envelope) error {
		var products []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Code     string `json:"code"`
			Quantity int    `json:"quantity"`
		}
		if err := json.Unmarshal(env.Payload, &products); err != nil {
			logger.Error("failed to decode stock alert", zap.Error(err))
			return nil
		}
		for _, p := range products {
			logger.Info("product below stock threshold",
				zap.Int64("product_id", p.ID),
				zap.String("code", p.Code),
				zap.Int("quantity", p.Quantity),
			)
		}
		return nil
	}

	return worker.HandlerRegistration{
		EventType: messaging.EventStockLow,
		Handler:   handler,
	}
}
