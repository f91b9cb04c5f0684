package messaging

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Event types carried on the bus. All share one topic; the envelope type
// field routes them to worker handlers.
const (
	EventOrderSubmitted = "order.submitted"
	EventOrderApproved  = "order.approved"
	EventOrderRejected  = "order.rejected"
	EventStockLow       = "stock.low"
)

// Envelope wraps every published event.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// PublishEvent marshals payload into an envelope and publishes it keyed by
// key. Errors are logged and swallowed; event emission never fails a request.
func PublishEvent(ctx context.Context, client Client, logger *zap.Logger, eventType, key string, payload any) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		if logger != nil {
			logger.Error("marshal event payload", zap.String("type", eventType), zap.Error(err))
		}
		return
	}
	env := Envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}
	value, err := json.Marshal(env)
	if err != nil {
		if logger != nil {
			logger.Error("marshal event envelope", zap.String("type", eventType), zap.Error(err))
		}
		return
	}
	if err := client.Publish(ctx, []byte(key), value); err != nil {
		if logger != nil {
			logger.Error("publish event", zap.String("type", eventType), zap.Error(err))
		}
	}
}
