package order

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abasto-labs/abasto/internal/messaging"
	"github.com/abasto-labs/abasto/internal/notifier"
	assignmentrepo "github.com/abasto-labs/abasto/internal/repository/assignment"
	ordersvc "github.com/abasto-labs/abasto/internal/service/order"
	"github.com/abasto-labs/abasto/internal/worker"
)

var workerTracer = otel.Tracer("github.com/abasto-labs/abasto/worker/order")

// Module registers order lifecycle worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewSubmittedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
		fx.Annotate(
			NewApprovedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
		fx.Annotate(
			NewRejectedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewSubmittedHandler notifies the school's routing supervisor when a new
// order lands: the primary assignment when one exists, otherwise the oldest.
func NewSubmittedHandler(assignments *assignmentrepo.Repository, mailer notifier.Mailer, logger *zap.Logger) worker.HandlerRegistration {
	handler := func(ctx context.Context, env messaging.Envelope) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.submitted")
		defer span.End()

		var event ordersvc.SubmittedEvent
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			logger.Error("failed to decode submitted event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}
		span.SetAttributes(attribute.Int64("order.id", event.OrderID))

		routing, err := assignments.RoutingForSchool(ctx, event.SchoolID)
		if err != nil {
			// The school may have lost its assignments since submission.
			logger.Warn("no routing supervisor for order",
				zap.Int64("order_id", event.OrderID),
				zap.Int64("school_id", event.SchoolID),
				zap.Error(err),
			)
			return nil
		}
		if routing.Supervisor == nil {
			logger.Warn("routing assignment missing supervisor", zap.Int64("order_id", event.OrderID))
			return nil
		}

		subject := fmt.Sprintf("New order #%d from %s", event.OrderID, event.SchoolName)
		body := fmt.Sprintf(
			"Order #%d was submitted by %s on behalf of %s at %s.\n\nReview it in the management console.\n",
			event.OrderID, event.Requester, event.SchoolName, event.CreatedAt.Format("2006-01-02 15:04"),
		)
		if err := mailer.Send(ctx, routing.Supervisor.Email, subject, body); err != nil {
			logger.Warn("supervisor notification failed",
				zap.Int64("order_id", event.OrderID),
				zap.String("to", routing.Supervisor.Email),
				zap.Error(err),
			)
			return nil
		}

		logger.Info("supervisor notified of new order",
			zap.Int64("order_id", event.OrderID),
			zap.String("to", routing.Supervisor.Email),
		)
		return nil
	}

	return worker.HandlerRegistration{
		EventType: messaging.EventOrderSubmitted,
		Handler:   handler,
	}
}

// NewApprovedHandler records order approvals for the audit log.
func NewApprovedHandler(logger *zap.Logger) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		EventType: messaging.EventOrderApproved,
		Handler:   resolvedLogger(logger, "order approved"),
	}
}

// NewRejectedHandler records order rejections for the audit log.
func NewRejectedHandler(logger *zap.Logger) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		EventType: messaging.EventOrderRejected,
		Handler:   resolvedLogger(logger, "order rejected"),
	}
}

func resolvedLogger(logger *zap.Logger, msg string) worker.EventHandler {
	return func(ctx context.Context, env messaging.Envelope) error {
		var event ordersvc.ResolvedEvent
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			logger.Error("failed to decode resolved event", zap.Error(err))
			return nil
		}
		logger.Info(msg,
			zap.Int64("order_id", event.OrderID),
			zap.Int64("school_id", event.SchoolID),
			zap.Time("resolved_at", event.ResolvedAt),
		)
		return nil
	}
}
