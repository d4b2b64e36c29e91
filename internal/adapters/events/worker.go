package events

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/growthfund/matrix-engine/internal/application"
	"github.com/growthfund/matrix-engine/internal/contracts"
	"github.com/growthfund/matrix-engine/internal/ports"
)

// Worker drives the consume side and the outbox flush on one poll loop.
// Events the service rejects go to the DLQ rather than stopping the loop.
type Worker struct {
	logger       *zap.Logger
	consumer     ports.EventConsumer
	dlqPublisher ports.DLQPublisher
	service      *application.Service
	pollInterval time.Duration
}

func NewWorker(logger *zap.Logger, consumer ports.EventConsumer, dlqPublisher ports.DLQPublisher, service *application.Service, pollInterval time.Duration) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		logger:       logger,
		consumer:     consumer,
		dlqPublisher: dlqPublisher,
		service:      service,
		pollInterval: pollInterval,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.service.FlushOutbox(ctx); err != nil {
				return err
			}
			if w.consumer == nil {
				continue
			}
			event, err := w.consumer.Receive(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) {
					continue
				}
				return err
			}
			if event == nil {
				continue
			}
			if err := w.service.HandleCanonicalEvent(ctx, *event); err != nil {
				now := time.Now().UTC()
				dlqErr := w.dlqPublisher.PublishDLQ(ctx, contracts.DLQRecord{
					OriginalEvent: *event,
					ErrorSummary:  err.Error(),
					RetryCount:    1,
					FirstSeenAt:   now,
					LastErrorAt:   now,
					SourceTopic:   event.EventType,
					TraceID:       event.TraceID,
				})
				if dlqErr != nil {
					return dlqErr
				}
				w.logger.Error("event routed to dlq",
					zap.String("event_type", event.EventType),
					zap.String("event_id", event.EventID),
					zap.Error(err))
			}
		}
	}
}
