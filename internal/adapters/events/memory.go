package events

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/growthfund/matrix-engine/internal/contracts"
)

type MemoryConsumer struct {
	mu     sync.Mutex
	events []contracts.EventEnvelope
}

func NewMemoryConsumer() *MemoryConsumer { return &MemoryConsumer{events: []contracts.EventEnvelope{}} }
func (c *MemoryConsumer) Seed(events []contracts.EventEnvelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}
func (c *MemoryConsumer) Receive(_ context.Context) (*contracts.EventEnvelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil, io.EOF
	}
	e := c.events[0]
	c.events = c.events[1:]
	return &e, nil
}

type MemoryDomainPublisher struct {
	mu     sync.Mutex
	Events []contracts.EventEnvelope
}

func NewMemoryDomainPublisher() *MemoryDomainPublisher {
	return &MemoryDomainPublisher{Events: []contracts.EventEnvelope{}}
}
func (p *MemoryDomainPublisher) PublishDomain(_ context.Context, e contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
	return nil
}

type MemoryAnalyticsPublisher struct{}

func NewMemoryAnalyticsPublisher() *MemoryAnalyticsPublisher { return &MemoryAnalyticsPublisher{} }
func (p *MemoryAnalyticsPublisher) PublishAnalytics(_ context.Context, _ contracts.EventEnvelope) error {
	return nil
}

type LoggingDLQPublisher struct{ logger *zap.Logger }

func NewLoggingDLQPublisher(logger *zap.Logger) *LoggingDLQPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingDLQPublisher{logger: logger}
}
func (p *LoggingDLQPublisher) PublishDLQ(_ context.Context, record contracts.DLQRecord) error {
	p.logger.Warn("event routed to dlq",
		zap.String("event_id", record.OriginalEvent.EventID),
		zap.String("event_type", record.OriginalEvent.EventType),
		zap.String("error_summary", record.ErrorSummary))
	return nil
}
