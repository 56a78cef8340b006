package notifications

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Bus fans an event out to every subscriber. A failing subscriber is logged and
// never fails the publishing operation, whose mutation has already committed.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedPublisher
	logger      *zap.Logger
}

type namedPublisher struct {
	name string
	pub  Publisher
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe adds a publisher under a name used in logs.
func (b *Bus) Subscribe(name string, pub Publisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedPublisher{name: name, pub: pub})
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := append([]namedPublisher(nil), b.subscribers...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.pub.Publish(ctx, event); err != nil {
			b.logger.Warn("Event delivery failed",
				zap.String("subscriber", s.name),
				zap.String("event_type", string(event.Type)),
				zap.String("subject", event.Subject),
				zap.Error(err))
		}
	}
	return nil
}
