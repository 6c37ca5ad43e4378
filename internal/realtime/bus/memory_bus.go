package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/realtime"
)

type memorySub struct {
	garageID uuid.UUID
	onEvent  func(realtime.ChangeEvent)
}

type memoryBus struct {
	mu     sync.RWMutex
	log    *logger.Logger
	subs   map[*memorySub]bool
	closed bool
}

// NewMemoryBus is an in-process Bus for single-node deployments and tests.
// Delivery is synchronous in Publish order.
func NewMemoryBus(log *logger.Logger) Bus {
	return &memoryBus{
		log:  log.With("component", "MemoryChangeBus"),
		subs: make(map[*memorySub]bool),
	}
}

func (b *memoryBus) Publish(_ context.Context, event realtime.ChangeEvent) error {
	b.mu.RLock()
	targets := make([]*memorySub, 0, len(b.subs))
	for sub := range b.subs {
		if sub.garageID == event.GarageID {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()
	for _, sub := range targets {
		sub.onEvent(event)
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, garageID uuid.UUID, onEvent func(realtime.ChangeEvent)) (func(), error) {
	sub := &memorySub{garageID: garageID, onEvent: onEvent}
	b.mu.Lock()
	b.subs[sub] = true
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			unsubscribe()
		}()
	}
	return unsubscribe, nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[*memorySub]bool)
	b.closed = true
	return nil
}
