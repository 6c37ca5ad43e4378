package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/realtime"
)

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus connects to redis and publishes change events on per-shop
// pub/sub channels ("<prefix>:<garage_id>").
func NewRedisBus(log *logger.Logger, addr, channelPrefix string) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channelPrefix == "" {
		channelPrefix = "jobcards"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:     log.With("component", "RedisChangeBus"),
		rdb:     rdb,
		channel: channelPrefix,
	}, nil
}

func (b *redisBus) channelFor(garageID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", b.channel, garageID)
}

func (b *redisBus) Publish(ctx context.Context, event realtime.ChangeEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis change bus not initialized")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channelFor(event.GarageID), raw).Err()
}

func (b *redisBus) Subscribe(ctx context.Context, garageID uuid.UUID, onEvent func(realtime.ChangeEvent)) (func(), error) {
	if b == nil || b.rdb == nil {
		return nil, fmt.Errorf("redis change bus not initialized")
	}
	if onEvent == nil {
		return nil, fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channelFor(garageID))

	// ensures the subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-subCtx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					// channel dropped; sessions stay on the last fetched
					// state until the caller resubscribes
					b.log.Warn("redis change feed dropped", "garage_id", garageID)
					return
				}
				var event realtime.ChangeEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					b.log.Warn("bad change event payload, skipping", "error", err)
					continue
				}
				onEvent(event)
			}
		}
	}()

	return cancel, nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
