package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/smartblood-kerala/smartblood-backend/internal/logger"
)

// MatchBus publishes match-run progress events on a per-request channel so
// realtime consumers (dashboard, seeker UI) can react without polling. The
// database stays the source of truth; this channel is best-effort.

type MatchEvent struct {
	RequestID  string    `json:"request_id"`
	Stage      string    `json:"stage"`
	FoundCount int       `json:"found_count"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

type MatchBus interface {
	PublishMatchEvent(ctx context.Context, ev MatchEvent) error
	SubscribeMatchEvents(ctx context.Context, requestID string) (<-chan MatchEvent, func(), error)
}

type matchBus struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewMatchBus(log *logger.Logger, addr, password string) (MatchBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	return &matchBus{
		log: log.With("client", "MatchBus"),
		rdb: rdb,
	}, nil
}

func channelFor(requestID string) string {
	return "smartblood:match:" + requestID
}

func (b *matchBus) PublishMatchEvent(ctx context.Context, ev MatchEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, channelFor(ev.RequestID), raw).Err(); err != nil {
		b.log.Warn("Match event publish failed", "request_id", ev.RequestID, "stage", ev.Stage, "error", err)
		return err
	}
	return nil
}

func (b *matchBus) SubscribeMatchEvents(ctx context.Context, requestID string) (<-chan MatchEvent, func(), error) {
	sub := b.rdb.Subscribe(ctx, channelFor(requestID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan MatchEvent, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev MatchEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("Dropping malformed match event", "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}
