package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChangeChannel is the pub/sub channel the surrounding application
// publishes record changes on.
const DefaultChangeChannel = "ledger:changes"

// ChangeKind says which record type changed.
type ChangeKind string

const (
	ChangeKindPayment ChangeKind = "PAYMENT"
	ChangeKindSplit   ChangeKind = "SPLIT"
)

// ChangeEvent announces that a payment or split in a trip was created,
// updated or deleted. The engine only needs the trip ID; invalidation is
// idempotent and commutative, so delivery order does not matter.
type ChangeEvent struct {
	ID         string     `json:"id"`
	TripID     string     `json:"trip_id"`
	Kind       ChangeKind `json:"kind"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// ChangeFeed publishes and subscribes to change events over redis pub/sub.
type ChangeFeed struct {
	client  *redis.Client
	channel string
}

// NewChangeFeed creates a ChangeFeed on the given channel. An empty
// channel name selects DefaultChangeChannel.
func NewChangeFeed(client *redis.Client, channel string) *ChangeFeed {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &ChangeFeed{client: client, channel: channel}
}

// Publish emits a change event. Missing ID and OccurredAt are filled in.
func (f *ChangeFeed) Publish(ctx context.Context, event ChangeEvent) error {
	data, err := marshalChangeEvent(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, data).Err()
}

func marshalChangeEvent(event ChangeEvent) ([]byte, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return json.Marshal(event)
}

// Subscribe delivers change events to handler until ctx is cancelled.
// Malformed messages are logged and skipped; they must not wedge the feed.
func (f *ChangeFeed) Subscribe(ctx context.Context, handler func(ChangeEvent)) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	// Force the subscription to be established before we report ready.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if event, ok := decodeChangeEvent(f.channel, msg.Payload); ok {
				handler(event)
			}
		}
	}
}

// decodeChangeEvent parses a raw pub/sub payload. ok is false for
// payloads the feed skips.
func decodeChangeEvent(channel, payload string) (ChangeEvent, bool) {
	var event ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Warn("skipping malformed change event", "channel", channel, "error", err)
		return ChangeEvent{}, false
	}
	if event.TripID == "" {
		slog.Warn("skipping change event without trip id", "event_id", event.ID)
		return ChangeEvent{}, false
	}
	return event, true
}
