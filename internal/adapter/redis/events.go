package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/rtspoverlay/internal/adapter/metrics"
	"github.com/pscheid92/rtspoverlay/internal/domain"
)

const overlayEventsChannel = "overlays:events"

// EventPublisher sends overlay events to every subscribed instance.
type EventPublisher struct {
	rdb *goredis.Client
}

var _ domain.EventPublisher = (*EventPublisher)(nil)

func NewEventPublisher(rdb *goredis.Client) *EventPublisher {
	return &EventPublisher{rdb: rdb}
}

func (p *EventPublisher) PublishOverlayEvent(ctx context.Context, event domain.OverlayEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal overlay event: %w", err)
	}
	if err := p.rdb.Publish(ctx, overlayEventsChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish overlay event: %w", err)
	}
	return nil
}

// Broadcaster delivers an event to this instance's viewers.
type Broadcaster interface {
	Broadcast(event domain.OverlayEvent)
}

// EventSubscriber relays overlay events from other instances to local viewers.
// Events carrying this instance's origin were already delivered locally and are skipped.
type EventSubscriber struct {
	rdb     *goredis.Client
	origin  string
	local   Broadcaster
	metrics *metrics.EventMetrics
}

// NewEventSubscriber creates a subscriber. m may be nil.
func NewEventSubscriber(rdb *goredis.Client, origin string, local Broadcaster, m *metrics.EventMetrics) *EventSubscriber {
	return &EventSubscriber{rdb: rdb, origin: origin, local: local, metrics: m}
}

// Start blocks until ctx is cancelled or the subscription is closed.
func (s *EventSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, overlayEventsChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			s.handleMessage(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *EventSubscriber) handleMessage(payload string) {
	var event domain.OverlayEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Warn("Discarding malformed overlay event", "error", err)
		return
	}

	if event.Origin == s.origin {
		return
	}

	s.local.Broadcast(event)
	if s.metrics != nil {
		s.metrics.Relayed.Inc()
	}
	slog.Debug("Relayed overlay event from peer", "action", event.Action, "overlay_id", event.ID, "origin", event.Origin)
}
