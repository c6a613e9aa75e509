// Package eventpublisher fans overlay change events out to local viewers and,
// when Redis is configured, to the other instances.
package eventpublisher

import (
	"context"
	"fmt"
	"time"

	"github.com/pscheid92/rtspoverlay/internal/adapter/metrics"
	"github.com/pscheid92/rtspoverlay/internal/domain"
)

// remotePublishTimeout bounds how long a write request waits on the peer fan-out.
const remotePublishTimeout = 2 * time.Second

// LocalBroadcaster delivers an event to this instance's viewers.
type LocalBroadcaster interface {
	Broadcast(event domain.OverlayEvent)
}

// EventPublisher implements domain.EventPublisher by composing the websocket hub
// and the Redis publisher.
type EventPublisher struct {
	local   LocalBroadcaster
	remote  domain.EventPublisher
	metrics *metrics.EventMetrics
	timeout time.Duration
}

// New creates the publisher. remote may be nil when running a single instance;
// m may be nil.
func New(local LocalBroadcaster, remote domain.EventPublisher, m *metrics.EventMetrics) *EventPublisher {
	return &EventPublisher{local: local, remote: remote, metrics: m, timeout: remotePublishTimeout}
}

func (ep *EventPublisher) PublishOverlayEvent(ctx context.Context, event domain.OverlayEvent) error {
	ep.local.Broadcast(event)
	if ep.metrics != nil {
		ep.metrics.Published.WithLabelValues(string(event.Action)).Inc()
	}

	if ep.remote == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, ep.timeout)
	defer cancel()

	if err := ep.remote.PublishOverlayEvent(ctx, event); err != nil {
		if ep.metrics != nil {
			ep.metrics.PublishFailures.WithLabelValues("redis").Inc()
		}
		return fmt.Errorf("publish to peers: %w", err)
	}
	return nil
}
