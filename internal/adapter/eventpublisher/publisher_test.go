package eventpublisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/rtspoverlay/internal/adapter/metrics"
	"github.com/pscheid92/rtspoverlay/internal/domain"
)

type mockBroadcaster struct {
	events []domain.OverlayEvent
}

func (m *mockBroadcaster) Broadcast(event domain.OverlayEvent) {
	m.events = append(m.events, event)
}

type mockRemote struct {
	publishFn func(ctx context.Context, event domain.OverlayEvent) error
}

func (m *mockRemote) PublishOverlayEvent(ctx context.Context, event domain.OverlayEvent) error {
	if m.publishFn != nil {
		return m.publishFn(ctx, event)
	}
	return nil
}

func TestPublishOverlayEvent_LocalOnly(t *testing.T) {
	local := &mockBroadcaster{}
	m := metrics.NewEventMetrics(prometheus.NewRegistry())
	ep := New(local, nil, m)

	event := domain.OverlayEvent{Action: domain.OverlayCreated, ID: "abc"}
	require.NoError(t, ep.PublishOverlayEvent(context.Background(), event))

	assert.Equal(t, []domain.OverlayEvent{event}, local.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Published.WithLabelValues("created")))
}

func TestPublishOverlayEvent_ForwardsToPeers(t *testing.T) {
	local := &mockBroadcaster{}
	var forwarded []domain.OverlayEvent
	remote := &mockRemote{publishFn: func(_ context.Context, event domain.OverlayEvent) error {
		forwarded = append(forwarded, event)
		return nil
	}}
	ep := New(local, remote, nil)

	event := domain.OverlayEvent{Action: domain.OverlayUpdated, ID: "abc", Origin: "node-a"}
	require.NoError(t, ep.PublishOverlayEvent(context.Background(), event))

	assert.Len(t, local.events, 1)
	assert.Equal(t, []domain.OverlayEvent{event}, forwarded)
}

func TestPublishOverlayEvent_PeerFailureStillDeliversLocally(t *testing.T) {
	local := &mockBroadcaster{}
	remote := &mockRemote{publishFn: func(context.Context, domain.OverlayEvent) error {
		return errors.New("redis circuit breaker open")
	}}
	m := metrics.NewEventMetrics(prometheus.NewRegistry())
	ep := New(local, remote, m)

	err := ep.PublishOverlayEvent(context.Background(), domain.OverlayEvent{Action: domain.OverlayDeleted, ID: "abc"})

	assert.ErrorContains(t, err, "publish to peers")
	assert.Len(t, local.events, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures.WithLabelValues("redis")))
}

func TestPublishOverlayEvent_PeerPublishIsBounded(t *testing.T) {
	local := &mockBroadcaster{}
	remote := &mockRemote{publishFn: func(ctx context.Context, _ domain.OverlayEvent) error {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			return errors.New("no deadline on peer publish")
		}
		<-ctx.Done()
		return ctx.Err()
	}}
	m := metrics.NewEventMetrics(prometheus.NewRegistry())
	ep := New(local, remote, m)
	ep.timeout = 20 * time.Millisecond

	start := time.Now()
	err := ep.PublishOverlayEvent(context.Background(), domain.OverlayEvent{Action: domain.OverlayDeleted, ID: "abc"})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, local.events, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures.WithLabelValues("redis")))
}
