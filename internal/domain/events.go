package domain

import (
	"context"
	"time"
)

type OverlayAction string

const (
	OverlayCreated OverlayAction = "created"
	OverlayUpdated OverlayAction = "updated"
	OverlayDeleted OverlayAction = "deleted"
)

// OverlayEvent describes a committed change. Overlay is nil for deletions.
// Origin identifies the process that made the change.
type OverlayEvent struct {
	Action  OverlayAction `json:"action"`
	ID      string        `json:"id"`
	Overlay *Overlay      `json:"overlay,omitempty"`
	At      time.Time     `json:"at"`
	Origin  string        `json:"origin,omitempty"`
}

// EventPublisher fans overlay changes out to viewers and other instances.
type EventPublisher interface {
	PublishOverlayEvent(ctx context.Context, event OverlayEvent) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishOverlayEvent(context.Context, OverlayEvent) error { return nil }
