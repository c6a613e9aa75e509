package app

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/rtspoverlay/internal/domain"
)

// Service is the Overlay Service. It validates client input against the field
// catalogue, delegates persistence to the repository and announces committed changes.
// Store errors pass through unwrapped since the adapters already name the failing operation.
type Service struct {
	overlays  domain.OverlayRepository
	publisher domain.EventPublisher
	stream    domain.StreamConfig
	clock     clockwork.Clock
	origin    string
}

// NewService creates the application layer service.
// publisher may be nil, in which case change events are dropped.
// origin tags published events so other instances can ignore their own echoes.
func NewService(overlays domain.OverlayRepository, publisher domain.EventPublisher, stream domain.StreamConfig, clock clockwork.Clock, origin string) *Service {
	if publisher == nil {
		publisher = domain.NoopPublisher{}
	}
	return &Service{
		overlays:  overlays,
		publisher: publisher,
		stream:    stream,
		clock:     clock,
		origin:    origin,
	}
}

// ListOverlays returns every stored overlay. The result is never nil.
func (s *Service) ListOverlays(ctx context.Context) ([]domain.Overlay, error) {
	overlays, err := s.overlays.List(ctx)
	if err != nil {
		return nil, err
	}
	if overlays == nil {
		overlays = []domain.Overlay{}
	}
	return overlays, nil
}

// CreateOverlay stores a new overlay built from input.
func (s *Service) CreateOverlay(ctx context.Context, input map[string]any) (*domain.Overlay, error) {
	fields, err := domain.NewOverlayFields(input)
	if err != nil {
		return nil, err
	}

	overlay, err := s.overlays.Insert(ctx, fields)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.OverlayCreated, overlay.ID, overlay)
	return overlay, nil
}

// UpdateOverlay merges the known fields of input into the overlay with the given id.
func (s *Service) UpdateOverlay(ctx context.Context, id string, input map[string]any) (*domain.Overlay, error) {
	patch, err := domain.NewPatch(input)
	if err != nil {
		return nil, err
	}

	overlay, err := s.overlays.Merge(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Overlay updated", "overlay_id", overlay.ID, "fields", patch.Names())

	s.publish(ctx, domain.OverlayUpdated, overlay.ID, overlay)
	return overlay, nil
}

// DeleteOverlay removes the overlay with the given id.
func (s *Service) DeleteOverlay(ctx context.Context, id string) error {
	if err := s.overlays.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, domain.OverlayDeleted, id, nil)
	return nil
}

func (s *Service) StreamConfig() domain.StreamConfig {
	return s.stream
}

// publish is best-effort: the change is already committed.
func (s *Service) publish(ctx context.Context, action domain.OverlayAction, id string, overlay *domain.Overlay) {
	event := domain.OverlayEvent{
		Action:  action,
		ID:      id,
		Overlay: overlay,
		At:      s.clock.Now(),
		Origin:  s.origin,
	}
	if err := s.publisher.PublishOverlayEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish overlay event", "action", action, "overlay_id", id, "error", err)
	}
}
