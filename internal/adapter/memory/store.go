// Package memory provides an in-process Document Store. Data lives only as long
// as the process; it backs memory:// URLs, local runs and tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/pscheid92/rtspoverlay/internal/domain"
)

type OverlayRepo struct {
	mu      sync.RWMutex
	order   []string
	records map[string]domain.Fields
}

func NewOverlayRepo() *OverlayRepo {
	return &OverlayRepo{records: make(map[string]domain.Fields)}
}

// List returns overlays in insertion order.
func (r *OverlayRepo) List(ctx context.Context) ([]domain.Overlay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	overlays := make([]domain.Overlay, 0, len(r.order))
	for _, id := range r.order {
		overlays = append(overlays, domain.Overlay{ID: id, Fields: maps.Clone(r.records[id])})
	}
	return overlays, nil
}

func (r *OverlayRepo) Insert(ctx context.Context, fields domain.Fields) (*domain.Overlay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	stored := maps.Clone(fields)
	if stored == nil {
		stored = domain.Fields{}
	}

	r.mu.Lock()
	r.records[id] = stored
	r.order = append(r.order, id)
	r.mu.Unlock()

	return &domain.Overlay{ID: id, Fields: maps.Clone(stored)}, nil
}

// Merge applies patch under the write lock, so concurrent merges never interleave.
func (r *OverlayRepo) Merge(ctx context.Context, id string, patch domain.Fields) (*domain.Overlay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[id]
	if !ok {
		return nil, domain.ErrOverlayNotFound
	}
	maps.Copy(stored, patch)

	return &domain.Overlay{ID: id, Fields: maps.Clone(stored)}, nil
}

func (r *OverlayRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return domain.ErrOverlayNotFound
	}
	delete(r.records, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ping always succeeds.
func (r *OverlayRepo) Ping(context.Context) error { return nil }
