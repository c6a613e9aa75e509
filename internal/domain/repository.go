package domain

import "context"

// OverlayRepository is the Document Store. Implementations must be safe for
// concurrent use and assign identifiers that are never reused.
type OverlayRepository interface {
	// List returns every overlay in the store's natural order.
	List(ctx context.Context) ([]Overlay, error)
	// Insert stores fields as a new record and returns it with its new ID.
	Insert(ctx context.Context, fields Fields) (*Overlay, error)
	// Merge applies patch to the record with the given ID in one atomic step and
	// returns the merged record. Unknown or malformed IDs yield ErrOverlayNotFound.
	Merge(ctx context.Context, id string, patch Fields) (*Overlay, error)
	// Delete removes the record. Unknown or malformed IDs yield ErrOverlayNotFound.
	Delete(ctx context.Context, id string) error
}

// StreamConfig is the static configuration served to players.
type StreamConfig struct {
	RTSPURL string `json:"rtsp_url"`
}
