package domain

import "errors"

// The messages double as the client-facing error text.
var (
	ErrMissingFields   = errors.New("Missing required fields")
	ErrNoValidFields   = errors.New("No valid fields to update")
	ErrOverlayNotFound = errors.New("Overlay not found")
)
