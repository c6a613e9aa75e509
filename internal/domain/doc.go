// Package domain defines the overlay model and the contracts around it.
//
// overlay.go holds the record type and its field catalogue, errors.go the sentinel
// errors, events.go the change events, repository.go the Document Store contract.
// No I/O happens here.
package domain
