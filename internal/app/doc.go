// Package app provides the application service layer.
//
// Orchestrates the overlay use cases: list, create, update, delete and read-config.
// Sits between HTTP handlers and the Document Store. Depends on domain interfaces, not concrete implementations.
package app
