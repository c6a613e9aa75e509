// Package postgres provides a Document Store backed by a PostgreSQL JSONB table.
//
// Uses pgx for connection pooling and tern to bootstrap the overlays table once under an
// advisory lock. Each overlay is one row; its fields live in a single jsonb column so the
// record stays schemaless like the MongoDB backend.
package postgres
