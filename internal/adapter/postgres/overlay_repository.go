package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/rtspoverlay/internal/domain"
)

const (
	listOverlaysSQL  = `SELECT id::text, data FROM overlays ORDER BY seq`
	insertOverlaySQL = `INSERT INTO overlays (id, data) VALUES ($1, $2::jsonb)`
	mergeOverlaySQL  = `UPDATE overlays SET data = data || $2::jsonb WHERE id = $1 RETURNING data`
	deleteOverlaySQL = `DELETE FROM overlays WHERE id = $1`
)

type OverlayRepo struct {
	pool *pgxpool.Pool
}

var _ domain.OverlayRepository = (*OverlayRepo)(nil)

func NewOverlayRepo(pool *pgxpool.Pool) *OverlayRepo {
	return &OverlayRepo{pool: pool}
}

// List returns overlays in insertion order.
func (r *OverlayRepo) List(ctx context.Context) ([]domain.Overlay, error) {
	rows, err := r.pool.Query(ctx, listOverlaysSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list overlays: %w", err)
	}

	overlays, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Overlay, error) {
		var id string
		var data []byte
		if err := row.Scan(&id, &data); err != nil {
			return domain.Overlay{}, err
		}
		fields, err := decodeFields(data)
		if err != nil {
			return domain.Overlay{}, fmt.Errorf("overlay %s: %w", id, err)
		}
		return domain.Overlay{ID: id, Fields: fields}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read overlays: %w", err)
	}
	return overlays, nil
}

func (r *OverlayRepo) Insert(ctx context.Context, fields domain.Fields) (*domain.Overlay, error) {
	data, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	if _, err := r.pool.Exec(ctx, insertOverlaySQL, id, data); err != nil {
		return nil, fmt.Errorf("failed to insert overlay: %w", err)
	}

	stored, err := decodeFields([]byte(data))
	if err != nil {
		return nil, err
	}
	return &domain.Overlay{ID: id.String(), Fields: stored}, nil
}

// Merge uses the jsonb concatenation operator so the read-modify-write happens
// inside a single statement.
func (r *OverlayRepo) Merge(ctx context.Context, id string, patch domain.Fields) (*domain.Overlay, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrOverlayNotFound
	}

	data, err := encodeFields(patch)
	if err != nil {
		return nil, err
	}

	var merged []byte
	err = r.pool.QueryRow(ctx, mergeOverlaySQL, key, data).Scan(&merged)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOverlayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update overlay: %w", err)
	}

	fields, err := decodeFields(merged)
	if err != nil {
		return nil, err
	}
	return &domain.Overlay{ID: key.String(), Fields: fields}, nil
}

func (r *OverlayRepo) Delete(ctx context.Context, id string) error {
	key, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrOverlayNotFound
	}

	tag, err := r.pool.Exec(ctx, deleteOverlaySQL, key)
	if err != nil {
		return fmt.Errorf("failed to delete overlay: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOverlayNotFound
	}
	return nil
}

func (r *OverlayRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func encodeFields(fields domain.Fields) (string, error) {
	if fields == nil {
		fields = domain.Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode overlay fields: %w", err)
	}
	return string(data), nil
}

func decodeFields(data []byte) (domain.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields domain.Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode overlay fields: %w", err)
	}
	if fields == nil {
		fields = domain.Fields{}
	}
	return fields, nil
}
