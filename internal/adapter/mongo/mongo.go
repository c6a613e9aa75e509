// Package mongo provides the Document Store on MongoDB. Records live in a single
// "overlays" collection of the database named in the connection URI.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gomongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/pscheid92/rtspoverlay/internal/platform/retry"
)

const (
	defaultDatabase   = "rtsp_overlay_db"
	overlayCollection = "overlays"
	disconnectTimeout = 5 * time.Second
)

// Store owns the client connection and the database selected by the URI path.
type Store struct {
	client *gomongo.Client
	db     *gomongo.Database
}

// Connect dials the server and verifies it with a ping against the primary.
func Connect(ctx context.Context, uri string) (*Store, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to parse database URL: %w", err))
	}

	client, err := gomongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		disconnect(client)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	name := databaseName(cs)
	slog.Info("Database connected", "backend", "mongodb", "database", name, "hosts", cs.Hosts)
	return &Store{client: client, db: client.Database(name)}, nil
}

func databaseName(cs *connstring.ConnString) string {
	if cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() {
	disconnect(s.client)
}

// Overlays returns the repository over the overlays collection.
func (s *Store) Overlays() *OverlayRepo {
	return NewOverlayRepo(s.db.Collection(overlayCollection))
}

func disconnect(client *gomongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		slog.Error("failed to disconnect from mongo", "error", err)
	}
}
