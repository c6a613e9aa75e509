package mongo

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	gomongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pscheid92/rtspoverlay/internal/domain"
)

const idField = "_id"

type OverlayRepo struct {
	coll *gomongo.Collection
}

var _ domain.OverlayRepository = (*OverlayRepo)(nil)

func NewOverlayRepo(coll *gomongo.Collection) *OverlayRepo {
	return &OverlayRepo{coll: coll}
}

// List returns overlays in the collection's natural order.
func (r *OverlayRepo) List(ctx context.Context) ([]domain.Overlay, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetProjection(overlayProjection()))
	if err != nil {
		return nil, fmt.Errorf("failed to list overlays: %w", err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read overlays: %w", err)
	}

	overlays := make([]domain.Overlay, 0, len(docs))
	for _, doc := range docs {
		overlays = append(overlays, toOverlay(doc))
	}
	return overlays, nil
}

func (r *OverlayRepo) Insert(ctx context.Context, fields domain.Fields) (*domain.Overlay, error) {
	doc := bson.M{}
	maps.Copy(doc, fields)

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to insert overlay: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return &domain.Overlay{ID: oid.Hex(), Fields: maps.Clone(fields)}, nil
}

// Merge applies patch with $set and returns the post-image in one round trip.
func (r *OverlayRepo) Merge(ctx context.Context, id string, patch domain.Fields) (*domain.Overlay, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrOverlayNotFound
	}

	set := bson.M{}
	maps.Copy(set, patch)

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(overlayProjection())
	var doc bson.M
	err = r.coll.FindOneAndUpdate(ctx, bson.M{idField: oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, gomongo.ErrNoDocuments) {
		return nil, domain.ErrOverlayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update overlay: %w", err)
	}

	overlay := toOverlay(doc)
	return &overlay, nil
}

func (r *OverlayRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrOverlayNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{idField: oid})
	if err != nil {
		return fmt.Errorf("failed to delete overlay: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrOverlayNotFound
	}
	return nil
}

// overlayProjection limits reads to _id and the known fields, so keys written to
// the collection by other tools never reach clients.
func overlayProjection() bson.D {
	names := domain.KnownFields()
	projection := make(bson.D, 0, len(names))
	for _, name := range names {
		projection = append(projection, bson.E{Key: name, Value: 1})
	}
	return projection
}

func toOverlay(doc bson.M) domain.Overlay {
	overlay := domain.Overlay{Fields: make(domain.Fields, len(doc))}
	for key, value := range doc {
		if key == idField {
			overlay.ID = idString(value)
			continue
		}
		overlay.Fields[key] = normalize(value)
	}
	return overlay
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// normalize converts driver container types into plain maps and slices so the
// values encode as ordinary JSON.
func normalize(v any) any {
	switch val := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = normalize(e)
		}
		return m
	case primitive.A:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = normalize(e)
		}
		return s
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Decimal128:
		return val.String()
	default:
		return val
	}
}
