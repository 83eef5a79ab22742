package fanoutstore

import (
	"context"
	"time"

	"github.com/dalemusser/opshub/internal/app/store/storeerr"
	"github.com/dalemusser/opshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store records notification broadcasts until every copy is delivered.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("fanout_events")}
}

// Create records ev as pending.
func (s *Store) Create(ctx context.Context, ev models.FanoutEvent) error {
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now
	ev.Status = models.FanoutPending
	_, err := s.c.InsertOne(ctx, ev)
	return storeerr.Wrap("fanout event", err)
}

// Get loads one event.
func (s *Store) Get(ctx context.Context, id string) (models.FanoutEvent, error) {
	var ev models.FanoutEvent
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ev)
	return ev, storeerr.Wrap("fanout event", err)
}

// MarkDone closes the event after a delivery pass with no failures.
func (s *Store) MarkDone(ctx context.Context, id string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"status": models.FanoutDone, "updated_at": time.Now().UTC()},
		"$inc":   bson.M{"attempts": 1},
		"$unset": bson.M{"last_error": ""},
	})
	return storeerr.Wrap("fanout event", err)
}

// MarkFailed records a failed pass. The event stays pending until it has
// failed maxAttempts times, then moves to failed and is no longer replayed.
// A maxAttempts of 0 never gives up. gaveUp reports the move.
func (s *Store) MarkFailed(ctx context.Context, id, lastErr string, maxAttempts int) (gaveUp bool, err error) {
	var ev models.FanoutEvent
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"last_error": lastErr, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"attempts": 1},
	}, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&ev)
	if err != nil {
		return false, storeerr.Wrap("fanout event", err)
	}
	if maxAttempts <= 0 || ev.Attempts < maxAttempts || ev.Status != models.FanoutPending {
		return false, nil
	}
	_, err = s.c.UpdateOne(ctx, bson.M{"_id": id, "status": models.FanoutPending},
		bson.M{"$set": bson.M{"status": models.FanoutFailed}})
	if err != nil {
		return false, storeerr.Wrap("fanout event", err)
	}
	return true, nil
}

// Pending returns pending events last touched before cutoff, oldest first.
// The cutoff keeps a replay away from deliveries still in flight.
func (s *Store) Pending(ctx context.Context, cutoff time.Time, limit int64) ([]models.FanoutEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.c.Find(ctx,
		bson.M{"status": models.FanoutPending, "updated_at": bson.M{"$lt": cutoff}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, storeerr.Wrap("fanout events", err)
	}
	defer cur.Close(ctx)

	out := []models.FanoutEvent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeerr.Wrap("fanout events", err)
	}
	return out, nil
}
