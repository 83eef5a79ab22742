package notificationstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/opshub/internal/app/store/storeerr"
	"github.com/dalemusser/opshub/internal/app/system/retry"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store holds one document per (recipient, event).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// Deliver writes n for its recipient unless a copy for the same event is
// already there. inserted is false for a replayed delivery.
func (s *Store) Deliver(ctx context.Context, n models.Notification) (inserted bool, err error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.Read = false
	n.ReadAt = nil

	res, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": n.UserID, "event_id": n.EventID},
		bson.M{"$setOnInsert": n},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Two concurrent upserts for the same key: the loser sees E11000.
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, storeerr.Wrap("notification", err)
	}
	return res.UpsertedCount > 0, nil
}

// List returns the recipient's notifications, newest first.
func (s *Store) List(ctx context.Context, uid string, unreadOnly bool, limit int64) ([]models.Notification, error) {
	q := bson.M{"user_id": uid}
	if unreadOnly {
		q["read"] = false
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	out := []models.Notification{}
	err := retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, q, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		return cur.All(ctx, &out)
	})
	if err != nil {
		return nil, storeerr.Wrap("notifications", err)
	}
	return out, nil
}

// MarkRead marks one of uid's notifications read. Marking an already-read
// notification is a no-op. A notification owned by someone else is
// reported as errs.ErrNotFound.
func (s *Store) MarkRead(ctx context.Context, uid, id string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": uid, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}},
	)
	if err != nil {
		return storeerr.Wrap("notification", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id, "user_id": uid})
	if err != nil {
		return storeerr.Wrap("notification", err)
	}
	if n == 0 {
		return fmt.Errorf("notification %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// MarkAllRead marks every unread notification of uid read.
func (s *Store) MarkAllRead(ctx context.Context, uid string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": uid, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, storeerr.Wrap("notifications", err)
	}
	return res.ModifiedCount, nil
}

// UnreadCount counts uid's unread notifications.
func (s *Store) UnreadCount(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		var err error
		n, err = s.c.CountDocuments(ctx, bson.M{"user_id": uid, "read": false})
		return err
	})
	return n, storeerr.Wrap("notifications", err)
}

// CountForEvent counts delivered copies of one fan-out event.
func (s *Store) CountForEvent(ctx context.Context, eventID string) (int64, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"event_id": eventID})
	return n, storeerr.Wrap("notifications", err)
}
