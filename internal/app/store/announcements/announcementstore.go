package announcementstore

import (
	"context"

	"github.com/dalemusser/opshub/internal/app/store/storeerr"
	"github.com/dalemusser/opshub/internal/app/system/retry"
	"github.com/dalemusser/opshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("announcements")}
}

// Insert stores an announcement.
func (s *Store) Insert(ctx context.Context, a models.Announcement) error {
	_, err := s.c.InsertOne(ctx, a)
	return storeerr.Wrap("announcement", err)
}

// List returns announcements newest first.
func (s *Store) List(ctx context.Context, limit int64) ([]models.Announcement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	out := []models.Announcement{}
	err := retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		return cur.All(ctx, &out)
	})
	if err != nil {
		return nil, storeerr.Wrap("announcements", err)
	}
	return out, nil
}
