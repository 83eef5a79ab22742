package cartstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/opshub/internal/app/store/storeerr"
	"github.com/dalemusser/opshub/internal/app/system/retry"
	"github.com/dalemusser/opshub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store keeps one cart document per uid. Every mutation touches a single
// item with an atomic operator; the items array is never rewritten whole.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("carts")}
}

// Get returns uid's cart; a user without one gets an empty cart.
func (s *Store) Get(ctx context.Context, uid string) (models.Cart, error) {
	var c models.Cart
	err := retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&c)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cart{UID: uid, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return models.Cart{}, storeerr.Wrap("cart", err)
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return c, nil
}

// Increment adds by to the quantity of itemID. matched is false when the
// item is not in the cart.
func (s *Store) Increment(ctx context.Context, uid, itemID string, by int) (matched bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid, "items.id": itemID},
		bson.M{
			"$inc": bson.M{"items.$.quantity": by},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, storeerr.Wrap("cart", err)
	}
	return res.MatchedCount > 0, nil
}

// Push appends item when the cart does not hold its id yet, creating the
// cart if needed. pushed is false when the id is already present.
func (s *Store) Push(ctx context.Context, uid string, item models.CartItem) (pushed bool, err error) {
	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": uid, "items.id": bson.M{"$ne": item.ID}},
		bson.M{
			"$push": bson.M{"items": item},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// The cart exists and already has the item, so the filter missed and
		// the upsert collided with the existing _id.
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, storeerr.Wrap("cart", err)
	}
	return true, nil
}

// Decrement lowers the quantity of itemID by one while it is above 1.
// matched is false when the item is absent or already at 1.
func (s *Store) Decrement(ctx context.Context, uid, itemID string) (matched bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid, "items": bson.M{"$elemMatch": bson.M{"id": itemID, "quantity": bson.M{"$gt": 1}}}},
		bson.M{
			"$inc": bson.M{"items.$.quantity": -1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, storeerr.Wrap("cart", err)
	}
	return res.MatchedCount > 0, nil
}

// Remove pulls itemID from the cart. removed is false when it was absent.
func (s *Store) Remove(ctx context.Context, uid, itemID string) (removed bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid, "items.id": itemID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"id": itemID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, storeerr.Wrap("cart", err)
	}
	return res.ModifiedCount > 0, nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context, uid string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"items": bson.A{}, "updated_at": time.Now().UTC()}},
	)
	return storeerr.Wrap("cart", err)
}
