package accountstore

import (
	"context"
	"time"

	"github.com/dalemusser/opshub/internal/app/store/storeerr"
	"github.com/dalemusser/opshub/internal/app/system/normalize"
	"github.com/dalemusser/opshub/internal/app/system/retry"
	"github.com/dalemusser/opshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts")}
}

// Create inserts an account. A taken email yields errs.ErrDuplicate.
func (s *Store) Create(ctx context.Context, a models.Account) error {
	a.Email = normalize.Email(a.Email)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, a)
	return storeerr.Wrap("account", err)
}

// GetByEmail looks up an account by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	var a models.Account
	err := retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&a)
	})
	return a, storeerr.Wrap("account", err)
}

// TouchSignIn records the time of a successful sign-in.
func (s *Store) TouchSignIn(ctx context.Context, uid string, at time.Time) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": bson.M{"last_sign_in_at": at}})
	return storeerr.Wrap("account", err)
}

// Delete removes an account. It only undoes a sign-up whose profile write failed.
func (s *Store) Delete(ctx context.Context, uid string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": uid})
	return storeerr.Wrap("account", err)
}
