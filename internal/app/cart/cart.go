// Package cart keeps one cart per user and computes its total.
package cart

import (
	"context"
	"fmt"
	"math"
	"strings"

	cartstore "github.com/dalemusser/opshub/internal/app/store/carts"
	"github.com/dalemusser/opshub/internal/app/system/sanitize"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// addAttempts bounds the increment-or-push loop in AddItem. Each retry
// means another writer created the same line in between.
const addAttempts = 3

// Service wraps the cart store with item validation.
type Service struct {
	store *cartstore.Store
	log   *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Service {
	return &Service{store: cartstore.New(db), log: logger}
}

// Input is a cart line as a client sends it. Price and quantity may arrive
// as numbers or strings.
type Input struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    any    `json:"price"`
	Quantity any    `json:"quantity"`
	ImageURL string `json:"image_url"`
	Desc     string `json:"desc"`
}

// Item converts in to a stored line. A price that is not a finite,
// non-negative number becomes 0; a quantity below 1 or unparseable becomes 1.
func (in Input) Item() models.CartItem {
	return models.CartItem{
		ID:       strings.TrimSpace(in.ID),
		Title:    sanitize.Text(in.Title),
		Price:    Price(in.Price),
		Quantity: Quantity(in.Quantity),
		ImageURL: strings.TrimSpace(in.ImageURL),
		Desc:     sanitize.Text(in.Desc),
	}
}

// Price coerces v to a usable unit price.
func Price(v any) float64 {
	if v == nil {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Quantity coerces v to a quantity of at least 1.
func Quantity(v any) int {
	if v == nil {
		return 1
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Get returns uid's cart.
func (s *Service) Get(ctx context.Context, uid string) (models.Cart, error) {
	return s.store.Get(ctx, uid)
}

// AddItem adds qty of item. An existing line has its quantity raised;
// otherwise the line is appended with quantity qty. qty < 1 counts as 1.
func (s *Service) AddItem(ctx context.Context, uid string, item models.CartItem, qty int) (models.Cart, error) {
	if item.ID == "" {
		return models.Cart{}, errs.Invalid("id", "required")
	}
	if qty < 1 {
		qty = 1
	}
	item.Price = Price(item.Price)
	item.Quantity = qty

	for i := 0; i < addAttempts; i++ {
		matched, err := s.store.Increment(ctx, uid, item.ID, qty)
		if err != nil {
			return models.Cart{}, err
		}
		if matched {
			return s.store.Get(ctx, uid)
		}
		pushed, err := s.store.Push(ctx, uid, item)
		if err != nil {
			return models.Cart{}, err
		}
		if pushed {
			return s.store.Get(ctx, uid)
		}
		s.log.Debug("cart line appeared concurrently; retrying", zap.String("uid", uid), zap.String("item", item.ID))
	}
	return models.Cart{}, fmt.Errorf("add %s to cart: %w", item.ID, errs.ErrStoreUnavailable)
}

// Increment raises itemID's quantity by one.
func (s *Service) Increment(ctx context.Context, uid, itemID string) (models.Cart, error) {
	matched, err := s.store.Increment(ctx, uid, itemID, 1)
	if err != nil {
		return models.Cart{}, err
	}
	if !matched {
		return models.Cart{}, missing(itemID)
	}
	return s.store.Get(ctx, uid)
}

// Decrement lowers itemID's quantity by one. At quantity 1 it does nothing;
// use RemoveItem to drop the line.
func (s *Service) Decrement(ctx context.Context, uid, itemID string) (models.Cart, error) {
	matched, err := s.store.Decrement(ctx, uid, itemID)
	if err != nil {
		return models.Cart{}, err
	}
	c, err := s.store.Get(ctx, uid)
	if err != nil {
		return models.Cart{}, err
	}
	if !matched {
		if _, ok := c.Item(itemID); !ok {
			return models.Cart{}, missing(itemID)
		}
	}
	return c, nil
}

// RemoveItem drops itemID from the cart.
func (s *Service) RemoveItem(ctx context.Context, uid, itemID string) (models.Cart, error) {
	removed, err := s.store.Remove(ctx, uid, itemID)
	if err != nil {
		return models.Cart{}, err
	}
	if !removed {
		return models.Cart{}, missing(itemID)
	}
	return s.store.Get(ctx, uid)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, uid string) (models.Cart, error) {
	if err := s.store.Clear(ctx, uid); err != nil {
		return models.Cart{}, err
	}
	return s.store.Get(ctx, uid)
}

// ComputeTotal returns Σ price×quantity for c, never negative.
func ComputeTotal(c models.Cart) float64 {
	return c.Total()
}

func missing(itemID string) error {
	return fmt.Errorf("cart item %s: %w", itemID, errs.ErrNotFound)
}
