// internal/domain/models/cart.go
package models

import (
	"math"
	"time"
)

// CartItem is one line of a cart. Quantity is at least 1 while the item is present.
type CartItem struct {
	ID       string  `bson:"id" json:"id"`
	Title    string  `bson:"title" json:"title"`
	Price    float64 `bson:"price" json:"price"`
	Quantity int     `bson:"quantity" json:"quantity"`
	ImageURL string  `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Desc     string  `bson:"desc,omitempty" json:"desc,omitempty"`
}

// Cart is the per-user cart document, keyed by uid.
type Cart struct {
	UID       string     `bson:"_id" json:"uid"`
	Items     []CartItem `bson:"items" json:"items"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// Total returns Σ price×quantity. A malformed price counts as 0 and a
// malformed quantity as 1, so the result is never negative.
func (c Cart) Total() float64 {
	var total float64
	for _, it := range c.Items {
		price := it.Price
		if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
			price = 0
		}
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		total += price * float64(qty)
	}
	return total
}

// Item returns the line with the given id.
func (c Cart) Item(id string) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return CartItem{}, false
}
