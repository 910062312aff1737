package models

import "time"

// CheckoutState is the finalization state of a cart.
type CheckoutState string

const (
	CheckoutIdle              CheckoutState = "idle"
	CheckoutCollectingAddress CheckoutState = "collecting_address"
	CheckoutFinalizing        CheckoutState = "finalizing"
	CheckoutCompleted         CheckoutState = "completed"
	CheckoutFailed            CheckoutState = "failed"
)

// CartItem is a snapshot of a product at the moment one unit of it was
// reserved. It is not a live reference: price and seller email are the
// values seen at reservation time. The same product may appear multiple
// times, one entry per reserved unit.
type CartItem struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	SellerEmail string  `json:"seller_email"`
}

// Cart is a server-side reservation ledger keyed by an opaque token.
// Items are kept in insertion order. Carts that go untouched past the
// configured TTL are reaped and their reserved stock released.
type Cart struct {
	Token     string        `json:"token"`
	Items     []CartItem    `json:"items"`
	State     CheckoutState `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Total sums the snapshot prices of every reserved unit.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price
	}
	return total
}

// DeliveryAddress is collected once per checkout and not persisted
// beyond the notification/payment call. State is the only optional field.
type DeliveryAddress struct {
	Name   string `json:"name" validate:"required"`
	Street string `json:"street" validate:"required"`
	City   string `json:"city" validate:"required"`
	State  string `json:"state"`
	Zip    string `json:"zip" validate:"required"`
	Phone  string `json:"phone" validate:"required"`
}

// Complete reports whether every required field is present.
func (a DeliveryAddress) Complete() bool {
	return a.Name != "" && a.Street != "" && a.City != "" && a.Zip != "" && a.Phone != ""
}
