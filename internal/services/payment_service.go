package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentOrder is a payment-intent handed to the gateway's collection UI.
// Amount is in minor units (the gateway convention).
type PaymentOrder struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// PaymentService implements the gateway round trip: create an intent,
// then verify the gateway callback's HMAC signature before declaring the
// payment authentic.
type PaymentService struct {
	keyID     string
	keySecret []byte
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(keyID, keySecret string) *PaymentService {
	return &PaymentService{
		keyID:     keyID,
		keySecret: []byte(keySecret),
	}
}

// KeyID returns the public gateway key for the collection UI.
func (s *PaymentService) KeyID() string {
	return s.keyID
}

// CreateOrder creates a payment-intent for the given amount in major
// currency units.
func (s *PaymentService) CreateOrder(amount float64) (*PaymentOrder, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive, got %v", amount)
	}
	return &PaymentOrder{
		OrderID:  "order_" + uuid.New().String(),
		Amount:   int64(amount * 100), // major units to minor units
		Currency: "INR",
		Receipt:  fmt.Sprintf("receipt_%d", time.Now().UnixMilli()),
	}, nil
}

// Verify checks the gateway signature: HMAC-SHA256 over
// "orderID|paymentID" with the shared secret, hex encoded. A mismatch
// yields ErrSignatureMismatch and the caller must not touch the cart.
func (s *PaymentService) Verify(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, s.keySecret)
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
