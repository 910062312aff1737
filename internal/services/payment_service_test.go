package services_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"localharvest/internal/services"

	"github.com/stretchr/testify/assert"
)

func gatewaySign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentService_CreateOrder(t *testing.T) {
	paymentService := services.NewPaymentService("key_id", "key_secret")

	order, err := paymentService.CreateOrder(150.0)
	assert.NoError(t, err)
	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, int64(15000), order.Amount) // minor units
	assert.Equal(t, "INR", order.Currency)
	assert.NotEmpty(t, order.Receipt)

	_, err = paymentService.CreateOrder(0)
	assert.Error(t, err)
	_, err = paymentService.CreateOrder(-10)
	assert.Error(t, err)
}

func TestPaymentService_Verify(t *testing.T) {
	const secret = "key_secret"
	paymentService := services.NewPaymentService("key_id", secret)

	orderID := "order_abc"
	paymentID := "pay_xyz"

	// A signature produced with the shared secret verifies.
	signature := gatewaySign(secret, orderID, paymentID)
	assert.NoError(t, paymentService.Verify(orderID, paymentID, signature))

	// Tampering with any component fails verification.
	assert.ErrorIs(t, paymentService.Verify("order_other", paymentID, signature), services.ErrSignatureMismatch)
	assert.ErrorIs(t, paymentService.Verify(orderID, "pay_other", signature), services.ErrSignatureMismatch)
	assert.ErrorIs(t, paymentService.Verify(orderID, paymentID, "deadbeef"), services.ErrSignatureMismatch)

	// A signature from a different secret fails.
	forged := gatewaySign("wrong_secret", orderID, paymentID)
	assert.ErrorIs(t, paymentService.Verify(orderID, paymentID, forged), services.ErrSignatureMismatch)
}
