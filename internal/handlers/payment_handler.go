package handlers

import (
	"errors"
	"log"

	"localharvest/internal/models"
	"localharvest/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles the payment-gateway round trip.
type PaymentHandler struct {
	paymentService  *services.PaymentService
	checkoutService *services.CheckoutService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *services.PaymentService, checkoutService *services.CheckoutService) *PaymentHandler {
	return &PaymentHandler{
		paymentService:  paymentService,
		checkoutService: checkoutService,
	}
}

// RegisterRoutes registers the payment routes with the Fiber app.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payment")
	paymentRoutes.Post("/create-order", h.HandleCreateOrder)
	paymentRoutes.Post("/verify", h.HandleVerify)
}

// CreatePaymentRequest represents the request body for payment-intent
// creation. Amount is in major currency units.
type CreatePaymentRequest struct {
	Amount float64 `json:"amount"`
}

// HandleCreateOrder creates a payment-intent for the gateway's
// collection UI.
func (h *PaymentHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	order, err := h.paymentService.CreateOrder(req.Amount)
	if err != nil {
		log.Printf("Payment order creation error: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to create payment order",
		})
	}
	return c.JSON(order)
}

// VerifyPaymentRequest represents the gateway callback. CartToken and
// Address are supplied when the payment concludes a cart checkout; a
// verified signature then finalizes it like the pay-on-delivery path.
type VerifyPaymentRequest struct {
	OrderID   string                 `json:"orderId"`
	PaymentID string                 `json:"paymentId"`
	Signature string                 `json:"signature"`
	CartToken string                 `json:"cartToken"`
	Address   models.DeliveryAddress `json:"address"`
}

// HandleVerify checks the gateway signature. A mismatch leaves the cart
// untouched so the user may retry.
func (h *PaymentHandler) HandleVerify(c *fiber.Ctx) error {
	var req VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.paymentService.Verify(req.OrderID, req.PaymentID, req.Signature); err != nil {
		if errors.Is(err, services.ErrSignatureMismatch) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid signature",
			})
		}
		log.Printf("Payment verify error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}

	if req.CartToken == "" {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Payment verified successfully",
		})
	}

	result, err := h.checkoutService.Finalize(req.CartToken, req.Address)
	if err != nil {
		log.Printf("Error finalizing checkout after payment %s: %v", req.PaymentID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Payment verified but checkout failed, your cart has been preserved",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment verified successfully",
		"result":  result,
	})
}
