package handlers

import (
	"errors"
	"log"
	"strconv"

	"localharvest/internal/models"
	"localharvest/internal/repositories"
	"localharvest/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for carts and their checkout.
type CartHandler struct {
	cartService     *services.CartService
	checkoutService *services.CheckoutService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cartService *services.CartService, checkoutService *services.CheckoutService) *CartHandler {
	return &CartHandler{
		cartService:     cartService,
		checkoutService: checkoutService,
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Post("/", h.HandleCreateCart)
	cartRoutes.Get("/:token", h.HandleGetCart)
	cartRoutes.Post("/:token/items", h.HandleReserve)
	cartRoutes.Delete("/:token/items/:index", h.HandleRelease)
	cartRoutes.Post("/:token/checkout", h.HandleBeginCheckout)
	cartRoutes.Delete("/:token/checkout", h.HandleCancelCheckout)
	cartRoutes.Post("/:token/checkout/finalize", h.HandleFinalize)
}

// HandleCreateCart issues a new cart token.
func (h *CartHandler) HandleCreateCart(c *fiber.Ctx) error {
	cart, err := h.cartService.CreateCart()
	if err != nil {
		log.Printf("Error creating cart: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create cart",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(cart)
}

// HandleGetCart returns the cart contents and checkout state.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.cartService.GetCart(c.Params("token"))
	if err != nil {
		if errors.Is(err, repositories.ErrCartNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Cart not found",
			})
		}
		log.Printf("Error getting cart: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get cart",
		})
	}
	return c.JSON(cart)
}

// ReserveRequest represents the request body for a reservation.
type ReserveRequest struct {
	ProductID string `json:"productId"`
}

// HandleReserve reserves one unit of a product into the cart.
func (h *CartHandler) HandleReserve(c *fiber.Ctx) error {
	var req ReserveRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "productId is required",
		})
	}

	cart, catalog, err := h.cartService.Reserve(c.Params("token"), req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCartNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Cart not found",
			})
		case errors.Is(err, repositories.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		case errors.Is(err, repositories.ErrInsufficientStock):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Insufficient stock",
			})
		default:
			log.Printf("Error reserving product %s: %v", req.ProductID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to add to cart",
			})
		}
	}
	return c.JSON(fiber.Map{
		"cart":     cart,
		"products": catalog,
	})
}

// HandleRelease removes the cart entry at the given index and restores
// the product's stock.
func (h *CartHandler) HandleRelease(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid item index",
		})
	}

	cart, catalog, err := h.cartService.Release(c.Params("token"), index)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCartNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Cart not found",
			})
		case errors.Is(err, services.ErrInvalidCartIndex):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Cart item not found",
			})
		default:
			log.Printf("Error releasing cart item %d: %v", index, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to remove from cart",
			})
		}
	}
	return c.JSON(fiber.Map{
		"cart":     cart,
		"products": catalog,
	})
}

// HandleBeginCheckout opens address collection for the cart.
func (h *CartHandler) HandleBeginCheckout(c *fiber.Ctx) error {
	cart, err := h.checkoutService.Begin(c.Params("token"))
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCartNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Cart not found",
			})
		case errors.Is(err, services.ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Your cart is empty",
			})
		default:
			log.Printf("Error beginning checkout: %v", err)
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}
	return c.JSON(cart)
}

// HandleCancelCheckout abandons address collection.
func (h *CartHandler) HandleCancelCheckout(c *fiber.Ctx) error {
	cart, err := h.checkoutService.Cancel(c.Params("token"))
	if err != nil {
		if errors.Is(err, repositories.ErrCartNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Cart not found",
			})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(cart)
}

// FinalizeRequest represents the request body for checkout finalization.
type FinalizeRequest struct {
	Address models.DeliveryAddress `json:"address"`
}

// HandleFinalize completes the checkout with the supplied delivery
// address.
func (h *CartHandler) HandleFinalize(c *fiber.Ctx) error {
	var req FinalizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.checkoutService.Finalize(c.Params("token"), req.Address)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCartNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Cart not found",
			})
		case errors.Is(err, services.ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Your cart is empty",
			})
		case errors.Is(err, services.ErrIncompleteAddress):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Please fill in all required fields",
			})
		default:
			log.Printf("Error finalizing checkout: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Checkout failed, your cart has been preserved",
			})
		}
	}
	return c.JSON(result)
}
