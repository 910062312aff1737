package services

import (
	"fmt"
	"log"

	"localharvest/internal/checkout"
	"localharvest/internal/models"
	"localharvest/internal/repositories"

	"github.com/google/uuid"
)

// Finalize outcomes surfaced to the caller.
const (
	FinalizeCompleted   = "completed"
	FinalizeWithWarning = "completed_with_warning"
)

// SoldNotifier dispatches the seller notifications for a finalized cart.
// The NotificationService satisfies this.
type SoldNotifier interface {
	NotifySoldFromCart(orderID string, items []models.CartItem, buyer models.DeliveryAddress) error
}

// FinalizeResult is the outcome of a checkout finalization.
type FinalizeResult struct {
	Status  string         `json:"status"`
	Orders  []models.Order `json:"orders"`
	Warning string         `json:"warning,omitempty"`
}

// CheckoutService drives each cart through the finalization state
// machine: Idle -> CollectingAddress -> Finalizing -> Completed|Failed.
type CheckoutService struct {
	carts     repositories.CartStore
	orderRepo repositories.OrderRepository
	notifier  SoldNotifier
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(carts repositories.CartStore, orderRepo repositories.OrderRepository, notifier SoldNotifier) *CheckoutService {
	return &CheckoutService{
		carts:     carts,
		orderRepo: orderRepo,
		notifier:  notifier,
	}
}

// Begin opens address collection for the cart. A terminal state resets
// here. An empty cart is rejected with ErrEmptyCart.
func (s *CheckoutService) Begin(token string) (*models.Cart, error) {
	cart, err := s.carts.Get(token)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := checkout.CanTransition(cart.State, models.CheckoutCollectingAddress); err != nil {
		return nil, err
	}
	cart.State = models.CheckoutCollectingAddress
	if err := s.carts.Save(cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// Cancel abandons address collection and returns the cart to Idle.
func (s *CheckoutService) Cancel(token string) (*models.Cart, error) {
	cart, err := s.carts.Get(token)
	if err != nil {
		return nil, err
	}
	if err := checkout.CanTransition(cart.State, models.CheckoutIdle); err != nil {
		return nil, err
	}
	cart.State = models.CheckoutIdle
	if err := s.carts.Save(cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// Finalize completes the checkout. An incomplete address refuses the
// transition and leaves the cart in CollectingAddress. Once order rows
// are written the cart is always cleared and Completed is declared, even
// when notification dispatch fails; that case carries a warning telling
// the user to contact support. A fault while writing orders (before the
// notification attempt) moves the cart to Failed and preserves its items
// for retry.
func (s *CheckoutService) Finalize(token string, addr models.DeliveryAddress) (*FinalizeResult, error) {
	cart, err := s.carts.Get(token)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if !addr.Complete() {
		return nil, ErrIncompleteAddress
	}
	if err := checkout.CanTransition(cart.State, models.CheckoutFinalizing); err != nil {
		return nil, err
	}
	cart.State = models.CheckoutFinalizing
	if err := s.carts.Save(cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	checkoutID := uuid.New().String()
	orders, err := s.createOrders(checkoutID, cart)
	if err != nil {
		// Internal fault before the notification attempt: keep the cart.
		cart.State = models.CheckoutFailed
		if saveErr := s.carts.Save(cart); saveErr != nil {
			log.Printf("Warning: failed to record failed checkout for cart %s: %v", cart.Token, saveErr)
		}
		return nil, fmt.Errorf("failed to create orders: %w", err)
	}

	result := &FinalizeResult{Status: FinalizeCompleted, Orders: orders}
	if s.notifier != nil {
		if err := s.notifier.NotifySoldFromCart(checkoutID, cart.Items, addr); err != nil {
			log.Printf("Notification dispatch failed for checkout %s: %v", checkoutID, err)
			result.Status = FinalizeWithWarning
			result.Warning = "Order placed, but seller notification failed. Please contact support."
		}
	}

	// Completion is unconditional from here: the cart is cleared whatever
	// the notification outcome was.
	cart.Items = []models.CartItem{}
	cart.State = models.CheckoutCompleted
	if err := s.carts.Save(cart); err != nil {
		log.Printf("Warning: failed to clear cart %s after checkout %s: %v", cart.Token, checkoutID, err)
	}
	return result, nil
}

// createOrders writes one order row per distinct product in the cart,
// with quantity equal to the number of reserved units.
func (s *CheckoutService) createOrders(checkoutID string, cart *models.Cart) ([]models.Order, error) {
	type bucket struct {
		name     string
		quantity int
		total    float64
	}
	grouped := make(map[string]*bucket)
	var productOrder []string
	for _, item := range cart.Items {
		b, ok := grouped[item.ProductID]
		if !ok {
			b = &bucket{name: item.Name}
			grouped[item.ProductID] = b
			productOrder = append(productOrder, item.ProductID)
		}
		b.quantity++
		b.total += item.Price
	}

	var orders []models.Order
	for _, productID := range productOrder {
		b := grouped[productID]
		order := models.Order{
			ProductID:   productID,
			ProductName: b.name,
			Quantity:    b.quantity,
			TotalPrice:  b.total,
		}
		if err := s.orderRepo.Create(&order); err != nil {
			return nil, fmt.Errorf("checkout %s: %w", checkoutID, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}
