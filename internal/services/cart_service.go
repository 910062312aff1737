package services

import (
	"fmt"
	"log"
	"time"

	"localharvest/internal/models"
	"localharvest/internal/repositories"
)

// CartService implements the stock-reservation workflow: it keeps each
// cart's reservations in sync with the catalog's quantity-on-hand.
// Reserving decrements stock through the repository's atomic conditional
// update, so two concurrent reservations against the last unit allow
// exactly one to succeed.
type CartService struct {
	productRepo repositories.ProductRepository
	carts       repositories.CartStore
}

// NewCartService creates a new CartService.
func NewCartService(productRepo repositories.ProductRepository, carts repositories.CartStore) *CartService {
	return &CartService{
		productRepo: productRepo,
		carts:       carts,
	}
}

// CreateCart issues a fresh empty cart and returns it with its token.
func (s *CartService) CreateCart() (*models.Cart, error) {
	return s.carts.Create()
}

// GetCart returns the cart for the given token.
func (s *CartService) GetCart(token string) (*models.Cart, error) {
	return s.carts.Get(token)
}

// Reserve takes one unit of the product off the shelf and appends its
// snapshot to the cart. On ErrInsufficientStock the cart is left
// unchanged. The refreshed catalog is returned so callers converge on
// the same stock view.
func (s *CartService) Reserve(token, productID string) (*models.Cart, []models.Product, error) {
	if _, err := s.carts.Get(token); err != nil {
		return nil, nil, err
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, nil, err
	}

	// Decrement first: the conditional update is the only stock guard.
	if err := s.productRepo.AdjustStock(productID, -1); err != nil {
		return nil, nil, err
	}

	// The append happens under the store lock so two concurrent reserves
	// on the same token cannot lose each other's item.
	cart, err := s.carts.Update(token, func(cart *models.Cart) error {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID:   product.ID,
			Name:        product.Name,
			Price:       product.Price,
			ImageURL:    product.ImageURL,
			SellerEmail: product.SellerEmail,
		})
		return nil
	})
	if err != nil {
		// Put the unit back so the reservation ledger stays balanced.
		if restoreErr := s.productRepo.AdjustStock(productID, 1); restoreErr != nil {
			log.Printf("Warning: failed to restore stock for product %s after cart save error: %v", productID, restoreErr)
		}
		return nil, nil, fmt.Errorf("failed to save cart: %w", err)
	}

	catalog, err := s.productRepo.GetAll()
	if err != nil {
		return nil, nil, err
	}
	return cart, catalog, nil
}

// Release puts one reserved unit back on the shelf and removes the entry
// at the given index. The restore is unconditional: it only requires the
// product id to match, not proof that this unit came from that row, and
// a failed restore is logged rather than blocking removal.
func (s *CartService) Release(token string, index int) (*models.Cart, []models.Product, error) {
	cart, err := s.carts.Update(token, func(cart *models.Cart) error {
		if index < 0 || index >= len(cart.Items) {
			return fmt.Errorf("index %d: %w", index, ErrInvalidCartIndex)
		}
		item := cart.Items[index]
		if err := s.productRepo.AdjustStock(item.ProductID, 1); err != nil {
			log.Printf("Warning: failed to restore stock for product %s: %v", item.ProductID, err)
		}
		cart.Items = append(cart.Items[:index], cart.Items[index+1:]...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	catalog, err := s.productRepo.GetAll()
	if err != nil {
		return nil, nil, err
	}
	return cart, catalog, nil
}

// ReapExpired releases the reserved stock of every cart untouched for
// longer than ttl and deletes the cart, so an abandoned browser session
// cannot leak reserved units. Carts mid-finalization are skipped.
// Returns the number of carts reaped.
func (s *CartService) ReapExpired(ttl time.Duration) (int, error) {
	expired, err := s.carts.ExpiredBefore(time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to list expired carts: %w", err)
	}

	reaped := 0
	for _, cart := range expired {
		if cart.State == models.CheckoutFinalizing {
			continue
		}
		for _, item := range cart.Items {
			if err := s.productRepo.AdjustStock(item.ProductID, 1); err != nil {
				log.Printf("Warning: failed to restore stock for product %s while reaping cart %s: %v", item.ProductID, cart.Token, err)
			}
		}
		if err := s.carts.Delete(cart.Token); err != nil {
			log.Printf("Warning: failed to delete expired cart %s: %v", cart.Token, err)
			continue
		}
		reaped++
	}
	if reaped > 0 {
		log.Printf("Reaped %d expired cart(s)", reaped)
	}
	return reaped, nil
}

// StartReaper runs ReapExpired on the given interval until the returned
// stop function is called.
func (s *CartService) StartReaper(interval, ttl time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.ReapExpired(ttl); err != nil {
					log.Printf("Cart reaper error: %v", err)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
