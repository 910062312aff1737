package repositories

import (
	"fmt"
	"sync"
	"time"

	"localharvest/internal/models"

	"github.com/google/uuid"
)

// CartStore holds server-side carts keyed by their opaque token. Carts are
// transient reservation ledgers, so the store is in-memory rather than a
// database table; a lost cart is recovered by the expiry reaper releasing
// its reserved stock.
type CartStore interface {
	Create() (*models.Cart, error)
	Get(token string) (*models.Cart, error)
	Save(cart *models.Cart) error
	// Update applies fn to the stored cart atomically, so concurrent
	// read-modify-write cycles on the same token cannot lose items. A
	// non-nil error from fn aborts the update and is returned as-is.
	Update(token string, fn func(cart *models.Cart) error) (*models.Cart, error)
	Delete(token string) error
	// ExpiredBefore returns carts whose last update predates the cutoff.
	ExpiredBefore(cutoff time.Time) ([]models.Cart, error)
}

// MemoryCartStore is a mutex-guarded in-memory CartStore.
type MemoryCartStore struct {
	carts map[string]models.Cart
	mu    sync.RWMutex
}

// NewMemoryCartStore creates a new instance of MemoryCartStore.
func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{
		carts: make(map[string]models.Cart),
	}
}

// Create issues a new empty cart with a fresh token.
func (s *MemoryCartStore) Create() (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cart := models.Cart{
		Token:     uuid.New().String(),
		Items:     []models.CartItem{},
		State:     models.CheckoutIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.carts[cart.Token] = cart
	return &cart, nil
}

// Get returns a copy of the cart for the given token.
func (s *MemoryCartStore) Get(token string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[token]
	if !ok {
		return nil, fmt.Errorf("cart %s: %w", token, ErrCartNotFound)
	}
	// Copy the item slice so callers cannot mutate stored state.
	items := make([]models.CartItem, len(cart.Items))
	copy(items, cart.Items)
	cart.Items = items
	return &cart, nil
}

// Save writes the cart back and refreshes its last-touched time.
func (s *MemoryCartStore) Save(cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[cart.Token]; !ok {
		return fmt.Errorf("cart %s: %w", cart.Token, ErrCartNotFound)
	}
	cart.UpdatedAt = time.Now()
	items := make([]models.CartItem, len(cart.Items))
	copy(items, cart.Items)
	stored := *cart
	stored.Items = items
	s.carts[cart.Token] = stored
	return nil
}

// Update applies fn to the cart under the store lock and writes the
// result back with a refreshed last-touched time. Returns a copy of the
// updated cart.
func (s *MemoryCartStore) Update(token string, fn func(cart *models.Cart) error) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.carts[token]
	if !ok {
		return nil, fmt.Errorf("cart %s: %w", token, ErrCartNotFound)
	}
	items := make([]models.CartItem, len(stored.Items))
	copy(items, stored.Items)
	stored.Items = items

	if err := fn(&stored); err != nil {
		return nil, err
	}
	stored.UpdatedAt = time.Now()
	s.carts[token] = stored

	out := stored
	out.Items = make([]models.CartItem, len(stored.Items))
	copy(out.Items, stored.Items)
	return &out, nil
}

// Delete removes a cart by its token.
func (s *MemoryCartStore) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[token]; !ok {
		return fmt.Errorf("cart %s: %w", token, ErrCartNotFound)
	}
	delete(s.carts, token)
	return nil
}

// ExpiredBefore returns copies of every cart untouched since the cutoff.
func (s *MemoryCartStore) ExpiredBefore(cutoff time.Time) ([]models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []models.Cart
	for _, cart := range s.carts {
		if cart.UpdatedAt.Before(cutoff) {
			items := make([]models.CartItem, len(cart.Items))
			copy(items, cart.Items)
			cart.Items = items
			expired = append(expired, cart)
		}
	}
	return expired, nil
}
