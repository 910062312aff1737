package services_test

import (
	"fmt"
	"testing"

	"localharvest/internal/models"
	"localharvest/internal/repositories"
	"localharvest/internal/services"

	"github.com/stretchr/testify/assert"
)

// recordingNotifier captures sold notifications and can be told to fail.
type recordingNotifier struct {
	fail    bool
	orderID string
	items   []models.CartItem
	buyer   models.DeliveryAddress
	calls   int
}

func (n *recordingNotifier) NotifySoldFromCart(orderID string, items []models.CartItem, buyer models.DeliveryAddress) error {
	n.calls++
	n.orderID = orderID
	n.items = items
	n.buyer = buyer
	if n.fail {
		return fmt.Errorf("broker unreachable")
	}
	return nil
}

// failingOrderRepository simulates a storage fault during finalization.
type failingOrderRepository struct {
	repositories.OrderRepository
}

func (failingOrderRepository) Create(order *models.Order) error {
	return fmt.Errorf("database unavailable")
}

var validAddress = models.DeliveryAddress{
	Name:   "Asha",
	Street: "12 Market Lane",
	City:   "Pune",
	State:  "MH",
	Zip:    "411001",
	Phone:  "9999999999",
}

func newCheckoutFixture(t *testing.T, notifier services.SoldNotifier) (*services.CheckoutService, *services.CartService, repositories.CartStore, string) {
	t.Helper()
	productRepo := repositories.NewMockProductRepository()
	assert.NoError(t, productRepo.Create(&models.Product{ID: "p1", Name: "Tomatoes", Price: 100.0, Stock: 5, SellerEmail: "farmer@example.com"}))
	assert.NoError(t, productRepo.Create(&models.Product{ID: "p2", Name: "Spinach", Price: 50.0, Stock: 5, SellerEmail: "farmer@example.com"}))

	carts := repositories.NewMemoryCartStore()
	cartService := services.NewCartService(productRepo, carts)
	checkoutService := services.NewCheckoutService(carts, repositories.NewMockOrderRepository(), notifier)

	cart, err := cartService.CreateCart()
	assert.NoError(t, err)
	return checkoutService, cartService, carts, cart.Token
}

func TestCheckoutService_BeginRejectsEmptyCart(t *testing.T) {
	checkoutService, _, _, token := newCheckoutFixture(t, nil)

	_, err := checkoutService.Begin(token)
	assert.ErrorIs(t, err, services.ErrEmptyCart)
}

func TestCheckoutService_BeginAndCancel(t *testing.T) {
	checkoutService, cartService, _, token := newCheckoutFixture(t, nil)
	_, _, err := cartService.Reserve(token, "p1")
	assert.NoError(t, err)

	cart, err := checkoutService.Begin(token)
	assert.NoError(t, err)
	assert.Equal(t, models.CheckoutCollectingAddress, cart.State)

	cart, err = checkoutService.Cancel(token)
	assert.NoError(t, err)
	assert.Equal(t, models.CheckoutIdle, cart.State)
	assert.Len(t, cart.Items, 1)
}

func TestCheckoutService_FinalizeIncompleteAddress(t *testing.T) {
	checkoutService, cartService, carts, token := newCheckoutFixture(t, nil)
	_, _, err := cartService.Reserve(token, "p1")
	assert.NoError(t, err)
	_, err = checkoutService.Begin(token)
	assert.NoError(t, err)

	incomplete := validAddress
	incomplete.Phone = ""
	_, err = checkoutService.Finalize(token, incomplete)
	assert.ErrorIs(t, err, services.ErrIncompleteAddress)

	// The cart never leaves CollectingAddress and keeps its items.
	cart, err := carts.Get(token)
	assert.NoError(t, err)
	assert.Equal(t, models.CheckoutCollectingAddress, cart.State)
	assert.Len(t, cart.Items, 1)
}

func TestCheckoutService_FinalizeCompletes(t *testing.T) {
	notifier := &recordingNotifier{}
	checkoutService, cartService, carts, token := newCheckoutFixture(t, notifier)

	// Two items totaling 150.
	_, _, err := cartService.Reserve(token, "p1")
	assert.NoError(t, err)
	_, _, err = cartService.Reserve(token, "p2")
	assert.NoError(t, err)
	_, err = checkoutService.Begin(token)
	assert.NoError(t, err)

	result, err := checkoutService.Finalize(token, validAddress)
	assert.NoError(t, err)
	assert.Equal(t, services.FinalizeCompleted, result.Status)
	assert.Len(t, result.Orders, 2)

	var total float64
	for _, order := range result.Orders {
		total += order.TotalPrice
	}
	assert.Equal(t, 150.0, total)

	// The cart is cleared and marked completed.
	cart, err := carts.Get(token)
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, models.CheckoutCompleted, cart.State)

	// The notifier received the full cart and the buyer address.
	assert.Equal(t, 1, notifier.calls)
	assert.Len(t, notifier.items, 2)
	assert.Equal(t, validAddress, notifier.buyer)
}

func TestCheckoutService_FinalizeGroupsUnitsPerProduct(t *testing.T) {
	checkoutService, cartService, _, token := newCheckoutFixture(t, nil)

	for i := 0; i < 3; i++ {
		_, _, err := cartService.Reserve(token, "p2")
		assert.NoError(t, err)
	}
	_, err := checkoutService.Begin(token)
	assert.NoError(t, err)

	result, err := checkoutService.Finalize(token, validAddress)
	assert.NoError(t, err)
	assert.Len(t, result.Orders, 1)
	assert.Equal(t, 3, result.Orders[0].Quantity)
	assert.Equal(t, 150.0, result.Orders[0].TotalPrice)
}

func TestCheckoutService_FinalizeClearsCartDespiteNotificationFailure(t *testing.T) {
	notifier := &recordingNotifier{fail: true}
	checkoutService, cartService, carts, token := newCheckoutFixture(t, notifier)
	_, _, err := cartService.Reserve(token, "p1")
	assert.NoError(t, err)
	_, err = checkoutService.Begin(token)
	assert.NoError(t, err)

	result, err := checkoutService.Finalize(token, validAddress)
	assert.NoError(t, err)
	assert.Equal(t, services.FinalizeWithWarning, result.Status)
	assert.Contains(t, result.Warning, "contact support")

	// Completion is declared regardless of the notification outcome.
	cart, err := carts.Get(token)
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, models.CheckoutCompleted, cart.State)
}

func TestCheckoutService_FinalizeFaultPreservesCart(t *testing.T) {
	productRepo := repositories.NewMockProductRepository()
	assert.NoError(t, productRepo.Create(&models.Product{ID: "p1", Name: "Tomatoes", Price: 100.0, Stock: 5}))

	carts := repositories.NewMemoryCartStore()
	cartService := services.NewCartService(productRepo, carts)
	notifier := &recordingNotifier{}
	checkoutService := services.NewCheckoutService(carts, failingOrderRepository{}, notifier)

	cart, err := cartService.CreateCart()
	assert.NoError(t, err)
	_, _, err = cartService.Reserve(cart.Token, "p1")
	assert.NoError(t, err)
	_, err = checkoutService.Begin(cart.Token)
	assert.NoError(t, err)

	_, err = checkoutService.Finalize(cart.Token, validAddress)
	assert.Error(t, err)

	// The fault happened before the notification attempt; the cart is
	// preserved for retry and no notification went out.
	stored, err := carts.Get(cart.Token)
	assert.NoError(t, err)
	assert.Equal(t, models.CheckoutFailed, stored.State)
	assert.Len(t, stored.Items, 1)
	assert.Equal(t, 0, notifier.calls)

	// Reopening the address form resets the terminal state.
	reopened, err := checkoutService.Begin(cart.Token)
	assert.NoError(t, err)
	assert.Equal(t, models.CheckoutCollectingAddress, reopened.State)
}
