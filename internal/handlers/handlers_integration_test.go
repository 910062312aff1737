package handlers_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"localharvest/internal/handlers"
	"localharvest/internal/middleware"
	"localharvest/internal/models"
	"localharvest/internal/repositories"
	"localharvest/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testJWTSecret     = "test_jwt_secret"
	testPaymentSecret = "test_payment_secret"
)

var testAccessCodes = []string{"FARMER123", "GROW_LOCAL"}

type testEnv struct {
	app         *fiber.App
	authService *services.AuthService
	productRepo repositories.ProductRepository
	seeded      []models.Product
}

// setupApp wires a Fiber app against an in-memory SQLite database. The
// DSN is unique per call so parallel tests do not share state. The
// notification publisher is nil, which degrades queueing to log lines.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}))

	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	cartStore := repositories.NewMemoryCartStore()

	notificationService := services.NewNotificationService(productRepo, nil, testAccessCodes)
	authService := services.NewAuthService(userRepo, testJWTSecret, testAccessCodes, notificationService)
	productService := services.NewProductService(productRepo, orderRepo)
	orderService := services.NewOrderService(orderRepo, productRepo)
	cartService := services.NewCartService(productRepo, cartStore)
	checkoutService := services.NewCheckoutService(cartStore, orderRepo, notificationService)
	paymentService := services.NewPaymentService("test_key", testPaymentSecret)

	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService, t.TempDir())
	orderHandler := handlers.NewOrderHandler(orderService)
	cartHandler := handlers.NewCartHandler(cartService, checkoutService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, checkoutService)

	app := fiber.New()
	api := app.Group("/api")
	authHandler.RegisterRoutes(api)
	productHandler.RegisterRoutes(api)
	cartHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)
	paymentHandler.RegisterRoutes(api)

	producerRoutes := api.Group("", middleware.AuthRequired(authService), middleware.RequireRole(models.RoleProducer))
	productHandler.RegisterProducerRoutes(producerRoutes)

	seeded := seedProductsForTest(t, productRepo)

	return &testEnv{
		app:         app,
		authService: authService,
		productRepo: productRepo,
		seeded:      seeded,
	}
}

func seedProductsForTest(t *testing.T, repo repositories.ProductRepository) []models.Product {
	t.Helper()
	products := []models.Product{
		{Name: "Heirloom Tomatoes", Price: 50.0, Stock: 5, SellerEmail: "tomato@example.com"},
		{Name: "Baby Spinach", Price: 30.0, Stock: 2, SellerEmail: "greens@example.com"},
	}
	for i := range products {
		assert.NoError(t, repo.Create(&products[i]))
	}
	return products
}

// doJSON performs a JSON request against the app and decodes the reply
// into out (when out is non-nil).
func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	if out != nil {
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	resp.Body.Close()
	return resp
}

// signupAndLogin registers an account and returns its token.
func signupAndLogin(t *testing.T, app *fiber.App, name, email, role, secretCode string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/signup", map[string]string{
		"name":       name,
		"email":      email,
		"password":   "password123",
		"role":       role,
		"secretCode": secretCode,
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var loginResp struct {
		Token string `json:"token"`
	}
	resp = doJSON(t, app, http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": "password123",
	}, &loginResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, loginResp.Token)
	return loginResp.Token
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestSignupAndLogin(t *testing.T) {
	env := setupApp(t)

	signupBody := map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "password123",
		"role":     "consumer",
	}
	resp := doJSON(t, env.app, http.MethodPost, "/api/signup", signupBody, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate email
	var dupResp map[string]string
	resp = doJSON(t, env.app, http.MethodPost, "/api/signup", signupBody, &dupResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User already exists", dupResp["message"])

	// Producer signup needs a valid access code
	var forbiddenResp map[string]string
	resp = doJSON(t, env.app, http.MethodPost, "/api/signup", map[string]string{
		"name":       "Ravi",
		"email":      "ravi@example.com",
		"password":   "password123",
		"role":       "producer",
		"secretCode": "NOT_REAL",
	}, &forbiddenResp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid Producer Secret Code", forbiddenResp["message"])

	resp = doJSON(t, env.app, http.MethodPost, "/api/signup", map[string]string{
		"name":       "Ravi",
		"email":      "ravi@example.com",
		"password":   "password123",
		"role":       "producer",
		"secretCode": "FARMER123",
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Login
	var loginResp struct {
		Token string `json:"token"`
		User  struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	resp = doJSON(t, env.app, http.MethodPost, "/api/login", map[string]string{
		"email":    "asha@example.com",
		"password": "password123",
	}, &loginResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, loginResp.Token)
	assert.Equal(t, "Asha", loginResp.User.Name)
	assert.Equal(t, models.RoleConsumer, loginResp.User.Role)

	claims, err := env.authService.ValidateToken(loginResp.Token)
	assert.NoError(t, err)
	assert.Equal(t, models.RoleConsumer, claims["role"])
	assert.Contains(t, claims, "user_id")

	// Wrong password
	var badLogin map[string]string
	resp = doJSON(t, env.app, http.MethodPost, "/api/login", map[string]string{
		"email":    "asha@example.com",
		"password": "wrong",
	}, &badLogin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", badLogin["message"])
}

func TestProductCatalogAndStockAdjustment(t *testing.T) {
	env := setupApp(t)

	var catalog []models.Product
	resp := doJSON(t, env.app, http.MethodGet, "/api/products", nil, &catalog)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, catalog, 2)

	target := env.seeded[0]

	// A negative adjustment succeeds and the refreshed catalog is returned.
	resp = doJSON(t, env.app, http.MethodPut, "/api/products/"+target.ID+"/stock",
		map[string]int{"adjustment": -2}, &catalog)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	for _, p := range catalog {
		if p.ID == target.ID {
			assert.Equal(t, 3, p.Stock)
		}
	}

	// Driving stock below zero is rejected without changing the row.
	var errResp map[string]string
	resp = doJSON(t, env.app, http.MethodPut, "/api/products/"+target.ID+"/stock",
		map[string]int{"adjustment": -10}, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Insufficient stock", errResp["error"])

	refreshed, err := env.productRepo.GetByID(target.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, refreshed.Stock)

	// Unknown product
	resp = doJSON(t, env.app, http.MethodPut, "/api/products/"+uuid.New().String()+"/stock",
		map[string]int{"adjustment": -1}, &errResp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found", errResp["error"])
}

// newListingRequest builds the multipart form a listing creation takes.
func newListingRequest(t *testing.T, token string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestListingMutationRequiresProducer(t *testing.T) {
	env := setupApp(t)

	fields := map[string]string{
		"name":         "Raw Honey",
		"price":        "120.50",
		"stock":        "8",
		"seller_email": "bees@example.com",
		"latitude":     "18.52",
		"longitude":    "73.85",
	}

	// No token
	resp, err := env.app.Test(newListingRequest(t, "", fields), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Consumer token
	consumerToken := signupAndLogin(t, env.app, "Asha", "asha@example.com", "consumer", "")
	resp, err = env.app.Test(newListingRequest(t, consumerToken, fields), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Producer token
	producerToken := signupAndLogin(t, env.app, "Ravi", "ravi@example.com", "producer", "GROW_LOCAL")
	resp, err = env.app.Test(newListingRequest(t, producerToken, fields), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var catalog []models.Product
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&catalog))
	resp.Body.Close()
	assert.Len(t, catalog, 3)

	var created *models.Product
	for i := range catalog {
		if catalog[i].Name == "Raw Honey" {
			created = &catalog[i]
		}
	}
	assert.NotNil(t, created)
	assert.Equal(t, 120.50, created.Price)
	assert.Equal(t, 8, created.Stock)
	assert.NotNil(t, created.Latitude)
	assert.InDelta(t, 18.52, *created.Latitude, 0.001)

	// Deletion is producer-guarded too and returns the pruned catalog.
	req := httptest.NewRequest(http.MethodDelete, "/api/products/"+created.ID, nil)
	req.Header.Set("Authorization", "Bearer "+producerToken)
	resp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&catalog))
	resp.Body.Close()
	assert.Len(t, catalog, 2)
}

func TestCartCheckoutFlow(t *testing.T) {
	env := setupApp(t)
	target := env.seeded[1] // stock 2

	var cart models.Cart
	resp := doJSON(t, env.app, http.MethodPost, "/api/cart", nil, &cart)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, cart.Token)
	assert.Equal(t, models.CheckoutIdle, cart.State)

	// Reserving decrements the live stock in the returned catalog.
	var reserveResp struct {
		Cart     models.Cart      `json:"cart"`
		Products []models.Product `json:"products"`
	}
	reserveBody := map[string]string{"productId": target.ID}
	resp = doJSON(t, env.app, http.MethodPost, "/api/cart/"+cart.Token+"/items", reserveBody, &reserveResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, reserveResp.Cart.Items, 1)
	for _, p := range reserveResp.Products {
		if p.ID == target.ID {
			assert.Equal(t, 1, p.Stock)
		}
	}

	resp = doJSON(t, env.app, http.MethodPost, "/api/cart/"+cart.Token+"/items", reserveBody, &reserveResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Stock exhausted
	var errResp map[string]string
	resp = doJSON(t, env.app, http.MethodPost, "/api/cart/"+cart.Token+"/items", reserveBody, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Insufficient stock", errResp["error"])

	// Releasing an item restores a unit.
	resp = doJSON(t, env.app, http.MethodDelete, "/api/cart/"+cart.Token+"/items/1", nil, &reserveResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, reserveResp.Cart.Items, 1)
	for _, p := range reserveResp.Products {
		if p.ID == target.ID {
			assert.Equal(t, 1, p.Stock)
		}
	}

	// Begin checkout
	var fetched models.Cart
	resp = doJSON(t, env.app, http.MethodPost, "/api/cart/"+cart.Token+"/checkout", nil, &fetched)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.CheckoutCollectingAddress, fetched.State)

	// An incomplete address is rejected before any order is written.
	resp = doJSON(t, env.app, http.MethodPost, "/api/cart/"+cart.Token+"/checkout/finalize", map[string]interface{}{
		"address": map[string]string{"name": "Asha", "city": "Pune"},
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please fill in all required fields", errResp["error"])

	// Finalize with a complete address.
	var result services.FinalizeResult
	resp = doJSON(t, env.app, http.MethodPost, "/api/cart/"+cart.Token+"/checkout/finalize", map[string]interface{}{
		"address": map[string]string{
			"name":   "Asha",
			"street": "12 Market Lane",
			"city":   "Pune",
			"zip":    "411001",
			"phone":  "9999999999",
		},
	}, &result)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, services.FinalizeCompleted, result.Status)
	assert.Len(t, result.Orders, 1)
	assert.Equal(t, target.ID, result.Orders[0].ProductID)
	assert.Equal(t, 1, result.Orders[0].Quantity)
	assert.Equal(t, 30.0, result.Orders[0].TotalPrice)

	// The cart survives as an emptied, completed cart.
	resp = doJSON(t, env.app, http.MethodGet, "/api/cart/"+cart.Token, nil, &fetched)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.CheckoutCompleted, fetched.State)
	assert.Empty(t, fetched.Items)

	// The order is visible through the order endpoint.
	var orders []models.Order
	resp = doJSON(t, env.app, http.MethodGet, "/api/orders/", nil, &orders)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, orders, 1)
}

func TestCheckoutOnEmptyCart(t *testing.T) {
	env := setupApp(t)

	var cart models.Cart
	resp := doJSON(t, env.app, http.MethodPost, "/api/cart", nil, &cart)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var errResp map[string]string
	resp = doJSON(t, env.app, http.MethodPost, "/api/cart/"+cart.Token+"/checkout", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Your cart is empty", errResp["error"])

	resp = doJSON(t, env.app, http.MethodGet, "/api/cart/"+uuid.New().String(), nil, &errResp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Cart not found", errResp["error"])
}

func gatewaySignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentRoundTrip(t *testing.T) {
	env := setupApp(t)

	var order services.PaymentOrder
	resp := doJSON(t, env.app, http.MethodPost, "/api/payment/create-order",
		map[string]float64{"amount": 150.0}, &order)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(15000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.NotEmpty(t, order.OrderID)

	// Valid signature
	var verifyResp map[string]interface{}
	resp = doJSON(t, env.app, http.MethodPost, "/api/payment/verify", map[string]string{
		"orderId":   order.OrderID,
		"paymentId": "pay_123",
		"signature": gatewaySignature(testPaymentSecret, order.OrderID, "pay_123"),
	}, &verifyResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, verifyResp["success"])

	// Tampered signature
	resp = doJSON(t, env.app, http.MethodPost, "/api/payment/verify", map[string]string{
		"orderId":   order.OrderID,
		"paymentId": "pay_123",
		"signature": gatewaySignature("wrong_secret", order.OrderID, "pay_123"),
	}, &verifyResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, verifyResp["success"])
}

func TestPaymentVerifyFinalizesCart(t *testing.T) {
	env := setupApp(t)
	target := env.seeded[0]

	var cart models.Cart
	resp := doJSON(t, env.app, http.MethodPost, "/api/cart", nil, &cart)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var reserveResp struct {
		Cart models.Cart `json:"cart"`
	}
	resp = doJSON(t, env.app, http.MethodPost, "/api/cart/"+cart.Token+"/items",
		map[string]string{"productId": target.ID}, &reserveResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var begun models.Cart
	resp = doJSON(t, env.app, http.MethodPost, "/api/cart/"+cart.Token+"/checkout", nil, &begun)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Payment verification with a cart token finalizes the checkout.
	var verifyResp struct {
		Success bool                    `json:"success"`
		Result  services.FinalizeResult `json:"result"`
	}
	resp = doJSON(t, env.app, http.MethodPost, "/api/payment/verify", map[string]interface{}{
		"orderId":   "order_abc",
		"paymentId": "pay_456",
		"signature": gatewaySignature(testPaymentSecret, "order_abc", "pay_456"),
		"cartToken": cart.Token,
		"address": map[string]string{
			"name":   "Asha",
			"street": "12 Market Lane",
			"city":   "Pune",
			"zip":    "411001",
			"phone":  "9999999999",
		},
	}, &verifyResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, verifyResp.Success)
	assert.Equal(t, services.FinalizeCompleted, verifyResp.Result.Status)
	assert.Len(t, verifyResp.Result.Orders, 1)
}

func TestContactForm(t *testing.T) {
	env := setupApp(t)

	var errResp map[string]string
	resp := doJSON(t, env.app, http.MethodPost, "/api/contact", map[string]string{
		"name": "Ravi",
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "All fields are required", errResp["message"])

	// With a nil publisher the request still succeeds; the envelope is
	// logged and dropped instead of queued.
	resp = doJSON(t, env.app, http.MethodPost, "/api/contact", map[string]string{
		"name":    "Ravi",
		"email":   "ravi@example.com",
		"message": "I would like to sell my produce.",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
