package handlers

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	"localharvest/internal/models"
	"localharvest/internal/repositories"
	"localharvest/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service   *services.ProductService
	validate  *validator.Validate
	uploadDir string
}

// NewProductHandler creates a new ProductHandler. uploadDir is where
// listing images are stored; it is also served statically.
func NewProductHandler(service *services.ProductService, uploadDir string) *ProductHandler {
	return &ProductHandler{
		service:   service,
		validate:  validator.New(),
		uploadDir: uploadDir,
	}
}

// RegisterRoutes registers the public catalog routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/products", h.HandleGetProducts)
	router.Put("/products/:id/stock", h.HandleAdjustStock)
}

// RegisterProducerRoutes registers the routes that mutate listings.
// These sit behind the JWT producer-role guard.
func (h *ProductHandler) RegisterProducerRoutes(router fiber.Router) {
	router.Post("/products", h.HandleCreateProduct)
	router.Delete("/products/:id", h.HandleDeleteProduct)
}

// HandleGetProducts returns the full catalog.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		log.Printf("Error getting all products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database fetch failed",
		})
	}
	return c.JSON(products)
}

// formValue normalizes the stringly-typed multipart fields the browser
// client sends: absent, "null" and "undefined" all mean unset.
func formValue(c *fiber.Ctx, key string) string {
	v := c.FormValue(key)
	if v == "null" || v == "undefined" {
		return ""
	}
	return v
}

// HandleCreateProduct creates a listing from a multipart form and
// returns the refreshed catalog.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	name := formValue(c, "name")
	priceStr := formValue(c, "price")
	stockStr := formValue(c, "stock")
	if name == "" || priceStr == "" || stockStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing fields",
		})
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid price",
		})
	}
	stock, err := strconv.Atoi(stockStr)
	if err != nil || stock < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid stock",
		})
	}

	product := models.Product{
		Name:          name,
		Price:         price,
		Stock:         stock,
		Address:       formValue(c, "address"),
		ContactNumber: formValue(c, "contact_number"),
		SellerEmail:   formValue(c, "seller_email"),
	}
	if lat := formValue(c, "latitude"); lat != "" {
		if parsed, err := strconv.ParseFloat(lat, 64); err == nil {
			product.Latitude = &parsed
		}
	}
	if lng := formValue(c, "longitude"); lng != "" {
		if parsed, err := strconv.ParseFloat(lng, 64); err == nil {
			product.Longitude = &parsed
		}
	}

	if file, err := c.FormFile("image"); err == nil && file != nil {
		filename := fmt.Sprintf("image-%s%s", uuid.New().String(), filepath.Ext(file.Filename))
		if err := c.SaveFile(file, filepath.Join(h.uploadDir, filename)); err != nil {
			log.Printf("Error saving product image: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to store image",
			})
		}
		product.ImageURL = "uploads/" + filename
	}

	if err := h.validate.Struct(product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Validation failed",
		})
	}

	catalog, err := h.service.CreateProduct(&product)
	if err != nil {
		log.Printf("Error creating product: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database insert failed",
		})
	}
	return c.JSON(catalog)
}

// StockAdjustmentRequest represents the request body for stock updates.
type StockAdjustmentRequest struct {
	Adjustment int `json:"adjustment"`
}

// HandleAdjustStock applies a signed adjustment to a product's
// quantity-on-hand and returns the refreshed catalog.
func (h *ProductHandler) HandleAdjustStock(c *fiber.Ctx) error {
	productID := c.Params("id")
	var req StockAdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing stock adjustment body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Adjustment == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Adjustment is required",
		})
	}

	catalog, err := h.service.AdjustStock(productID, req.Adjustment)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		case errors.Is(err, repositories.ErrInsufficientStock):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Insufficient stock",
			})
		default:
			log.Printf("Stock update error for product %s: %v", productID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update stock",
			})
		}
	}
	return c.JSON(catalog)
}

// HandleDeleteProduct removes a listing (cascading its order rows) and
// returns the refreshed catalog.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	catalog, err := h.service.DeleteProduct(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Product not found",
			})
		}
		log.Printf("Delete error for product %s: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database delete failed",
		})
	}
	return c.JSON(catalog)
}
