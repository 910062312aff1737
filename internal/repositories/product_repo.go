package repositories

import (
	"localharvest/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	// AdjustStock applies a signed delta to the product's quantity-on-hand
	// as a single conditional update. It returns ErrInsufficientStock when
	// the result would be negative and ErrProductNotFound for unknown ids;
	// concurrent callers can never drive the stock below zero.
	AdjustStock(id string, delta int) error
}
