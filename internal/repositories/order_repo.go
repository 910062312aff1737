package repositories

import "localharvest/internal/models"

// OrderRepository defines the interface for order data access. Orders are
// write-once records: there is no update, only creation, cancellation
// (Delete) and the cascade used when a product is removed.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	Create(order *models.Order) error
	Delete(id string) error
	DeleteByProductID(productID string) error
}
