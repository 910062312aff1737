package services

import (
	"fmt"

	"localharvest/internal/models"
	"localharvest/internal/repositories"
)

// OrderService handles the persisted order history: listing, direct
// record creation, and cancellation.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// CreateOrder records a purchase directly, for callers that finalize
// outside the cart workflow.
func (s *OrderService) CreateOrder(order *models.Order) (*models.Order, error) {
	if order.ProductID == "" || order.Quantity <= 0 {
		return nil, fmt.Errorf("order requires a product id and a positive quantity")
	}
	if order.ProductName == "" {
		product, err := s.productRepo.GetByID(order.ProductID)
		if err != nil {
			return nil, err
		}
		order.ProductName = product.Name
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder deletes the order row and restores the reserved units to
// the product's stock. The restore failure is surfaced: a cancellation
// that cannot return stock did not fully happen.
func (s *OrderService) CancelOrder(id string) error {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.orderRepo.Delete(id); err != nil {
		return err
	}
	if err := s.productRepo.AdjustStock(order.ProductID, order.Quantity); err != nil {
		return fmt.Errorf("order %s cancelled but stock restore failed: %w", id, err)
	}
	return nil
}
