package services

import (
	"fmt"

	"localharvest/internal/models"
	"localharvest/internal/repositories"
)

// ProductService handles business logic related to the product catalog.
type ProductService struct {
	repo      repositories.ProductRepository
	orderRepo repositories.OrderRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, orderRepo repositories.OrderRepository) *ProductService {
	return &ProductService{
		repo:      repo,
		orderRepo: orderRepo,
	}
}

// GetAllProducts retrieves the full catalog.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// CreateProduct creates a new listing and returns the refreshed catalog
// so every observer converges on the same view.
func (s *ProductService) CreateProduct(product *models.Product) ([]models.Product, error) {
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return s.repo.GetAll()
}

// UpdateProduct updates an existing product.
func (s *ProductService) UpdateProduct(product *models.Product) error {
	return s.repo.Update(product)
}

// DeleteProduct removes a listing and cascades deletion to any order rows
// referencing it, then returns the refreshed catalog. Order rows go first
// so a failure never leaves orders pointing at a missing product.
func (s *ProductService) DeleteProduct(id string) ([]models.Product, error) {
	if err := s.orderRepo.DeleteByProductID(id); err != nil {
		return nil, fmt.Errorf("failed to cascade order deletion: %w", err)
	}
	if err := s.repo.Delete(id); err != nil {
		return nil, err
	}
	return s.repo.GetAll()
}

// AdjustStock applies a signed delta to a product's quantity-on-hand and
// returns the refreshed catalog. The repository guarantees the result
// never goes negative.
func (s *ProductService) AdjustStock(id string, delta int) ([]models.Product, error) {
	if err := s.repo.AdjustStock(id, delta); err != nil {
		return nil, err
	}
	return s.repo.GetAll()
}
