package models

import "time"

// Order records a finalized purchase of a single product. Rows are
// write-once: cancellation deletes the row and restores the product's
// stock, and deleting a product cascades to its orders.
type Order struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID   string    `json:"product_id" gorm:"type:varchar(36);index"`
	ProductName string    `json:"product_name" gorm:"type:varchar(100)"` // Name at the time of order
	Quantity    int       `json:"quantity"`
	TotalPrice  float64   `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
}
