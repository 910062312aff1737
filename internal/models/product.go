package models

import "gorm.io/gorm"

// Product represents a sellable listing in the catalog. Stock is the
// quantity-on-hand and must never go negative; every cart reservation
// decrements it and every release restores it.
type Product struct {
	ID            string   `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name          string   `json:"name" validate:"required,min=2,max=100"`
	Price         float64  `json:"price" validate:"required,gt=0"`
	Stock         int      `json:"stock" validate:"gte=0"`
	ImageURL      string   `json:"image_url" gorm:"type:varchar(255)" validate:"omitempty,max=255"`
	Address       string   `json:"address" gorm:"type:text" validate:"omitempty,max=500"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,longitude"`
	ContactNumber string   `json:"contact_number" gorm:"type:varchar(50)" validate:"omitempty,max=50"`
	SellerEmail   string   `json:"seller_email" gorm:"type:varchar(255)" validate:"omitempty,email"`
	gorm.Model             // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
