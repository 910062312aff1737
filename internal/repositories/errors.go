package repositories

import "errors"

// Sentinel errors shared by every repository implementation so services
// and handlers can branch with errors.Is instead of matching strings.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrCartNotFound      = errors.New("cart not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)
