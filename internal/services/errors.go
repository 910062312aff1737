package services

import "errors"

// Business-rule errors surfaced to handlers. Storage-level errors
// (not-found, insufficient stock) live in the repositories package.
var (
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSecretCode  = errors.New("invalid producer secret code")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidCartIndex   = errors.New("cart item index out of range")
	ErrIncompleteAddress  = errors.New("delivery address is incomplete")
	ErrSignatureMismatch  = errors.New("payment signature mismatch")
)
