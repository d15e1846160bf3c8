package domain

import "errors"

// Domain errors as sentinel values
var (
	// Input validation errors
	ErrInvalidProductID = errors.New("product id must be a positive integer")
	ErrInvalidQuantity  = errors.New("quantity is out of range")

	// Referential errors
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotInCart   = errors.New("item not in cart")

	// Catalog errors
	ErrEmptyName    = errors.New("product name cannot be empty")
	ErrInvalidPrice = errors.New("product price cannot be negative")
)
