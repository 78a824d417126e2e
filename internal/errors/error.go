// Package errors provides custom error types for inventory operations.
package errors

import "errors"

var (
	// ErrProductNotFound is returned when no product exists with the given ID.
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock is returned by the store when a stock decrease
	// would take the quantity below zero. The write does not happen.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)
