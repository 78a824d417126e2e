// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product is the canonical persisted product record. The (CreatedAt, ID) pair
// forms a total order with no duplicates and is the basis for keyset pagination.
type Product struct {
	ID        uuid.UUID
	Name      string
	Quantity  int32
	Price     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cursor is a keyset position: the (created_at, id) pair of the last row a
// previous page returned. Rows strictly after it (in page order) are fetched.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// PageQuery describes one page fetch. Limit is the number of rows to fetch;
// callers ask for one extra row to detect whether a next page exists.
type PageQuery struct {
	Limit int32
	Desc  bool
	After *Cursor
}

// ProductUpdate carries a partial update; nil fields keep their prior value.
type ProductUpdate struct {
	Name     *string
	Quantity *int32
	Price    *float64
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindPage returns up to q.Limit products ordered by (created_at, id),
	// ascending or descending, resuming strictly after q.After when set.
	// Returns an empty slice if no products match.
	FindPage(ctx context.Context, q PageQuery) ([]Product, error)

	// Create adds a new product with store-assigned id and timestamps.
	// Returns an error if the product cannot be created.
	Create(ctx context.Context, name string, quantity int32, price float64) (*Product, error)

	// Update applies a partial update to an existing product and advances its
	// updated_at timestamp. Returns ErrProductNotFound if no product exists
	// with the given ID.
	Update(ctx context.Context, id uuid.UUID, upd ProductUpdate) (*Product, error)

	// AdjustStock changes the quantity by a signed delta in a single
	// conditional statement; the write is rejected with ErrInsufficientStock
	// when it would take the quantity below zero.
	// Returns ErrProductNotFound if no product exists with the given ID.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*Product, error)

	// DeleteByID removes a product and returns its last state.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID) (*Product, error)
}
