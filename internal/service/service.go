// Package service provides the implementation of inventory business logic:
// keyset pagination over the product table and floor-guarded stock adjustment.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/abgdnv/goinventory/internal/store"
	"github.com/google/uuid"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"

	// DefaultLimit is used when a list request omits the limit parameter.
	DefaultLimit int32 = 20
	// MaxLimit bounds a single page; larger values are a validation error, not clamped.
	MaxLimit int32 = 100
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// FindPage returns one stably-ordered page of products plus a cursor
	// resuming exactly after the last returned row.
	// Returns ErrInvalidCursor if the request cursor cannot be decoded.
	FindPage(ctx context.Context, page PageRequest) (*ProductPageDto, error)

	// Create adds a new product to the system.
	// Returns an error if the product cannot be created.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// Update applies a partial update; omitted fields keep their prior value.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id uuid.UUID, product ProductUpdateDto) (*ProductDto, error)

	// IncreaseStock raises the quantity by amount. Amount must be >= 1.
	// Returns ErrProductNotFound if no product exists with the given ID.
	IncreaseStock(ctx context.Context, id uuid.UUID, amount int32) (*StockAdjustment, error)

	// DecreaseStock lowers the quantity by amount, clamped at the zero floor:
	// a decrease past zero is a no-op returning the unchanged product with
	// Adjusted=false. Amount must be >= 1.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DecreaseStock(ctx context.Context, id uuid.UUID, amount int32) (*StockAdjustment, error)

	// DeleteByID removes a product and returns its last state.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
}

// NewService creates a new instance of ProductService with the provided repository.
func NewService(repo store.ProductStore) *Service {
	return &Service{
		repository: repo,
	}
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int32     `json:"quantity"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductCreateDto represents the data transfer object for creating a new product.
// Quantity and Price are pointers so that zero values pass the required check.
type ProductCreateDto struct {
	Name     string   `json:"name"     validate:"required,max=255"`
	Quantity *int32   `json:"quantity" validate:"required,gte=0"`
	Price    *float64 `json:"price"    validate:"required,gte=0"`
}

// ProductUpdateDto represents a partial update; nil fields keep their prior value.
type ProductUpdateDto struct {
	Name     *string  `json:"name"     validate:"omitempty,min=1,max=255"`
	Quantity *int32   `json:"quantity" validate:"omitempty,gte=0"`
	Price    *float64 `json:"price"    validate:"omitempty,gte=0"`
}

// StockAdjustDto represents the body of a stock adjustment request.
// A nil Amount defaults to 1.
type StockAdjustDto struct {
	Amount *int32 `json:"amount" validate:"omitempty,gte=1"`
}

// PageRequest carries validated list parameters. Cursor is empty for the first page.
type PageRequest struct {
	Limit  int32
	Cursor string
	Order  string
}

// PageInfoDto describes the pagination state of a returned page.
type PageInfoDto struct {
	HasNextPage bool   `json:"hasNextPage"`
	NextCursor  string `json:"nextCursor,omitempty"`
	Limit       int32  `json:"limit"`
	Order       string `json:"order"`
}

// ProductPageDto is one page of products plus its pagination state.
type ProductPageDto struct {
	Data       []ProductDto `json:"data"`
	Pagination PageInfoDto  `json:"pagination"`
}

// StockAdjustment is the outcome of a stock operation. Adjusted is false when
// a decrease was rejected by the zero floor and the product is unchanged; the
// HTTP response shape is the same either way.
type StockAdjustment struct {
	Product  ProductDto
	Adjusted bool
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}

	return toDto(product), nil
}

// FindPage fetches limit+1 rows to detect whether a next page exists, trims the
// extra row, and derives the next cursor from the last row of the trimmed page.
func (s *Service) FindPage(ctx context.Context, page PageRequest) (*ProductPageDto, error) {
	q := store.PageQuery{
		Limit: page.Limit + 1,
		Desc:  page.Order == OrderDesc,
	}
	if page.Cursor != "" {
		after, err := decodeCursor(page.Cursor)
		if err != nil {
			return nil, err
		}
		q.After = &after
	}

	products, err := s.repository.FindPage(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product page: %w", err)
	}

	hasNextPage := len(products) > int(page.Limit)
	if hasNextPage {
		products = products[:page.Limit]
	}

	data := make([]ProductDto, len(products))
	for i, item := range products {
		data[i] = *toDto(&item)
	}

	info := PageInfoDto{
		HasNextPage: hasNextPage,
		Limit:       page.Limit,
		Order:       page.Order,
	}
	if hasNextPage {
		last := products[len(products)-1]
		info.NextCursor = encodeCursor(store.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ProductPageDto{Data: data, Pagination: info}, nil
}

// Create creates a new product and returns it as a ProductDto.
// Returns an error if the product cannot be created.
func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	p, err := s.repository.Create(ctx, product.Name, *product.Quantity, *product.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return toDto(p), nil
}

// Update applies a partial update and returns the updated product as a ProductDto.
// An update with no fields set is a no-op returning the current state, so
// updated_at only advances when something is actually written.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) Update(ctx context.Context, id uuid.UUID, product ProductUpdateDto) (*ProductDto, error) {
	if product.Name == nil && product.Quantity == nil && product.Price == nil {
		return s.FindByID(ctx, id)
	}

	updated, err := s.repository.Update(ctx, id, store.ProductUpdate{
		Name:     product.Name,
		Quantity: product.Quantity,
		Price:    product.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}

	return toDto(updated), nil
}

// IncreaseStock raises the quantity by amount. An increase cannot violate the
// non-negativity invariant, so it always adjusts.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) IncreaseStock(ctx context.Context, id uuid.UUID, amount int32) (*StockAdjustment, error) {
	product, err := s.repository.AdjustStock(ctx, id, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to increase stock for product with ID %s: %w", id, err)
	}
	return &StockAdjustment{Product: *toDto(product), Adjusted: true}, nil
}

// DecreaseStock lowers the quantity by amount. When the storage layer rejects
// the delta at the zero floor, the current (unchanged) product is re-read and
// returned with Adjusted=false instead of an error.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) DecreaseStock(ctx context.Context, id uuid.UUID, amount int32) (*StockAdjustment, error) {
	product, err := s.repository.AdjustStock(ctx, id, -amount)
	if err == nil {
		return &StockAdjustment{Product: *toDto(product), Adjusted: true}, nil
	}
	if errors.Is(err, inverrors.ErrInsufficientStock) {
		current, findErr := s.repository.FindByID(ctx, id)
		if findErr != nil {
			return nil, fmt.Errorf("failed to fetch product by ID %s after rejected decrease: %w", id, findErr)
		}
		return &StockAdjustment{Product: *toDto(current), Adjusted: false}, nil
	}
	return nil, fmt.Errorf("failed to decrease stock for product with ID %s: %w", id, err)
}

// DeleteByID deletes a product by its ID and returns its last state.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.repository.DeleteByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	return toDto(product), nil
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:        product.ID.String(),
		Name:      product.Name,
		Quantity:  product.Quantity,
		Price:     product.Price,
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
}
