package store

import (
	"context"
	"errors"
	"fmt"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = "id, name, quantity, price, created_at, updated_at"

// PgStore implements ProductStore using PostgreSQL as the data store.
// The non-negativity invariants on quantity and price are declared once, as
// CHECK constraints on the products table, and apply uniformly to every write.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		db: dbp,
	}
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inverrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// FindPage retrieves one page of products ordered by (created_at, id).
// With a cursor the predicate is the standard two-column keyset comparison:
// rows strictly after the cursor position under the requested order, so
// concurrent inserts and deletes cause no gaps or duplicates across pages.
func (p *PgStore) FindPage(ctx context.Context, q PageQuery) ([]Product, error) {
	dir, cmp := "ASC", ">"
	if q.Desc {
		dir, cmp = "DESC", "<"
	}

	var rows pgx.Rows
	var err error
	if q.After != nil {
		query := fmt.Sprintf(
			`SELECT %s FROM products
			 WHERE created_at %s $1 OR (created_at = $1 AND id %s $2)
			 ORDER BY created_at %s, id %s
			 LIMIT $3`,
			productColumns, cmp, cmp, dir, dir)
		rows, err = p.db.Query(ctx, query, q.After.CreatedAt, q.After.ID, q.Limit)
	} else {
		query := fmt.Sprintf(
			`SELECT %s FROM products ORDER BY created_at %s, id %s LIMIT $1`,
			productColumns, dir, dir)
		rows, err = p.db.Query(ctx, query, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product page: %w", err)
	}

	products, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Product])
	if err != nil {
		return nil, fmt.Errorf("failed to collect product page: %w", err)
	}
	return products, nil
}

// Create adds a new product to the system.
// Returns an error if the product cannot be created.
func (p *PgStore) Create(ctx context.Context, name string, quantity int32, price float64) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO products (name, quantity, price)
		 VALUES ($1, $2, $3)
		 RETURNING `+productColumns,
		name, quantity, price)
	product, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// Update applies a partial update; nil fields keep their prior value via COALESCE.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) Update(ctx context.Context, id uuid.UUID, upd ProductUpdate) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE products
		 SET name       = COALESCE($2, name),
		     quantity   = COALESCE($3, quantity),
		     price      = COALESCE($4, price),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, upd.Name, upd.Quantity, upd.Price)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inverrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// AdjustStock applies a signed delta to a product's quantity in a single
// conditional statement. The floor check runs inside the UPDATE itself, so two
// concurrent decrements cannot both pass a stale read; conflicting writes
// serialize on the row and the loser sees zero affected rows.
// Returns ErrInsufficientStock when the delta would take the quantity below
// zero, ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE products
		 SET quantity = quantity + $2, updated_at = now()
		 WHERE id = $1 AND quantity + $2 >= 0
		 RETURNING `+productColumns,
		id, delta)
	product, err := scanProduct(row)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to adjust product stock: %w", err)
	}

	// Zero rows affected: either the product is gone or the floor rejected the
	// delta. Disambiguate with a point lookup.
	if _, err := p.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, inverrors.ErrInsufficientStock
}

// DeleteByID removes a product by its unique identifier and returns its last state.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) DeleteByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := p.db.QueryRow(ctx,
		`DELETE FROM products WHERE id = $1 RETURNING `+productColumns, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inverrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to delete product by ID: %w", err)
	}
	return product, nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Quantity, &p.Price, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
