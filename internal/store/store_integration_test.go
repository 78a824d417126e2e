package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "INVENTORY_SKIP_INTEGRATION_TESTS"

// ProductStoreSuite is a test suite for the ProductStore implementation.
type ProductStoreSuite struct {
	suite.Suite                             // Embedding testify suite for structured testing
	pgContainer *postgres.PostgresContainer // PostgreSQL container for integration tests
	dbPool      *pgxpool.Pool               // PostgreSQL connection pool for integration tests
	store       ProductStore                //
	logger      *slog.Logger                // Logger for the test suite
	ctx         context.Context             // Context for the test suite, used for cancellation and timeouts
}

// SetupSuite initializes the test suite by setting up a PostgreSQL container,
func (s *ProductStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "inventory_db"
	dbUser := "user"
	dbPassword := "password"

	// 1. Start a PostgreSQL container with the specified configuration. Wait for the container to be ready.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		// Wait for a specific log message indicating the database service is ready.
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		// Ensure the container is ready to accept connections on the default PostgreSQL port.
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	// 2. Get the connection string from the container
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 3. create a new pgxpool instance using the connection string
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	// 3.1 Ping the database to ensure the connection is established
	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	// 4. Database migration
	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../migrations")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for integration tests")

	s.store = NewPgStore(s.dbPool)
	s.logger.Info("Initialization complete for ProductStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *ProductStoreSuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info("DB pool closed.")
	}
	if s.pgContainer != nil {
		s.logger.Info("Terminating PostgreSQL container...")
		err := s.pgContainer.Terminate(s.ctx)
		if err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		} else {
			s.logger.Info("PostgreSQL container terminated.")
		}
	}
}

// SetupTest prepares the database for each test by truncating the products table.
func (s *ProductStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE products")
	require.NoError(s.T(), err, "Failed to truncate products table")
}

// TestProductStoreIntegration runs the ProductStore integration tests.
func TestProductStoreIntegration(t *testing.T) {
	// Skip integration tests if the environment variable is set
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	// Run the test suite
	suite.Run(t, new(ProductStoreSuite))
}

// createTestProduct is a helper function to create a product for testing purposes.
// It sleeps briefly so consecutive rows land on distinct created_at milliseconds
// and insertion order is the (created_at, id) page order.
func (s *ProductStoreSuite) createTestProduct(name string, quantity int32, price float64) *Product {
	s.T().Helper()
	product, err := s.store.Create(s.ctx, name, quantity, price)
	require.NoError(s.T(), err, "createTestProduct helper failed to create product")
	time.Sleep(2 * time.Millisecond)
	return product
}

func (s *ProductStoreSuite) TestCreate() {
	// when
	created, err := s.store.Create(s.ctx, "Product 1", 10, 29.99)

	// then
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), uuid.Nil, created.ID)
	assert.Equal(s.T(), "Product 1", created.Name)
	assert.Equal(s.T(), int32(10), created.Quantity)
	assert.Equal(s.T(), 29.99, created.Price)
	assert.False(s.T(), created.CreatedAt.IsZero())
	assert.False(s.T(), created.UpdatedAt.IsZero())
}

func (s *ProductStoreSuite) TestFindByID() {
	// given
	created := s.createTestProduct("Product 1", 10, 29.99)

	// when
	found, err := s.store.FindByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.ID, found.ID)
	assert.Equal(s.T(), created.Name, found.Name)
	assert.Equal(s.T(), created.Quantity, found.Quantity)
	assert.Equal(s.T(), created.Price, found.Price)
}

func (s *ProductStoreSuite) TestFindByID_NotFound() {
	// when
	found, err := s.store.FindByID(s.ctx, uuid.New())

	// then
	assert.ErrorIs(s.T(), err, inverrors.ErrProductNotFound)
	assert.Nil(s.T(), found)
}

func (s *ProductStoreSuite) TestFindPage_WalkAscendingVisitsEveryRowOnce() {
	// given: 5 products inserted in order
	var inserted []uuid.UUID
	for i := 1; i <= 5; i++ {
		p := s.createTestProduct("Product", int32(i), float64(i)*10)
		inserted = append(inserted, p.ID)
	}

	// when: walk pages of 2 using the last row of each page as the cursor
	var seen []uuid.UUID
	var after *Cursor
	for {
		page, err := s.store.FindPage(s.ctx, PageQuery{Limit: 3, After: after})
		require.NoError(s.T(), err)
		if len(page) > 2 {
			page = page[:2]
		}
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			seen = append(seen, p.ID)
		}
		last := page[len(page)-1]
		after = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	// then: every inserted row is seen exactly once, in insertion order
	assert.Equal(s.T(), inserted, seen)
}

func (s *ProductStoreSuite) TestFindPage_DescendingReversesOrder() {
	// given
	var inserted []uuid.UUID
	for i := 1; i <= 3; i++ {
		p := s.createTestProduct("Product", int32(i), 10)
		inserted = append(inserted, p.ID)
	}

	// when
	page, err := s.store.FindPage(s.ctx, PageQuery{Limit: 10, Desc: true})

	// then
	require.NoError(s.T(), err)
	require.Len(s.T(), page, 3)
	assert.Equal(s.T(), inserted[2], page[0].ID)
	assert.Equal(s.T(), inserted[1], page[1].ID)
	assert.Equal(s.T(), inserted[0], page[2].ID)
}

func (s *ProductStoreSuite) TestFindPage_ConcurrentInsertAppearsInLaterPage() {
	// given: 2 products, first page of 1 already fetched
	first := s.createTestProduct("Product", 1, 10)
	second := s.createTestProduct("Product", 2, 20)

	page, err := s.store.FindPage(s.ctx, PageQuery{Limit: 1})
	require.NoError(s.T(), err)
	require.Len(s.T(), page, 1)
	assert.Equal(s.T(), first.ID, page[0].ID)
	after := &Cursor{CreatedAt: page[0].CreatedAt, ID: page[0].ID}

	// when: a row is inserted between page fetches
	third := s.createTestProduct("Product", 3, 30)
	rest, err := s.store.FindPage(s.ctx, PageQuery{Limit: 10, After: after})

	// then: the new row shows up after the cursor position, nothing repeats
	require.NoError(s.T(), err)
	require.Len(s.T(), rest, 2)
	assert.Equal(s.T(), second.ID, rest[0].ID)
	assert.Equal(s.T(), third.ID, rest[1].ID)
}

func (s *ProductStoreSuite) TestFindPage_EmptyTable() {
	// when
	page, err := s.store.FindPage(s.ctx, PageQuery{Limit: 10})

	// then
	require.NoError(s.T(), err)
	assert.Empty(s.T(), page)
}

func (s *ProductStoreSuite) TestUpdate_PartialKeepsOmittedFields() {
	// given
	created := s.createTestProduct("Product 1", 10, 29.99)
	newPrice := 19.99

	// when: only the price is supplied
	updated, err := s.store.Update(s.ctx, created.ID, ProductUpdate{Price: &newPrice})

	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.Name, updated.Name)
	assert.Equal(s.T(), created.Quantity, updated.Quantity)
	assert.Equal(s.T(), newPrice, updated.Price)
	assert.Equal(s.T(), created.CreatedAt, updated.CreatedAt)
	assert.True(s.T(), updated.UpdatedAt.After(created.UpdatedAt), "updated_at should advance on write")
}

func (s *ProductStoreSuite) TestUpdate_NotFound() {
	// given
	name := "Ghost"

	// when
	updated, err := s.store.Update(s.ctx, uuid.New(), ProductUpdate{Name: &name})

	// then
	assert.ErrorIs(s.T(), err, inverrors.ErrProductNotFound)
	assert.Nil(s.T(), updated)
}

func (s *ProductStoreSuite) TestAdjustStock_Increase() {
	// given
	created := s.createTestProduct("Product 1", 10, 29.99)

	// when
	adjusted, err := s.store.AdjustStock(s.ctx, created.ID, 5)

	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int32(15), adjusted.Quantity)
	assert.True(s.T(), adjusted.UpdatedAt.After(created.UpdatedAt))
}

func (s *ProductStoreSuite) TestAdjustStock_DecreaseToExactlyZero() {
	// given
	created := s.createTestProduct("Product 1", 10, 29.99)

	// when
	adjusted, err := s.store.AdjustStock(s.ctx, created.ID, -10)

	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int32(0), adjusted.Quantity)
}

func (s *ProductStoreSuite) TestAdjustStock_DecreasePastZeroLeavesRowUntouched() {
	// given
	created := s.createTestProduct("Product 1", 10, 29.99)

	// when
	adjusted, err := s.store.AdjustStock(s.ctx, created.ID, -15)

	// then: the write is rejected and the row is unchanged, including updated_at
	assert.ErrorIs(s.T(), err, inverrors.ErrInsufficientStock)
	assert.Nil(s.T(), adjusted)

	current, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int32(10), current.Quantity)
	assert.Equal(s.T(), created.UpdatedAt, current.UpdatedAt)
}

func (s *ProductStoreSuite) TestAdjustStock_NotFound() {
	// when
	adjusted, err := s.store.AdjustStock(s.ctx, uuid.New(), -1)

	// then
	assert.ErrorIs(s.T(), err, inverrors.ErrProductNotFound)
	assert.Nil(s.T(), adjusted)
}

func (s *ProductStoreSuite) TestDeleteByID_ReturnsLastState() {
	// given
	created := s.createTestProduct("Product 1", 10, 29.99)

	// when
	deleted, err := s.store.DeleteByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created.ID, deleted.ID)
	assert.Equal(s.T(), created.Name, deleted.Name)

	_, err = s.store.FindByID(s.ctx, created.ID)
	assert.ErrorIs(s.T(), err, inverrors.ErrProductNotFound)
}

func (s *ProductStoreSuite) TestDeleteByID_NotFound() {
	// when
	deleted, err := s.store.DeleteByID(s.ctx, uuid.New())

	// then
	assert.ErrorIs(s.T(), err, inverrors.ErrProductNotFound)
	assert.Nil(s.T(), deleted)
}
