package repo

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/markethub/markethub/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Vendor{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))
	return New(db)
}

func seedStock(t *testing.T, r *GormRepo, stock uint) *models.Product {
	t.Helper()
	product := models.Product{
		VendorID: 1,
		Name:     "widget",
		Price:    decimal.RequireFromString("2.00"),
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, r.DB.Create(&product).Error)
	return &product
}

func TestDecrementStockConditional(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	product := seedStock(t, r, 5)

	ok, err := r.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// Not enough left: the update must not apply at all.
	ok, err = r.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := r.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), reloaded.Stock)

	ok, err = r.DecrementStock(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err = r.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(0), reloaded.Stock)
}

func TestIncrementStock(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	product := seedStock(t, r, 1)

	require.NoError(t, r.IncrementStock(ctx, product.ID, 4))

	reloaded, err := r.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(5), reloaded.Stock)

	require.ErrorIs(t, r.IncrementStock(ctx, 9999, 1), gorm.ErrRecordNotFound)
}

func TestSoftDeleteProductKeepsRow(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	product := seedStock(t, r, 5)

	require.NoError(t, r.SoftDeleteProduct(ctx, product.ID))

	reloaded, err := r.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)

	require.ErrorIs(t, r.SoftDeleteProduct(ctx, 9999), gorm.ErrRecordNotFound)
}
