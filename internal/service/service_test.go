package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/markethub/markethub/internal/models"
	"github.com/markethub/markethub/internal/repo"
)

type publishedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type stubPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *stubPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, _ := event.(map[string]any)
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

func (p *stubPublisher) byType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event["type"] == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	DB      *gorm.DB
	Repo    *repo.GormRepo
	Pub     *stubPublisher
	Orders  *OrderService
	Cart    *CartService
	Catalog *CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
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

	r := repo.New(db)
	pub := &stubPublisher{}
	return &testEnv{
		DB:      db,
		Repo:    r,
		Pub:     pub,
		Orders:  &OrderService{Repo: r, Producer: pub},
		Cart:    &CartService{Repo: r, Producer: pub},
		Catalog: &CatalogService{Repo: r, Producer: pub},
	}
}

func seedVendor(t *testing.T, env *testEnv, approved bool) *models.Vendor {
	t.Helper()
	vendor := models.Vendor{
		UserID:     uuid.New(),
		Name:       fmt.Sprintf("vendor-%s", uuid.NewString()[:8]),
		IsApproved: approved,
	}
	require.NoError(t, env.DB.Create(&vendor).Error)
	return &vendor
}

func seedProduct(t *testing.T, env *testEnv, vendorID uint, price string, stock uint, active bool) *models.Product {
	t.Helper()
	product := models.Product{
		VendorID: vendorID,
		Name:     fmt.Sprintf("product-%s", uuid.NewString()[:8]),
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: active,
	}
	require.NoError(t, env.DB.Create(&product).Error)
	return &product
}

func seedCartItem(t *testing.T, env *testEnv, userID uuid.UUID, productID, quantity uint) {
	t.Helper()
	require.NoError(t, env.DB.Create(&models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}).Error)
}

func reloadProduct(t *testing.T, env *testEnv, id uint) *models.Product {
	t.Helper()
	var product models.Product
	require.NoError(t, env.DB.First(&product, id).Error)
	return &product
}

func countRows(t *testing.T, env *testEnv, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.DB.Model(model).Count(&n).Error)
	return n
}

const testAddress = "221B Baker Street, London"
