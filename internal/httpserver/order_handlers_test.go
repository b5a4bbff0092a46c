package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/markethub/markethub/internal/models"
	"github.com/markethub/markethub/internal/repo"
	"github.com/markethub/markethub/internal/service"
)

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB

	Orders *OrderHTTP
	Cart   *CartHTTP
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
	return &testEnv{
		T:      t,
		E:      echo.New(),
		DB:     db,
		Orders: &OrderHTTP{Svc: &service.OrderService{Repo: r}},
		Cart:   &CartHTTP{Svc: &service.CartService{Repo: r}},
	}
}

// doJSONRequest builds an echo context carrying a validated-token identity,
// the shape the jwt middleware leaves behind in production.
func (env *testEnv) doJSONRequest(method, path string, body any, userID uuid.UUID) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	c.Set("user", jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID.String()}))
	return rec, c
}

func (env *testEnv) seedCatalog(stock uint) (uuid.UUID, *models.Vendor, *models.Product) {
	userID := uuid.New()
	vendor := models.Vendor{UserID: uuid.New(), Name: "acme", IsApproved: true}
	require.NoError(env.T, env.DB.Create(&vendor).Error)

	product := models.Product{
		VendorID: vendor.ID,
		Name:     "gadget",
		Price:    decimal.RequireFromString("10.00"),
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(env.T, env.DB.Create(&product).Error)
	return userID, &vendor, &product
}

func TestCheckoutHandler(t *testing.T) {
	env := newTestEnv(t)
	userID, _, product := env.seedCatalog(5)
	require.NoError(t, env.DB.Create(&models.CartItem{UserID: userID, ProductID: product.ID, Quantity: 2}).Error)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders",
		CheckoutRequest{ShippingAddress: "42 Wallaby Way, Sydney"}, userID)
	require.NoError(t, env.Orders.Checkout(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Orders []models.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, models.OrderStatusPending, resp.Orders[0].Status)
	require.Len(t, resp.Orders[0].Items, 1)
}

func TestCheckoutHandlerEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders",
		CheckoutRequest{ShippingAddress: "42 Wallaby Way, Sydney"}, uuid.New())
	err := env.Orders.Checkout(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCheckoutHandlerUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)

	err := env.Orders.Checkout(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestUpdateStatusHandler(t *testing.T) {
	env := newTestEnv(t)
	userID, vendor, product := env.seedCatalog(5)
	require.NoError(t, env.DB.Create(&models.CartItem{UserID: userID, ProductID: product.ID, Quantity: 1}).Error)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders",
		CheckoutRequest{ShippingAddress: "42 Wallaby Way, Sydney"}, userID)
	require.NoError(t, env.Orders.Checkout(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, c = env.doJSONRequest(http.MethodPatch, "/api/v1/vendor/orders/1/status",
		UpdateOrderStatusRequest{Status: "CONFIRMED"}, vendor.UserID)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Orders.UpdateStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestUpdateStatusHandlerRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPatch, "/api/v1/vendor/orders/1/status",
		UpdateOrderStatusRequest{Status: "TELEPORTED"}, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := env.Orders.UpdateStatus(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestUpdateStatusHandlerForbiddenForNonVendor(t *testing.T) {
	env := newTestEnv(t)
	userID, _, product := env.seedCatalog(5)
	require.NoError(t, env.DB.Create(&models.CartItem{UserID: userID, ProductID: product.ID, Quantity: 1}).Error)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders",
		CheckoutRequest{ShippingAddress: "42 Wallaby Way, Sydney"}, userID)
	require.NoError(t, env.Orders.Checkout(c))

	_, c = env.doJSONRequest(http.MethodPatch, "/api/v1/vendor/orders/1/status",
		UpdateOrderStatusRequest{Status: "CONFIRMED"}, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := env.Orders.UpdateStatus(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)
}

func TestCancelHandler(t *testing.T) {
	env := newTestEnv(t)
	userID, _, product := env.seedCatalog(5)
	require.NoError(t, env.DB.Create(&models.CartItem{UserID: userID, ProductID: product.ID, Quantity: 2}).Error)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders",
		CheckoutRequest{ShippingAddress: "42 Wallaby Way, Sydney"}, userID)
	require.NoError(t, env.Orders.Checkout(c))

	reason := "changed my mind"
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders/1/cancel",
		CancelOrderRequest{Reason: &reason}, userID)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Orders.Cancel(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	var reloaded models.Product
	require.NoError(t, env.DB.First(&reloaded, product.ID).Error)
	assert.Equal(t, uint(5), reloaded.Stock)
}

func TestValidateCartHandler(t *testing.T) {
	env := newTestEnv(t)
	userID, _, product := env.seedCatalog(1)
	require.NoError(t, env.DB.Create(&models.CartItem{UserID: userID, ProductID: product.ID, Quantity: 3}).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/cart/validate", nil, userID)
	require.NoError(t, env.Orders.ValidateCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.CartValidation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.IsValid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0].Reason, "only 1 available")
}

func TestGetMyOrdersHandlerPagination(t *testing.T) {
	env := newTestEnv(t)
	userID, _, product := env.seedCatalog(10)

	for i := 0; i < 3; i++ {
		require.NoError(t, env.DB.Create(&models.CartItem{UserID: userID, ProductID: product.ID, Quantity: 1}).Error)
		_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders",
			CheckoutRequest{ShippingAddress: "42 Wallaby Way, Sydney"}, userID)
		require.NoError(t, env.Orders.Checkout(c))
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/orders?page=1&limit=2", nil, userID)
	require.NoError(t, env.Orders.GetMyOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Order `json:"data"`
		Meta struct {
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
			HasNext    bool  `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, int64(3), resp.Meta.Total)
	assert.Equal(t, int64(2), resp.Meta.TotalPages)
	assert.True(t, resp.Meta.HasNext)
}

func TestAddToCartHandler(t *testing.T) {
	env := newTestEnv(t)
	userID, _, product := env.seedCatalog(5)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart",
		AddToCartRequest{ProductID: product.ID, Quantity: 2}, userID)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, product.ID, item.ProductID)
	assert.Equal(t, uint(2), item.Quantity)
}
