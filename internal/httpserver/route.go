package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/markethub/markethub/internal/jwtauth"
)

type Deps struct {
	OrderHandler   *OrderHTTP
	CartHandler    *CartHTTP
	ProductHandler *ProductHTTP
	SearchHandler  *SearchHTTP
	JWTSecret      []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	authed := v1.Group("", jwtauth.Middleware(d.JWTSecret))

	cart := authed.Group("/cart")
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.GET("/validate", d.OrderHandler.ValidateCart)
	cart.DELETE("/:product_id", d.CartHandler.RemoveOne)
	cart.DELETE("/:product_id/all", d.CartHandler.RemoveLine)

	orders := authed.Group("/orders")
	orders.POST("", d.OrderHandler.Checkout)
	orders.GET("", d.OrderHandler.GetMyOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("/:id/cancel", d.OrderHandler.Cancel)

	vendor := authed.Group("/vendor")
	vendor.GET("/orders", d.OrderHandler.GetVendorOrders)
	vendor.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus)
	vendor.POST("/products", d.ProductHandler.CreateProduct)
	vendor.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	vendor.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
}
