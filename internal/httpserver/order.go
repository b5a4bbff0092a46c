package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/markethub/markethub/internal/jwtauth"
	"github.com/markethub/markethub/internal/logging"
	"github.com/markethub/markethub/internal/models"
	"github.com/markethub/markethub/internal/service"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	orders, err := h.Svc.Checkout(ctx, userID, req.ShippingAddress)
	if err != nil {
		l.Warn("checkout failed", "user_id", userID, "error", err)
		return httpError(err)
	}

	l.Info("checkout completed", "user_id", userID, "orders", len(orders))
	return c.JSON(http.StatusCreated, map[string]any{"orders": orders})
}

func (h *OrderHTTP) ValidateCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	result, err := h.Svc.ValidateCart(ctx, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *OrderHTTP) GetMyOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	status, err := statusFilter(c)
	if err != nil {
		return err
	}

	page, offset, limit := pageParams(c)
	total, orders, err := h.Svc.ListMyOrders(ctx, userID, status, offset, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, paginated(orders, page, limit, total))
}

func (h *OrderHTTP) GetVendorOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	status, err := statusFilter(c)
	if err != nil {
		return err
	}

	page, offset, limit := pageParams(c)
	total, orders, err := h.Svc.ListVendorOrders(ctx, userID, status, offset, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, paginated(orders, page, limit, total))
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(ctx, userID, orderID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	next, ok := models.ParseOrderStatus(req.Status)
	if !ok || next == models.OrderStatusPending {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	order, err := h.Svc.UpdateStatus(ctx, userID, orderID, next)
	if err != nil {
		l.Warn("status update failed", "order_id", orderID, "status", next, "error", err)
		return httpError(err)
	}

	l.Info("status updated", "order_id", orderID, "status", next)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req CancelOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.CancelOrder(ctx, userID, orderID, req.Reason)
	if err != nil {
		l.Warn("cancellation failed", "order_id", orderID, "error", err)
		return httpError(err)
	}

	l.Info("order cancelled", "order_id", orderID)
	return c.JSON(http.StatusOK, order)
}

func orderIDParam(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return uint(id), nil
}

func statusFilter(c echo.Context) (*models.OrderStatus, error) {
	raw := c.QueryParam("status")
	if raw == "" {
		return nil, nil
	}
	status, ok := models.ParseOrderStatus(raw)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}
	return &status, nil
}
