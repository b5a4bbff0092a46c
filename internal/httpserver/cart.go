package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/markethub/markethub/internal/jwtauth"
	"github.com/markethub/markethub/internal/service"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	items, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	var req AddToCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.AddToCart(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveOne(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	productID, err := productIDParam(c)
	if err != nil {
		return err
	}

	deleted, item, err := h.Svc.RemoveOne(ctx, userID, productID)
	if err != nil {
		return httpError(err)
	}
	if deleted {
		return c.JSON(http.StatusOK, map[string]any{"deleted_product": productID})
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveLine(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := jwtauth.UserID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	productID, err := productIDParam(c)
	if err != nil {
		return err
	}

	if err := h.Svc.RemoveLine(ctx, userID, productID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func productIDParam(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	return uint(id), nil
}
