package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/markethub/markethub/internal/models"
	"github.com/markethub/markethub/internal/repo"
)

const (
	minAddressLen = 10
	maxAddressLen = 500
	minReasonLen  = 5
	maxReasonLen  = 500

	orderEventsTopic = "order_events"
)

type OrderService struct {
	Repo     *repo.GormRepo
	Producer Publisher
}

// CartIssue describes one problem with a cart line found by ValidateCart.
type CartIssue struct {
	ProductID uint   `json:"product_id"`
	Product   string `json:"product"`
	Reason    string `json:"reason"`
}

type CartValidation struct {
	IsValid bool        `json:"is_valid"`
	Issues  []CartIssue `json:"issues"`
}

// Checkout converts the user's cart into one PENDING order per vendor inside
// a single transaction: validate every line, partition by vendor, snapshot
// prices, decrement stock and clear the cart. Any failure rolls the whole
// checkout back.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, shippingAddress string) ([]models.Order, error) {
	address := strings.TrimSpace(shippingAddress)
	if len(address) < minAddressLen || len(address) > maxAddressLen {
		return nil, fmt.Errorf("%w: shipping address must be between %d and %d characters", ErrValidation, minAddressLen, maxAddressLen)
	}

	var orders []models.Order
	txErr := s.Repo.Tx(ctx, func(r *repo.GormRepo) error {
		items, err := r.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: cart is empty", ErrValidation)
		}

		// The whole cart is validated before anything is written; one bad
		// line aborts the entire checkout.
		for i := range items {
			if reason := lineIssue(&items[i]); reason != "" {
				return fmt.Errorf("%w: %s", ErrValidation, reason)
			}
		}

		for _, group := range groupByVendor(items) {
			total := decimal.Zero
			orderItems := make([]models.OrderItem, 0, len(group.items))
			for _, it := range group.items {
				price := it.Product.Price
				total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
				orderItems = append(orderItems, models.OrderItem{
					ProductID: it.ProductID,
					Quantity:  it.Quantity,
					Price:     price,
				})
			}

			order := models.Order{
				UserID:          userID,
				VendorID:        group.vendorID,
				ShippingAddress: address,
				Total:           total,
				Status:          models.OrderStatusPending,
				Items:           orderItems,
			}
			if err := r.CreateOrder(ctx, &order); err != nil {
				return err
			}
			orders = append(orders, order)
		}

		// The conditional decrement re-checks stock at write time, closing
		// the window between the validation read and the commit.
		for _, it := range items {
			ok, err := r.DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				product, err := r.GetProduct(ctx, it.ProductID)
				if err != nil {
					return err
				}
				return fmt.Errorf("%w: %q: only %d available in stock", ErrValidation, product.Name, product.Stock)
			}
		}

		return r.ClearCart(ctx, userID)
	})
	if txErr != nil {
		return nil, txErr
	}

	for _, order := range orders {
		publish(ctx, s.Producer, orderEventsTopic, fmt.Sprint(order.ID), map[string]any{
			"type":      "order_created",
			"order_id":  order.ID,
			"user_id":   order.UserID,
			"vendor_id": order.VendorID,
			"total":     order.Total,
		})
	}
	return orders, nil
}

// ValidateCart is the read-only pre-checkout health check. Unlike Checkout it
// collects every issue instead of stopping at the first one, and mutates
// nothing; the authoritative validation still runs inside Checkout.
func (s *OrderService) ValidateCart(ctx context.Context, userID uuid.UUID) (*CartValidation, error) {
	items, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	issues := make([]CartIssue, 0)
	for i := range items {
		if reason := lineIssue(&items[i]); reason != "" {
			name := ""
			if items[i].Product != nil {
				name = items[i].Product.Name
			}
			issues = append(issues, CartIssue{
				ProductID: items[i].ProductID,
				Product:   name,
				Reason:    reason,
			})
		}
	}
	return &CartValidation{IsValid: len(issues) == 0, Issues: issues}, nil
}

// UpdateStatus applies a vendor-initiated status transition. On CANCELLED the
// items' quantities are restored to stock in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, vendorUserID uuid.UUID, orderID uint, next models.OrderStatus) (*models.Order, error) {
	vendor, err := s.Repo.VendorByUserID(ctx, vendorUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: caller has no vendor profile", ErrForbidden)
		}
		return nil, err
	}

	var updated *models.Order
	txErr := s.Repo.Tx(ctx, func(r *repo.GormRepo) error {
		order, err := r.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
			}
			return err
		}
		if order.VendorID != vendor.ID {
			return fmt.Errorf("%w: order belongs to another vendor", ErrForbidden)
		}
		if order.Status.IsTerminal() {
			return fmt.Errorf("%w: order is already %s", ErrValidation, order.Status)
		}
		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: cannot move order from %s to %s", ErrValidation, order.Status, next)
		}

		if next == models.OrderStatusCancelled {
			if err := restoreStock(ctx, r, order); err != nil {
				return err
			}
		}
		if err := r.UpdateOrderStatus(ctx, order.ID, next, nil); err != nil {
			return err
		}

		updated, err = r.GetOrder(ctx, order.ID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	publish(ctx, s.Producer, orderEventsTopic, fmt.Sprint(updated.ID), map[string]any{
		"type":     "order_status_changed",
		"order_id": updated.ID,
		"status":   updated.Status,
	})
	return updated, nil
}

// CancelOrder is the customer-initiated cancellation: only the order's owner,
// only from PENDING or CONFIRMED, with the same stock restoration as the
// vendor-side cancel.
func (s *OrderService) CancelOrder(ctx context.Context, userID uuid.UUID, orderID uint, reason *string) (*models.Order, error) {
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if len(trimmed) < minReasonLen || len(trimmed) > maxReasonLen {
			return nil, fmt.Errorf("%w: cancellation reason must be between %d and %d characters", ErrValidation, minReasonLen, maxReasonLen)
		}
		reason = &trimmed
	}

	var updated *models.Order
	txErr := s.Repo.Tx(ctx, func(r *repo.GormRepo) error {
		order, err := r.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
			}
			return err
		}
		if order.UserID != userID {
			return fmt.Errorf("%w: order belongs to another customer", ErrForbidden)
		}
		if !order.Status.CustomerCancellable() {
			return fmt.Errorf("%w: order in status %s can no longer be cancelled", ErrValidation, order.Status)
		}

		if err := restoreStock(ctx, r, order); err != nil {
			return err
		}
		if err := r.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCancelled, reason); err != nil {
			return err
		}

		updated, err = r.GetOrder(ctx, order.ID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	publish(ctx, s.Producer, orderEventsTopic, fmt.Sprint(updated.ID), map[string]any{
		"type":     "order_cancelled",
		"order_id": updated.ID,
		"user_id":  updated.UserID,
	})
	return updated, nil
}

// GetOrder returns the order to its customer or its owning vendor; anyone
// else gets ErrForbidden.
func (s *OrderService) GetOrder(ctx context.Context, callerID uuid.UUID, orderID uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.UserID == callerID {
		return order, nil
	}
	vendor, err := s.Repo.VendorByUserID(ctx, callerID)
	if err == nil && vendor.ID == order.VendorID {
		return order, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: not your order", ErrForbidden)
}

func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID, status *models.OrderStatus, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrdersByUser(ctx, userID, status, offset, limit)
}

func (s *OrderService) ListVendorOrders(ctx context.Context, vendorUserID uuid.UUID, status *models.OrderStatus, offset, limit int) (int64, []models.Order, error) {
	vendor, err := s.Repo.VendorByUserID(ctx, vendorUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, fmt.Errorf("%w: caller has no vendor profile", ErrForbidden)
		}
		return 0, nil, err
	}
	return s.Repo.ListOrdersByVendor(ctx, vendor.ID, status, offset, limit)
}

// lineIssue reports why a cart line cannot be purchased, or "" if it can.
func lineIssue(item *models.CartItem) string {
	product := item.Product
	if product == nil || !product.IsActive {
		return fmt.Sprintf("product %d is no longer available", item.ProductID)
	}
	if product.Vendor == nil || !product.Vendor.IsApproved {
		return fmt.Sprintf("%q is sold by a vendor that is not approved", product.Name)
	}
	if item.Quantity > product.Stock {
		return fmt.Sprintf("%q: only %d available in stock", product.Name, product.Stock)
	}
	return ""
}

type vendorGroup struct {
	vendorID uint
	items    []models.CartItem
}

// groupByVendor partitions cart lines per vendor, groups ordered by first
// occurrence.
func groupByVendor(items []models.CartItem) []vendorGroup {
	index := make(map[uint]int, len(items))
	groups := make([]vendorGroup, 0, len(items))
	for _, it := range items {
		vendorID := it.Product.VendorID
		i, ok := index[vendorID]
		if !ok {
			i = len(groups)
			index[vendorID] = i
			groups = append(groups, vendorGroup{vendorID: vendorID})
		}
		groups[i].items = append(groups[i].items, it)
	}
	return groups
}

func restoreStock(ctx context.Context, r *repo.GormRepo, order *models.Order) error {
	for _, item := range order.Items {
		if err := r.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}
