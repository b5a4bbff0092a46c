package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/markethub/markethub/internal/models"
	"github.com/markethub/markethub/internal/repo"
)

const (
	maxCartQuantity = 100

	cartEventsTopic = "cart_events"
)

type CartService struct {
	Repo     *repo.GormRepo
	Producer Publisher
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.Repo.GetCart(ctx, userID)
}

func (s *CartService) AddToCart(ctx context.Context, userID uuid.UUID, productID, quantity uint) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: product %q is no longer available", ErrValidation, product.Name)
	}

	item := models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := s.Repo.AddToCart(ctx, &item, maxCartQuantity); err != nil {
		return nil, err
	}

	publish(ctx, s.Producer, cartEventsTopic, userID.String(), map[string]any{
		"type":       "cart_item_added",
		"user_id":    userID,
		"product_id": productID,
		"quantity":   item.Quantity,
	})
	return &item, nil
}

func (s *CartService) RemoveOne(ctx context.Context, userID uuid.UUID, productID uint) (bool, *models.CartItem, error) {
	deleted, item, err := s.Repo.RemoveOneFromCart(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, fmt.Errorf("%w: cart line for product %d", ErrNotFound, productID)
		}
		return false, nil, err
	}

	publish(ctx, s.Producer, cartEventsTopic, userID.String(), map[string]any{
		"type":       "cart_item_removed",
		"user_id":    userID,
		"product_id": productID,
		"deleted":    deleted,
	})
	return deleted, item, nil
}

func (s *CartService) RemoveLine(ctx context.Context, userID uuid.UUID, productID uint) error {
	if err := s.Repo.RemoveLineFromCart(ctx, userID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: cart line for product %d", ErrNotFound, productID)
		}
		return err
	}

	publish(ctx, s.Producer, cartEventsTopic, userID.String(), map[string]any{
		"type":       "cart_line_deleted",
		"user_id":    userID,
		"product_id": productID,
	})
	return nil
}
