package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/markethub/markethub/internal/models"
)

// GetCart returns the user's cart lines with product and vendor joined, in
// insertion order.
func (r *GormRepo) GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).
		Preload("Product.Vendor").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart merges the quantity into an existing (user, product) line or
// creates one, clamping the line at maxQuantity.
func (r *GormRepo) AddToCart(ctx context.Context, item *models.CartItem, maxQuantity uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CartItem
		err := tx.Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).
			First(&existing).Error
		if err == nil {
			existing.Quantity += item.Quantity
			if existing.Quantity > maxQuantity {
				existing.Quantity = maxQuantity
			}
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*item = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if item.Quantity > maxQuantity {
			item.Quantity = maxQuantity
		}
		return tx.Create(item).Error
	})
}

// RemoveOneFromCart decrements the line by one, deleting it when the last
// unit is removed. Reports whether the line was deleted.
func (r *GormRepo) RemoveOneFromCart(ctx context.Context, userID uuid.UUID, productID uint) (bool, *models.CartItem, error) {
	var item models.CartItem
	deleted := false

	if err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND product_id = ?", userID, productID).
			First(&item).Error; err != nil {
			return err
		}
		if item.Quantity > 1 {
			if err := tx.Model(&item).Update("quantity", gorm.Expr("quantity - 1")).Error; err != nil {
				return err
			}
			return tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
		}
		deleted = true
		return tx.Delete(&item).Error
	}); err != nil {
		return false, nil, err
	}
	return deleted, &item, nil
}

func (r *GormRepo) RemoveLineFromCart(ctx context.Context, userID uuid.UUID, productID uint) error {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
