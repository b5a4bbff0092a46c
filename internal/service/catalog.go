package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/markethub/markethub/internal/cache"
	"github.com/markethub/markethub/internal/models"
	"github.com/markethub/markethub/internal/repo"
)

const productEventsTopic = "product_events"

type CatalogService struct {
	Repo     *repo.GormRepo
	Cache    *cache.ProductCache
	Producer Publisher
}

// ProductPatch carries the mutable product fields; nil means "leave as is".
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *uint            `json:"stock"`
	CategoryID  *uint            `json:"category_id"`
}

// GetProduct serves reads through the cache when one is configured. Checkout
// never goes through here; its validation reads run inside the transaction.
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	if s.Cache != nil {
		if product, ok := s.Cache.Get(ctx, id); ok {
			return product, nil
		}
	}

	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, product)
	}
	return product, nil
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, offset, limit)
}

// CreateProduct registers a product under the caller's vendor profile. The
// product only becomes purchasable once the vendor is approved.
func (s *CatalogService) CreateProduct(ctx context.Context, vendorUserID uuid.UUID, product *models.Product) error {
	vendor, err := s.vendorOf(ctx, vendorUserID)
	if err != nil {
		return err
	}
	if product.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if product.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}

	product.VendorID = vendor.ID
	product.IsActive = true
	if err := s.Repo.CreateProduct(ctx, product); err != nil {
		return err
	}

	publish(ctx, s.Producer, productEventsTopic, fmt.Sprint(product.ID), map[string]any{
		"type":       "product_created",
		"product_id": product.ID,
		"vendor_id":  vendor.ID,
		"name":       product.Name,
	})
	return nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, vendorUserID uuid.UUID, id uint, patch ProductPatch) (*models.Product, error) {
	vendor, err := s.vendorOf(ctx, vendorUserID)
	if err != nil {
		return nil, err
	}

	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, err
	}
	if product.VendorID != vendor.ID {
		return nil, fmt.Errorf("%w: product belongs to another vendor", ErrForbidden)
	}

	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
		}
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.CategoryID != nil {
		product.CategoryID = *patch.CategoryID
	}

	if err := s.Repo.SaveProduct(ctx, product); err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, product.ID)
	}

	publish(ctx, s.Producer, productEventsTopic, fmt.Sprint(product.ID), map[string]any{
		"type":       "product_updated",
		"product_id": product.ID,
		"name":       product.Name,
	})
	return product, nil
}

// DeleteProduct soft-deletes: the row stays so historical order items keep
// their reference, but the product disappears from listings and checkout.
func (s *CatalogService) DeleteProduct(ctx context.Context, vendorUserID uuid.UUID, id uint) error {
	vendor, err := s.vendorOf(ctx, vendorUserID)
	if err != nil {
		return err
	}

	product, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return err
	}
	if product.VendorID != vendor.ID {
		return fmt.Errorf("%w: product belongs to another vendor", ErrForbidden)
	}

	if err := s.Repo.SoftDeleteProduct(ctx, id); err != nil {
		return err
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, id)
	}

	publish(ctx, s.Producer, productEventsTopic, fmt.Sprint(id), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})
	return nil
}

func (s *CatalogService) vendorOf(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.Repo.VendorByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: caller has no vendor profile", ErrForbidden)
		}
		return nil, err
	}
	return vendor, nil
}
