package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Vendor struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"       json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name       string    `gorm:"not null"                       json:"name"`
	IsApproved bool      `gorm:"not null;default:false"         json:"is_approved"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	VendorID    uint            `gorm:"index;not null"              json:"vendor_id"`
	CategoryID  uint            `gorm:"index"                       json:"category_id"`
	Name        string          `gorm:"not null"                    json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock       uint            `gorm:"not null;default:0"          json:"stock"`
	IsActive    bool            `gorm:"not null;default:true"       json:"is_active"`

	Vendor *Vendor `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey"                                            json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index:idx_cart_user_product,unique;not null" json:"user_id"`
	ProductID uint      `gorm:"index:idx_cart_user_product,unique;not null"           json:"product_id"`
	Quantity  uint      `gorm:"default:1;check:quantity>0"                            json:"quantity"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// Order is immutable once created except for Status and CancelReason. A cart
// spanning several vendors produces one Order per vendor.
type Order struct {
	ID              uint            `gorm:"primaryKey"                      json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null"        json:"user_id"`
	VendorID        uint            `gorm:"index;not null"                  json:"vendor_id"`
	ShippingAddress string          `gorm:"not null"                        json:"shipping_address"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null"     json:"total"`
	Status          OrderStatus     `gorm:"type:varchar(16);not null;index" json:"status"`
	CancelReason    *string         `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime"         json:"created_at"`

	Items  []OrderItem `gorm:"foreignKey:OrderID"  json:"items,omitempty"`
	Vendor *Vendor     `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
}

// OrderItem.Price is the product price captured at order-creation time; it is
// never recomputed from the current Product.Price.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	Quantity  uint            `gorm:"default:1;check:quantity>0"  json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}
