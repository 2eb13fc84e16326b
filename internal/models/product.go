package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SKU         string          `gorm:"size:64;not null;uniqueIndex" json:"sku"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"` // güncel katalog fiyatı
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Stock *ProductStock `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"stock,omitempty"`
}

// ProductStock: ürünün eldeki miktarı. Sadece inventory.Ledger değiştirir.
type ProductStock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"uniqueIndex;not null" json:"productId"`
	Quantity  int       `gorm:"not null;check:quantity >= 0" json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
