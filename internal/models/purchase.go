package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending" // tanımlı ama oluşturma doğrudan completed yazar
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// Purchase: müşteri alımı (birden fazla kalem içerir)
type Purchase struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CustomerID  uint            `gorm:"index;not null" json:"customerId"`
	Customer    Customer        `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"customer"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalAmount"` // oluşturulurken bir kez hesaplanır
	Status      PurchaseStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Items         []PurchaseItem         `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"items"`
	Cancellations []PurchaseCancellation `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"cancellationRecord,omitempty"`
}

// PurchaseItem: alım kalemi. Fiyat alım anında dondurulur.
type PurchaseItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PurchaseID      uint            `gorm:"index;not null" json:"purchaseId"`
	ProductID       uint            `gorm:"index;not null" json:"productId"`
	Product         Product         `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product"`
	Quantity        int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	PriceAtPurchase decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"priceAtPurchase"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// PurchaseCancellation: iptal kaydı, alım başına en fazla bir tane
type PurchaseCancellation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PurchaseID  uint      `gorm:"uniqueIndex;not null" json:"purchaseId"`
	CustomerID  uint      `gorm:"index;not null" json:"customerId"`
	Customer    Customer  `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"-"`
	Reason      *string   `gorm:"type:text" json:"reason"`
	CancelledAt time.Time `gorm:"autoCreateTime;not null" json:"cancelledAt"`
}
