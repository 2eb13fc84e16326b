// Package pricing: alım anındaki birim fiyatın dondurulması ve tutar hesabı.
package pricing

import (
	"store-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Scale: para alanlarının kuruş hassasiyeti
const Scale = 2

// MaxAmount: decimal(10,2) kolonuna sığan en büyük tutar
var MaxAmount = decimal.New(9999999999, -Scale)

// Snapshot: ürünün o anki fiyatından kaleme yazılacak değişmez fiyat.
// decimal.Decimal değer tipidir; sonradan yapılan katalog güncellemeleri etkilemez.
func Snapshot(p *models.Product) decimal.Decimal {
	return p.Price.Round(Scale)
}

// LineTotal: miktar * dondurulmuş fiyat
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total: kalemlerin toplamı
func Total(items []models.PurchaseItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineTotal(item.PriceAtPurchase, item.Quantity))
	}
	return total.Round(Scale)
}

// Fits: tutar para kolonlarına yazılabilir mi
func Fits(amount decimal.Decimal) bool {
	return amount.Round(Scale).LessThanOrEqual(MaxAmount)
}

// Normalize: dışarıdan gelen fiyatı iki hane kuruşa yuvarlar
func Normalize(price decimal.Decimal) decimal.Decimal {
	return price.Round(Scale)
}
