package pricing

import (
	"testing"

	"store-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotIsDetachedFromProduct(t *testing.T) {
	p := &models.Product{Price: decimal.RequireFromString("19.99")}

	price := Snapshot(p)
	p.Price = decimal.RequireFromString("25.00")

	assert.Equal(t, "19.99", price.StringFixed(Scale))
}

func TestSnapshotRoundsToCents(t *testing.T) {
	p := &models.Product{Price: decimal.RequireFromString("3.456")}
	assert.Equal(t, "3.46", Snapshot(p).StringFixed(Scale))
}

func TestTotal(t *testing.T) {
	items := []models.PurchaseItem{
		{Quantity: 3, PriceAtPurchase: decimal.RequireFromString("0.10")},
		{Quantity: 2, PriceAtPurchase: decimal.RequireFromString("19.99")},
	}
	// 0.30 + 39.98, float ile 40.279999... olurdu
	assert.Equal(t, "40.28", Total(items).StringFixed(Scale))
	assert.True(t, Total(nil).IsZero())
}

func TestFits(t *testing.T) {
	assert.Equal(t, "99999999.99", MaxAmount.StringFixed(Scale))
	assert.True(t, Fits(decimal.RequireFromString("99999999.99")))
	assert.True(t, Fits(decimal.RequireFromString("99999999.994")))
	assert.False(t, Fits(decimal.RequireFromString("99999999.995")))
	assert.False(t, Fits(LineTotal(decimal.RequireFromString("50000000.00"), 2)))
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, "50.00", LineTotal(decimal.RequireFromString("12.50"), 4).StringFixed(Scale))
}
