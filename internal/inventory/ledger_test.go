package inventory

import (
	"errors"
	"testing"

	"store-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReserveDecrementsStock(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.SeedProduct(t, db, "SKU-1", "12.50", 10)
	ledger := NewLedger()

	stock, product, err := ledger.Reserve(db, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, stock.Quantity)
	assert.Equal(t, "12.5", product.Price.String())
	assert.Equal(t, 6, testutil.StockOf(t, db, p.ID))
}

func TestReserveAllowsExactQuantity(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.SeedProduct(t, db, "SKU-1", "1.00", 3)

	stock, _, err := NewLedger().Reserve(db, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Quantity)
}

func TestReserveInsufficientStock(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.SeedProduct(t, db, "SKU-1", "1.00", 3)

	_, _, err := NewLedger().Reserve(db, p.ID, 5)
	require.Error(t, err)

	var insufficient *InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 3, insufficient.Available)
	assert.Equal(t, 5, insufficient.Requested)
	assert.Contains(t, err.Error(), "Available: 3, Requested: 5")
	assert.Equal(t, 3, testutil.StockOf(t, db, p.ID))
}

func TestReserveUnknownProduct(t *testing.T) {
	db := testutil.NewDB(t)

	_, _, err := NewLedger().Reserve(db, 999, 1)
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, "Product with ID 999 not found", err.Error())
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.SeedProduct(t, db, "SKU-1", "1.00", 3)

	_, _, err := NewLedger().Reserve(db, p.ID, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 3, testutil.StockOf(t, db, p.ID))
}

func TestReleaseRestoresStock(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.SeedProduct(t, db, "SKU-1", "1.00", 2)
	ledger := NewLedger()

	require.NoError(t, ledger.Release(db, p.ID, 5))
	assert.Equal(t, 7, testutil.StockOf(t, db, p.ID))
}

func TestReleaseMissingStock(t *testing.T) {
	db := testutil.NewDB(t)

	err := NewLedger().Release(db, 42, 1)
	require.ErrorIs(t, err, ErrStockMissing)
}

func TestReserveRollsBackWithTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	p1 := testutil.SeedProduct(t, db, "SKU-1", "1.00", 5)
	p2 := testutil.SeedProduct(t, db, "SKU-2", "1.00", 1)
	ledger := NewLedger()

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, _, err := ledger.Reserve(tx, p1.ID, 2); err != nil {
			return err
		}
		_, _, err := ledger.Reserve(tx, p2.ID, 100)
		return err
	})
	require.Error(t, err)

	assert.Equal(t, 5, testutil.StockOf(t, db, p1.ID))
	assert.Equal(t, 1, testutil.StockOf(t, db, p2.ID))
}

func TestAvailable(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.SeedProduct(t, db, "SKU-1", "1.00", 8)
	ledger := NewLedger()

	n, err := ledger.Available(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = ledger.Available(db, 404)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestReserveLeavesNoGapBetweenCheckAndDecrement(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.SeedProduct(t, db, "SKU-1", "1.00", 5)

	// başka bir alım stok okunduktan hemen sonra 3 adet alıyor
	rivalTook := 0
	testutil.InterleaveAfterRead(t, db, "product_stocks", func(tx *gorm.DB) error {
		res := tx.Exec("UPDATE product_stocks SET quantity = quantity - 3 WHERE product_id = ? AND quantity >= 3", p.ID)
		if res.RowsAffected > 0 {
			rivalTook = 3
		}
		return res.Error
	})

	reserved := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := NewLedger().Reserve(tx, p.ID, 4)
		var insufficient *InsufficientStockError
		switch {
		case err == nil:
			reserved = 4
		case errors.As(err, &insufficient):
		default:
			return err
		}
		return nil
	})
	require.NoError(t, err)

	left := testutil.StockOf(t, db, p.ID)
	assert.GreaterOrEqual(t, left, 0)
	assert.Equal(t, 5, left+reserved+rivalTook, "satılan toplam stoğu aşamaz")
}
