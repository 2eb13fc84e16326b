// Package testutil: testler için bellek içi SQLite veritabanı ve örnek kayıtlar.
package testutil

import (
	"fmt"
	"testing"

	"store-backend/internal/database"
	"store-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB: her test için ayrı, şeması kurulmuş bir veritabanı.
// Tek bağlantı kullanılır; eşzamanlı transaction'lar sırayla çalışır.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func SeedCustomer(t testing.TB, db *gorm.DB, name, email string) models.Customer {
	t.Helper()
	c := models.Customer{Name: name, Email: email}
	require.NoError(t, db.Create(&c).Error)
	return c
}

// SeedProduct: ürün + stok kaydı
func SeedProduct(t testing.TB, db *gorm.DB, sku, price string, quantity int) models.Product {
	t.Helper()
	p := models.Product{
		SKU:         sku,
		Name:        "Product " + sku,
		Description: "test product",
		Price:       decimal.RequireFromString(price),
		Stock:       &models.ProductStock{Quantity: quantity},
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func StockOf(t testing.TB, db *gorm.DB, productID uint) int {
	t.Helper()
	var s models.ProductStock
	require.NoError(t, db.Where("product_id = ?", productID).First(&s).Error)
	return s.Quantity
}

// InterleaveAfterRead: table ilk kez okunduğunda, okuma ile sonraki yazma
// arasına başka bir yazıcının commit'ini sıkıştırır. write aynı bağlantıda
// çalışır; tek bağlantılı test veritabanında da yarış penceresi oluşur.
func InterleaveAfterRead(t testing.TB, db *gorm.DB, table string, write func(tx *gorm.DB) error) {
	t.Helper()

	fired := false
	err := db.Callback().Query().After("gorm:query").Register("testutil:interleave_"+table, func(d *gorm.DB) {
		if fired || d.Error != nil || d.Statement.Table != table {
			return
		}
		fired = true
		if err := write(d.Session(&gorm.Session{NewDB: true})); err != nil {
			_ = d.AddError(err)
		}
	})
	require.NoError(t, err)
}
