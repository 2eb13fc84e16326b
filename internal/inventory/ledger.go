package inventory

import (
	"errors"
	"fmt"
	"time"

	"store-backend/internal/database"
	"store-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	// ErrStockMissing: iptal sırasında kalemin stok kaydı yok, veri tutarsız
	ErrStockMissing    = errors.New("stock record missing")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

type ProductNotFoundError struct {
	ProductID uint
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with ID %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// InsufficientStockError: istenen miktar eldekinden fazla
type InsufficientStockError struct {
	ProductID uint
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product ID %d. Available: %d, Requested: %d", e.ProductID, e.Available, e.Requested)
}

// Ledger: ürün stok miktarlarının tek sahibi. Tüm metodlar çağıranın
// transaction'ı (tx) üzerinde çalışır; commit/rollback çağırana aittir.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve: stok yeterliyse miktarı düşer ve güncel stoğu ürünüyle birlikte döner.
// Kontrol ve düşüm tek bir koşullu UPDATE ile yapılır, aynı ürüne gelen
// eşzamanlı rezervasyonlar satır kilidinde sıralanır.
func (l *Ledger) Reserve(tx *gorm.DB, productID uint, quantity int) (*models.ProductStock, *models.Product, error) {
	if quantity <= 0 {
		return nil, nil, ErrInvalidQuantity
	}

	res := tx.Model(&models.ProductStock{}).
		Where("product_id = ? AND quantity >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", quantity),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, nil, fmt.Errorf("stok düşülemedi: %w", res.Error)
	}

	var stock models.ProductStock
	if err := tx.Where("product_id = ?", productID).First(&stock).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, nil, &ProductNotFoundError{ProductID: productID}
		}
		return nil, nil, fmt.Errorf("stok okunamadı: %w", err)
	}

	// Satır var ama koşul tutmadı: yetersiz stok
	if res.RowsAffected == 0 {
		return nil, nil, &InsufficientStockError{
			ProductID: productID,
			Available: stock.Quantity,
			Requested: quantity,
		}
	}

	var product models.Product
	if err := tx.First(&product, "id = ?", productID).Error; err != nil {
		return nil, nil, fmt.Errorf("ürün okunamadı: %w", err)
	}

	return &stock, &product, nil
}

// Release: iptal edilen kalemin miktarını stoğa geri ekler
func (l *Ledger) Release(tx *gorm.DB, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	res := tx.Model(&models.ProductStock{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", quantity),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("stok geri eklenemedi: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product ID %d: %w", productID, ErrStockMissing)
	}
	return nil
}

// Available: ürünün eldeki miktarı (salt okuma)
func (l *Ledger) Available(tx *gorm.DB, productID uint) (int, error) {
	var stock models.ProductStock
	if err := tx.Where("product_id = ?", productID).First(&stock).Error; err != nil {
		if database.IsNotFound(err) {
			return 0, &ProductNotFoundError{ProductID: productID}
		}
		return 0, err
	}
	return stock.Quantity, nil
}
