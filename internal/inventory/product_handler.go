package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"store-backend/internal/audit"
	"store-backend/internal/database"
	"store-backend/internal/models"
	"store-backend/internal/pricing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockResponse struct {
	ID        uint   `json:"id"`
	Quantity  int    `json:"quantity"`
	UpdatedAt string `json:"updatedAt"`
}

type ProductResponse struct {
	ID          uint           `json:"id"`
	SKU         string         `json:"sku"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       string         `json:"price"`
	Stock       *StockResponse `json:"stock"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
}

// Fiyat JSON'da sayı ya da string olarak gelebilir
type CreateProductRequest struct {
	SKU         string           `json:"sku"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
}

// Stok burada değişmez; sadece alım/iptal ile değişir
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

func toProductResponse(p models.Product) ProductResponse {
	res := ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(pricing.Scale),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Stock != nil {
		res.Stock = &StockResponse{
			ID:        p.Stock.ID,
			Quantity:  p.Stock.Quantity,
			UpdatedAt: p.Stock.UpdatedAt.Format(time.RFC3339),
		}
	}
	return res
}

// GET /api/products
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := db.WithContext(c.UserContext()).
			Preload("Stock").
			Order("created_at DESC, id DESC").
			Find(&products).Error; err != nil {
			return fmt.Errorf("ürünler listelenemedi: %w", err)
		}

		res := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			res = append(res, toProductResponse(p))
		}
		return c.JSON(res)
	}
}

// GET /api/products/:id
func GetProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(db.WithContext(c.UserContext()), c)
		if err != nil {
			return err
		}
		return c.JSON(toProductResponse(*p))
	}
}

// POST /api/admin/products
// Ürün ve stok kaydı tek transaction'da oluşturulur.
func CreateProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.SKU = strings.TrimSpace(body.SKU)
		body.Name = strings.TrimSpace(body.Name)
		body.Description = strings.TrimSpace(body.Description)

		if body.SKU == "" || body.Name == "" || body.Description == "" || body.Price == nil || body.Quantity == nil {
			return fiber.NewError(fiber.StatusBadRequest, "sku, name, description, price, and quantity are required")
		}
		if body.Price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Price must be a positive number")
		}
		if !pricing.Fits(*body.Price) {
			return fiber.NewError(fiber.StatusBadRequest, "Price must not exceed "+pricing.MaxAmount.StringFixed(pricing.Scale))
		}
		if *body.Quantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Quantity must be a non-negative number")
		}

		p := models.Product{
			SKU:         body.SKU,
			Name:        body.Name,
			Description: body.Description,
			Price:       pricing.Normalize(*body.Price),
			Stock:       &models.ProductStock{Quantity: *body.Quantity},
		}

		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorFrom(c.UserContext()),
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Product created: %s (stock %d)", p.SKU, p.Stock.Quantity),
				After:       toProductResponse(p),
			})
		})
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "SKU already exists")
			}
			return fmt.Errorf("ürün oluşturulamadı: %w", err)
		}

		return c.Status(fiber.StatusCreated).JSON(toProductResponse(p))
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		conn := db.WithContext(c.UserContext())
		p, err := findProduct(conn, c)
		if err != nil {
			return err
		}
		before := toProductResponse(*p)

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		updates := map[string]interface{}{}
		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name cannot be empty")
			}
			updates["name"] = name
		}
		if body.Description != nil {
			updates["description"] = strings.TrimSpace(*body.Description)
		}
		if body.Price != nil {
			if body.Price.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "Price must be a positive number")
			}
			if !pricing.Fits(*body.Price) {
				return fiber.NewError(fiber.StatusBadRequest, "Price must not exceed "+pricing.MaxAmount.StringFixed(pricing.Scale))
			}
			// mevcut alımların PriceAtPurchase değeri etkilenmez
			updates["price"] = pricing.Normalize(*body.Price)
		}

		if len(updates) > 0 {
			err = conn.Transaction(func(tx *gorm.DB) error {
				if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
					return err
				}
				if err := tx.Preload("Stock").First(p, "id = ?", p.ID).Error; err != nil {
					return err
				}
				return audit.WriteLog(tx, audit.LogOptions{
					Actor:       audit.ActorFrom(c.UserContext()),
					EntityType:  "product",
					EntityID:    p.ID,
					Action:      models.AuditActionUpdate,
					Description: fmt.Sprintf("Product updated: %s", p.SKU),
					Before:      before,
					After:       toProductResponse(*p),
				})
			})
			if err != nil {
				return fmt.Errorf("ürün güncellenemedi: %w", err)
			}
		}

		return c.JSON(toProductResponse(*p))
	}
}

// DELETE /api/admin/products/:id
// Alım kalemlerinde geçen ürün silinemez; stok kaydı cascade ile silinir.
func DeleteProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		conn := db.WithContext(c.UserContext())
		p, err := findProduct(conn, c)
		if err != nil {
			return err
		}

		err = conn.Transaction(func(tx *gorm.DB) error {
			var refs int64
			if err := tx.Model(&models.PurchaseItem{}).Where("product_id = ?", p.ID).Count(&refs).Error; err != nil {
				return err
			}
			if refs > 0 {
				return errProductInUse
			}

			if err := tx.Delete(&models.Product{}, "id = ?", p.ID).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorFrom(c.UserContext()),
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Product deleted: %s", p.SKU),
				Before:      toProductResponse(*p),
			})
		})
		if err != nil {
			if errors.Is(err, errProductInUse) || database.IsForeignKeyViolation(err) {
				return errProductInUse
			}
			return fmt.Errorf("ürün silinemedi: %w", err)
		}

		return c.JSON(fiber.Map{"message": "Product deleted"})
	}
}

var errProductInUse = fiber.NewError(fiber.StatusBadRequest, "Cannot delete product with purchases")

func findProduct(db *gorm.DB, c *fiber.Ctx) (*models.Product, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid product id")
	}

	var p models.Product
	if err := db.Preload("Stock").First(&p, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		return nil, fmt.Errorf("ürün okunamadı: %w", err)
	}
	return &p, nil
}
