package inventory

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"store-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CurrentStock struct {
	ProductID   uint   `json:"productId"`
	SKU         string `json:"sku"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	LastUpdate  string `json:"lastUpdate"`
}

// GET /api/stock?below=5
// Salt okuma: stok sadece alım ve iptal ile değişir.
func GetCurrentStockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		below := -1
		if s := c.Query("below"); s != "" {
			if _, err := fmt.Sscan(s, &below); err != nil || below < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "below must be a non-negative integer")
			}
		}

		var products []models.Product
		if err := db.WithContext(c.UserContext()).Preload("Stock").Find(&products).Error; err != nil {
			return fmt.Errorf("stoklar listelenemedi: %w", err)
		}

		res := make([]CurrentStock, 0, len(products))
		for _, p := range products {
			if p.Stock == nil {
				continue
			}
			if below >= 0 && p.Stock.Quantity >= below {
				continue
			}
			res = append(res, CurrentStock{
				ProductID:   p.ID,
				SKU:         p.SKU,
				ProductName: p.Name,
				Quantity:    p.Stock.Quantity,
				LastUpdate:  p.Stock.UpdatedAt.Format(time.RFC3339),
			})
		}

		// En az stok önce, eşitse ada göre
		sort.Slice(res, func(i, j int) bool {
			if res[i].Quantity != res[j].Quantity {
				return res[i].Quantity < res[j].Quantity
			}
			return res[i].ProductName < res[j].ProductName
		})

		return c.JSON(res)
	}
}

// GET /api/products/:id/stock
func GetProductStockHandler(db *gorm.DB, ledger *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid product id")
		}

		qty, err := ledger.Available(db.WithContext(c.UserContext()), uint(id))
		if err != nil {
			var pnf *ProductNotFoundError
			if errors.As(err, &pnf) {
				return fiber.NewError(fiber.StatusNotFound, pnf.Error())
			}
			return err
		}

		return c.JSON(fiber.Map{
			"productId": id,
			"quantity":  qty,
		})
	}
}
