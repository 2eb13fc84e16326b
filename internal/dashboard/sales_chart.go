package dashboard

import (
	"fmt"
	"sort"
	"time"

	"store-backend/internal/models"
	"store-backend/internal/pricing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesChartPoint struct {
	Label     string `json:"label"` // gün / hafta başlangıcı / ay başlangıcı
	Completed int    `json:"completed"`
	Cancelled int    `json:"cancelled"`
	Revenue   string `json:"revenue"` // sadece completed alımlar
}

type SalesChartResponse struct {
	Period       string            `json:"period"` // daily | weekly | monthly
	From         string            `json:"from"`
	To           string            `json:"to"`
	Points       []SalesChartPoint `json:"points"`
	TotalRevenue string            `json:"totalRevenue"`
}

// GET /api/dashboard/sales?period=daily&count=7
func SalesChartHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")
		if !validPeriod(period) {
			return fiber.NewError(fiber.StatusBadRequest, "period must be one of daily, weekly, monthly")
		}
		count, err := parseCount(c.Query("count"), period)
		if err != nil {
			return err
		}

		start, end := window(time.Now(), period, count)

		var purchases []models.Purchase
		if err := db.WithContext(c.UserContext()).
			Select("id", "total_amount", "status", "created_at").
			Where("created_at >= ? AND created_at < ?", start, end).
			Find(&purchases).Error; err != nil {
			return fmt.Errorf("satış verisi okunamadı: %w", err)
		}

		type bucketAgg struct {
			completed int
			cancelled int
			revenue   decimal.Decimal
		}
		buckets := make(map[time.Time]*bucketAgg)
		// boş günler de grafikte görünsün
		for b := start; b.Before(end); b = next(b, period) {
			buckets[b] = &bucketAgg{revenue: decimal.Zero}
		}

		total := decimal.Zero
		for _, p := range purchases {
			agg, ok := buckets[bucketOf(p.CreatedAt.In(start.Location()), period)]
			if !ok {
				continue
			}
			switch p.Status {
			case models.PurchaseStatusCompleted:
				agg.completed++
				agg.revenue = agg.revenue.Add(p.TotalAmount)
				total = total.Add(p.TotalAmount)
			case models.PurchaseStatusCancelled:
				agg.cancelled++
			}
		}

		keys := make([]time.Time, 0, len(buckets))
		for k := range buckets {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

		points := make([]SalesChartPoint, 0, len(keys))
		for _, k := range keys {
			agg := buckets[k]
			points = append(points, SalesChartPoint{
				Label:     k.Format("2006-01-02"),
				Completed: agg.completed,
				Cancelled: agg.cancelled,
				Revenue:   agg.revenue.StringFixed(pricing.Scale),
			})
		}

		return c.JSON(SalesChartResponse{
			Period:       period,
			From:         start.Format("2006-01-02"),
			To:           end.AddDate(0, 0, -1).Format("2006-01-02"),
			Points:       points,
			TotalRevenue: total.StringFixed(pricing.Scale),
		})
	}
}

func validPeriod(period string) bool {
	switch period {
	case "daily", "weekly", "monthly":
		return true
	}
	return false
}

func parseCount(s, period string) (int, error) {
	if s == "" {
		switch period {
		case "weekly":
			return 8, nil
		case "monthly":
			return 12, nil
		default:
			return 7, nil
		}
	}
	var n int
	if _, err := fmt.Sscan(s, &n); err != nil || n <= 0 || n > 366 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "count must be between 1 and 366")
	}
	return n, nil
}

// window: [start, end) aralığı; end bugünü de kapsar
func window(now time.Time, period string, count int) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case "weekly":
		current := bucketOf(today, "weekly")
		return current.AddDate(0, 0, -7*(count-1)), current.AddDate(0, 0, 7)
	case "monthly":
		current := bucketOf(today, "monthly")
		return current.AddDate(0, -(count - 1), 0), current.AddDate(0, 1, 0)
	default:
		return today.AddDate(0, 0, -(count - 1)), today.AddDate(0, 0, 1)
	}
}

// bucketOf: haftalar pazartesi başlar
func bucketOf(t time.Time, period string) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch period {
	case "weekly":
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

func next(t time.Time, period string) time.Time {
	switch period {
	case "weekly":
		return t.AddDate(0, 0, 7)
	case "monthly":
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}
