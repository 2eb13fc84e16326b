package purchase

import (
	"errors"
	"time"

	"store-backend/internal/inventory"
	"store-backend/internal/models"
	"store-backend/internal/pricing"

	"github.com/gofiber/fiber/v2"
)

type CreatePurchaseRequest struct {
	CustomerID uint   `json:"customerId"`
	Items      []Item `json:"items"`
}

type CancelPurchaseRequest struct {
	Reason *string `json:"reason"`
}

type CustomerSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ProductSummary struct {
	ID    uint   `json:"id"`
	SKU   string `json:"sku"`
	Name  string `json:"name"`
	Price string `json:"price"` // güncel katalog fiyatı, kalem fiyatından farklı olabilir
}

type PurchaseItemResponse struct {
	ID              uint           `json:"id"`
	ProductID       uint           `json:"productId"`
	Product         ProductSummary `json:"product"`
	Quantity        int            `json:"quantity"`
	PriceAtPurchase string         `json:"priceAtPurchase"`
	LineTotal       string         `json:"lineTotal"`
}

type CancellationResponse struct {
	ID          uint    `json:"id"`
	PurchaseID  uint    `json:"purchaseId"`
	CustomerID  uint    `json:"customerId"`
	Reason      *string `json:"reason"`
	CancelledAt string  `json:"cancelledAt"`
}

type PurchaseResponse struct {
	ID                 uint                   `json:"id"`
	CustomerID         uint                   `json:"customerId"`
	Customer           CustomerSummary        `json:"customer"`
	TotalAmount        string                 `json:"totalAmount"`
	Status             models.PurchaseStatus  `json:"status"`
	Items              []PurchaseItemResponse `json:"items"`
	CancellationRecord []CancellationResponse `json:"cancellationRecord"`
	CreatedAt          string                 `json:"createdAt"`
	UpdatedAt          string                 `json:"updatedAt"`
}

// GET /api/purchases
func ListPurchasesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		purchases, err := svc.ListPurchases(c.UserContext())
		if err != nil {
			return toHTTPError(err)
		}

		resp := make([]PurchaseResponse, 0, len(purchases))
		for i := range purchases {
			resp = append(resp, toPurchaseResponse(&purchases[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/purchases/:id
func GetPurchaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := purchaseIDParam(c)
		if err != nil {
			return err
		}

		p, err := svc.GetPurchase(c.UserContext(), id)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(toPurchaseResponse(p))
	}
}

// POST /api/purchases
func CreatePurchaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePurchaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.CustomerID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "customerId is required")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "items must be a non-empty array")
		}
		for _, item := range body.Items {
			if item.ProductID == 0 || item.Quantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Each item must have productId and quantity (positive number)")
			}
		}

		p, err := svc.CreatePurchase(c.UserContext(), body.CustomerID, body.Items)
		if err != nil {
			return toHTTPError(err)
		}

		return c.Status(fiber.StatusCreated).JSON(toPurchaseResponse(p))
	}
}

// POST /api/purchases/:id/cancel
func CancelPurchaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := purchaseIDParam(c)
		if err != nil {
			return err
		}

		// Gövde opsiyonel
		var body CancelPurchaseRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
			}
		}

		p, err := svc.CancelPurchase(c.UserContext(), id, body.Reason)
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(toPurchaseResponse(p))
	}
}

// GET /api/purchases/:id/cancellations
func ListCancellationsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := purchaseIDParam(c)
		if err != nil {
			return err
		}

		records, err := svc.ListCancellations(c.UserContext(), id)
		if err != nil {
			return toHTTPError(err)
		}

		resp := make([]CancellationResponse, 0, len(records))
		for _, r := range records {
			resp = append(resp, toCancellationResponse(r))
		}
		return c.JSON(resp)
	}
}

func purchaseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid purchase id")
	}
	return uint(id), nil
}

// toHTTPError: servis hatalarını HTTP durum kodlarına çevirir.
// Sunucu kaynaklı hatalar olduğu gibi döner, ErrorHandler 500 yapar.
func toHTTPError(err error) error {
	var insufficient *inventory.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return fiber.NewError(fiber.StatusBadRequest, insufficient.Error())
	case IsNotFound(err):
		return fiber.NewError(fiber.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, ErrAlreadyCancelled):
		return fiber.NewError(fiber.StatusBadRequest, ErrAlreadyCancelled.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, inventory.ErrInvalidQuantity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func notFoundMessage(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	var pnf *inventory.ProductNotFoundError
	if errors.As(err, &pnf) {
		return pnf.Error()
	}
	return "Not found"
}

func toPurchaseResponse(p *models.Purchase) PurchaseResponse {
	items := make([]PurchaseItemResponse, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, PurchaseItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Product: ProductSummary{
				ID:    item.Product.ID,
				SKU:   item.Product.SKU,
				Name:  item.Product.Name,
				Price: item.Product.Price.StringFixed(pricing.Scale),
			},
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase.StringFixed(pricing.Scale),
			LineTotal:       pricing.LineTotal(item.PriceAtPurchase, item.Quantity).StringFixed(pricing.Scale),
		})
	}

	cancellations := make([]CancellationResponse, 0, len(p.Cancellations))
	for _, r := range p.Cancellations {
		cancellations = append(cancellations, toCancellationResponse(r))
	}

	return PurchaseResponse{
		ID:         p.ID,
		CustomerID: p.CustomerID,
		Customer: CustomerSummary{
			ID:    p.Customer.ID,
			Name:  p.Customer.Name,
			Email: p.Customer.Email,
		},
		TotalAmount:        p.TotalAmount.StringFixed(pricing.Scale),
		Status:             p.Status,
		Items:              items,
		CancellationRecord: cancellations,
		CreatedAt:          p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          p.UpdatedAt.Format(time.RFC3339),
	}
}

func toCancellationResponse(r models.PurchaseCancellation) CancellationResponse {
	return CancellationResponse{
		ID:          r.ID,
		PurchaseID:  r.PurchaseID,
		CustomerID:  r.CustomerID,
		Reason:      r.Reason,
		CancelledAt: r.CancelledAt.Format(time.RFC3339),
	}
}
