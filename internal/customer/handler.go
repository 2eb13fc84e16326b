package customer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"store-backend/internal/audit"
	"store-backend/internal/database"
	"store-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CustomerResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Sadece gönderilen alanlar güncellenir
type UpdateCustomerRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	ZipCode *string `json:"zipCode"`
	Country *string `json:"country"`
}

func toResponse(c models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		ZipCode:   c.ZipCode,
		Country:   c.Country,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

// GET /api/customers
func ListCustomersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var customers []models.Customer
		if err := db.WithContext(c.UserContext()).Order("created_at DESC, id DESC").Find(&customers).Error; err != nil {
			return fmt.Errorf("müşteriler listelenemedi: %w", err)
		}

		res := make([]CustomerResponse, 0, len(customers))
		for _, cu := range customers {
			res = append(res, toResponse(cu))
		}
		return c.JSON(res)
	}
}

// GET /api/customers/:id
func GetCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cu, err := findCustomer(db.WithContext(c.UserContext()), c)
		if err != nil {
			return err
		}
		return c.JSON(toResponse(*cu))
	}
}

// POST /api/customers
func CreateCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		if body.Name == "" || body.Email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name and email are required")
		}

		cu := models.Customer{
			Name:    body.Name,
			Email:   body.Email,
			Phone:   strings.TrimSpace(body.Phone),
			Address: body.Address,
			City:    body.City,
			State:   body.State,
			ZipCode: body.ZipCode,
			Country: body.Country,
		}

		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&cu).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorFrom(c.UserContext()),
				EntityType:  "customer",
				EntityID:    cu.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Customer created: %s", cu.Email),
				After:       toResponse(cu),
			})
		})
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "Email already exists")
			}
			return fmt.Errorf("müşteri oluşturulamadı: %w", err)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(cu))
	}
}

// PUT /api/customers/:id
func UpdateCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		conn := db.WithContext(c.UserContext())
		cu, err := findCustomer(conn, c)
		if err != nil {
			return err
		}
		before := toResponse(*cu)

		var body UpdateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name cannot be empty")
			}
			cu.Name = name
		}
		if body.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*body.Email))
			if email == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Email cannot be empty")
			}
			cu.Email = email
		}
		if body.Phone != nil {
			cu.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Address != nil {
			cu.Address = *body.Address
		}
		if body.City != nil {
			cu.City = *body.City
		}
		if body.State != nil {
			cu.State = *body.State
		}
		if body.ZipCode != nil {
			cu.ZipCode = *body.ZipCode
		}
		if body.Country != nil {
			cu.Country = *body.Country
		}

		err = conn.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(cu).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorFrom(c.UserContext()),
				EntityType:  "customer",
				EntityID:    cu.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Customer updated: %s", cu.Email),
				Before:      before,
				After:       toResponse(*cu),
			})
		})
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusBadRequest, "Email already exists")
			}
			return fmt.Errorf("müşteri güncellenemedi: %w", err)
		}

		return c.JSON(toResponse(*cu))
	}
}

// DELETE /api/customers/:id
// Alımı veya iptal kaydı olan müşteri silinemez.
func DeleteCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		conn := db.WithContext(c.UserContext())
		cu, err := findCustomer(conn, c)
		if err != nil {
			return err
		}

		err = conn.Transaction(func(tx *gorm.DB) error {
			referenced, err := hasHistory(tx, cu.ID)
			if err != nil {
				return err
			}
			if referenced {
				return errHasPurchases
			}

			if err := tx.Delete(&models.Customer{}, "id = ?", cu.ID).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorFrom(c.UserContext()),
				EntityType:  "customer",
				EntityID:    cu.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Customer deleted: %s", cu.Email),
				Before:      toResponse(*cu),
			})
		})
		if err != nil {
			// kontrol ile silme arasında eklenen alımı FK yakalar
			if errors.Is(err, errHasPurchases) || database.IsForeignKeyViolation(err) {
				return errHasPurchases
			}
			return fmt.Errorf("müşteri silinemedi: %w", err)
		}

		return c.JSON(fiber.Map{"message": "Customer deleted"})
	}
}

var errHasPurchases = fiber.NewError(fiber.StatusBadRequest, "Cannot delete customer with purchases")

func hasHistory(tx *gorm.DB, customerID uint) (bool, error) {
	var purchases int64
	if err := tx.Model(&models.Purchase{}).Where("customer_id = ?", customerID).Count(&purchases).Error; err != nil {
		return false, err
	}
	if purchases > 0 {
		return true, nil
	}

	var cancellations int64
	if err := tx.Model(&models.PurchaseCancellation{}).Where("customer_id = ?", customerID).Count(&cancellations).Error; err != nil {
		return false, err
	}
	return cancellations > 0, nil
}

func findCustomer(db *gorm.DB, c *fiber.Ctx) (*models.Customer, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid customer id")
	}

	var cu models.Customer
	if err := db.First(&cu, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Customer not found")
		}
		return nil, fmt.Errorf("müşteri okunamadı: %w", err)
	}
	return &cu, nil
}
