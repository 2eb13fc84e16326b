package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"store-backend/internal/audit"
	"store-backend/internal/database"
	"store-backend/internal/events"
	"store-backend/internal/inventory"
	"store-backend/internal/models"
	"store-backend/internal/pricing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	tracerName            = "store-backend/purchase"
	defaultPublishTimeout = 2 * time.Second
)

// Item: alım isteğindeki tek satır
type Item struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// Service: alım oluşturma ve iptalini tek bir veritabanı transaction'ı
// olarak yürütür. Stok sadece ledger üzerinden değişir.
type Service struct {
	db         *gorm.DB
	ledger     *inventory.Ledger
	publisher  events.Publisher
	log        *zap.Logger
	tracer     trace.Tracer
	maxRetries int
	// publish bu süreden uzun sürerse bırakılır
	publishTimeout time.Duration
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMaxRetries: deadlock/serialization hatasında transaction kaç kez tekrarlansın
func WithMaxRetries(n int) Option {
	return func(s *Service) { s.maxRetries = n }
}

func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func NewService(db *gorm.DB, ledger *inventory.Ledger, opts ...Option) *Service {
	s := &Service{
		db:         db,
		ledger:     ledger,
		publisher:  events.NopPublisher{},
		log:        zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
		maxRetries: 3,

		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePurchase: tüm kalemler için stok ayırır, fiyatları dondurur ve alımı
// completed olarak kaydeder. Herhangi bir kalem başarısız olursa hiçbir
// stok değişikliği kalıcı olmaz.
func (s *Service) CreatePurchase(ctx context.Context, customerID uint, items []Item) (*models.Purchase, error) {
	if err := validateItems(customerID, items); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "purchase.create", trace.WithAttributes(
		attribute.Int64("purchase.customer_id", int64(customerID)),
		attribute.Int("purchase.item_count", len(items)),
	))
	defer span.End()

	var created *models.Purchase
	err := s.inTx(ctx, "create", func(tx *gorm.DB) error {
		if err := ensureCustomer(tx, customerID); err != nil {
			return err
		}

		purchaseItems := make([]models.PurchaseItem, 0, len(items))
		for _, item := range items {
			_, product, err := s.ledger.Reserve(tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			purchaseItems = append(purchaseItems, models.PurchaseItem{
				ProductID:       product.ID,
				Quantity:        item.Quantity,
				PriceAtPurchase: pricing.Snapshot(product),
			})
		}

		total := pricing.Total(purchaseItems)
		if !pricing.Fits(total) {
			return invalidInput(fmt.Sprintf("Purchase total %s exceeds the maximum of %s",
				total.StringFixed(pricing.Scale), pricing.MaxAmount.StringFixed(pricing.Scale)))
		}

		p := models.Purchase{
			CustomerID:  customerID,
			TotalAmount: total,
			Status:      InitialStatus(),
			Items:       purchaseItems,
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("alım kaydedilemedi: %w", err)
		}

		if err := audit.WriteLog(tx, audit.LogOptions{
			Actor:       audit.ActorFrom(ctx),
			EntityType:  "purchase",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Purchase created: %d items, total %s", len(p.Items), p.TotalAmount.StringFixed(pricing.Scale)),
			After:       p,
		}); err != nil {
			return err
		}

		loaded, err := loadPurchase(tx, p.ID)
		if err != nil {
			return err
		}
		created = loaded
		return nil
	})
	if err != nil {
		s.fail(span, "alım oluşturulamadı", err, zap.Uint("customer_id", customerID))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("purchase.id", int64(created.ID)),
		attribute.String("purchase.total", created.TotalAmount.StringFixed(pricing.Scale)),
	)
	s.log.Info("alım oluşturuldu",
		zap.Uint("purchase_id", created.ID),
		zap.Uint("customer_id", customerID),
		zap.String("total", created.TotalAmount.StringFixed(pricing.Scale)),
	)
	s.publish(ctx, events.TypePurchaseCreated, created, nil)

	return created, nil
}

// CancelPurchase: kalemlerin stoğunu geri ekler, alımı cancelled yapar ve
// iptal kaydını yazar. Hepsi aynı transaction'da.
func (s *Service) CancelPurchase(ctx context.Context, purchaseID uint, reason *string) (*models.Purchase, error) {
	if purchaseID == 0 {
		return nil, invalidInput("purchase id is required")
	}
	reason = normalizeReason(reason)

	ctx, span := s.tracer.Start(ctx, "purchase.cancel", trace.WithAttributes(
		attribute.Int64("purchase.id", int64(purchaseID)),
	))
	defer span.End()

	var cancelled *models.Purchase
	err := s.inTx(ctx, "cancel", func(tx *gorm.DB) error {
		var p models.Purchase
		if err := tx.Preload("Items").First(&p, "id = ?", purchaseID).Error; err != nil {
			if database.IsNotFound(err) {
				return &NotFoundError{Entity: "Purchase", ID: purchaseID}
			}
			return fmt.Errorf("alım okunamadı: %w", err)
		}

		if err := Transition(p.Status, models.PurchaseStatusCancelled); err != nil {
			return err
		}

		for _, item := range p.Items {
			if err := s.ledger.Release(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		// Koşullu güncelleme: eşzamanlı iki iptalden sadece biri satırı değiştirir
		res := tx.Model(&models.Purchase{}).
			Where("id = ? AND status = ?", p.ID, p.Status).
			Update("status", models.PurchaseStatusCancelled)
		if res.Error != nil {
			return fmt.Errorf("alım durumu güncellenemedi: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyCancelled
		}

		record := models.PurchaseCancellation{
			PurchaseID: p.ID,
			CustomerID: p.CustomerID,
			Reason:     reason,
		}
		if err := tx.Create(&record).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyCancelled
			}
			return fmt.Errorf("iptal kaydı yazılamadı: %w", err)
		}

		desc := "Purchase cancelled"
		if reason != nil {
			desc = fmt.Sprintf("Purchase cancelled: %s", *reason)
		}
		if err := audit.WriteLog(tx, audit.LogOptions{
			Actor:       audit.ActorFrom(ctx),
			EntityType:  "purchase",
			EntityID:    p.ID,
			Action:      models.AuditActionCancel,
			Description: truncate(desc, 255),
			Before:      map[string]any{"status": p.Status},
			After:       map[string]any{"status": models.PurchaseStatusCancelled, "reason": reason},
		}); err != nil {
			return err
		}

		loaded, err := loadPurchase(tx, p.ID)
		if err != nil {
			return err
		}
		cancelled = loaded
		return nil
	})
	if err != nil {
		s.fail(span, "alım iptal edilemedi", err, zap.Uint("purchase_id", purchaseID))
		return nil, err
	}

	s.log.Info("alım iptal edildi", zap.Uint("purchase_id", cancelled.ID))
	s.publish(ctx, events.TypePurchaseCancelled, cancelled, reason)

	return cancelled, nil
}

// GetPurchase: müşteri, kalemler, ürünler ve iptal kayıtlarıyla birlikte
func (s *Service) GetPurchase(ctx context.Context, id uint) (*models.Purchase, error) {
	p, err := loadPurchase(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPurchases: en yeni önce
func (s *Service) ListPurchases(ctx context.Context) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", orderByID).
		Preload("Items.Product").
		Order("created_at DESC, id DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return purchases, nil
}

// ListCancellations: alımın iptal geçmişi
func (s *Service) ListCancellations(ctx context.Context, purchaseID uint) ([]models.PurchaseCancellation, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Purchase{}).Where("id = ?", purchaseID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if count == 0 {
		return nil, &NotFoundError{Entity: "Purchase", ID: purchaseID}
	}

	var records []models.PurchaseCancellation
	if err := db.Where("purchase_id = ?", purchaseID).Order("cancelled_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return records, nil
}

// inTx: fn'i tek transaction'da çalıştırır; deadlock/serialization hatasında
// baştan tekrar dener. İstemci kaynaklı olmayan hatalar ErrPersistence ile sarılır.
func (s *Service) inTx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !database.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		s.log.Warn("transaction tekrar deneniyor",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	if IsClientError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func (s *Service) fail(span trace.Span, msg string, err error, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	fields = append(fields, zap.Error(err))
	if IsClientError(err) {
		s.log.Info(msg, fields...)
		return
	}
	s.log.Error(msg, fields...)
}

// publish: commit sonrası, hata sadece loglanır
func (s *Service) publish(ctx context.Context, eventType string, p *models.Purchase, reason *string) {
	ev := events.NewPurchaseEvent(eventType)
	ev.PurchaseID = p.ID
	ev.CustomerID = p.CustomerID
	ev.TotalAmount = p.TotalAmount
	ev.Status = string(p.Status)
	ev.Reason = reason
	for _, item := range p.Items {
		ev.Items = append(ev.Items, events.PurchaseLine{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}

	// istek iptal edilse de olay gitsin, ama yanıtı broker'a bağlamayalım
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("alım olayı yayınlanamadı",
			zap.String("event_type", eventType),
			zap.Uint("purchase_id", p.ID),
			zap.Error(err),
		)
	}
}

func validateItems(customerID uint, items []Item) error {
	if customerID == 0 {
		return invalidInput("customerId is required")
	}
	if len(items) == 0 {
		return invalidInput("items must be a non-empty array")
	}
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			return invalidInput("Each item must have productId and quantity (positive number)")
		}
	}
	return nil
}

func ensureCustomer(tx *gorm.DB, customerID uint) error {
	var count int64
	if err := tx.Model(&models.Customer{}).Where("id = ?", customerID).Count(&count).Error; err != nil {
		return fmt.Errorf("müşteri okunamadı: %w", err)
	}
	if count == 0 {
		return &NotFoundError{Entity: "Customer", ID: customerID}
	}
	return nil
}

func loadPurchase(db *gorm.DB, id uint) (*models.Purchase, error) {
	var p models.Purchase
	err := db.
		Preload("Customer").
		Preload("Items", orderByID).
		Preload("Items.Product").
		Preload("Cancellations").
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "Purchase", ID: id}
		}
		return nil, fmt.Errorf("alım yüklenemedi: %w", err)
	}
	return &p, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	r := strings.TrimSpace(*reason)
	if r == "" {
		return nil
	}
	return &r
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
