// Package events: commit sonrası yayınlanan alım olayları.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypePurchaseCreated   = "PurchaseCreated"
	TypePurchaseCancelled = "PurchaseCancelled"
)

type PurchaseLine struct {
	ProductID       uint            `json:"productId"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

type PurchaseEvent struct {
	EventID     string          `json:"eventId"`
	Type        string          `json:"type"`
	PurchaseID  uint            `json:"purchaseId"`
	CustomerID  uint            `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
	Items       []PurchaseLine  `json:"items"`
	Reason      *string         `json:"reason,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

func NewPurchaseEvent(eventType string) PurchaseEvent {
	return PurchaseEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher: olay yayını. Hata commit edilmiş işlemi geri almaz.
type Publisher interface {
	Publish(ctx context.Context, event PurchaseEvent) error
	Close() error
}

// NopPublisher: broker tanımlı değilse kullanılır
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, PurchaseEvent) error { return nil }
func (NopPublisher) Close() error                                 { return nil }

// Recorder: yayınlanan olayları bellekte tutar (testler için)
type Recorder struct {
	mu     sync.Mutex
	Events []PurchaseEvent
}

func (r *Recorder) Publish(_ context.Context, event PurchaseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

func (r *Recorder) Snapshot() []PurchaseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PurchaseEvent(nil), r.Events...)
}

func (r *Recorder) Close() error { return nil }
