package purchase

import (
	"fmt"

	"store-backend/internal/models"
)

// İzin verilen durum geçişleri. pending tanımlı ama oluşturma doğrudan
// completed yazdığı için pratikte kullanılmıyor.
var transitions = map[models.PurchaseStatus][]models.PurchaseStatus{
	models.PurchaseStatusPending:   {models.PurchaseStatusCompleted},
	models.PurchaseStatusCompleted: {models.PurchaseStatusCancelled},
	models.PurchaseStatusCancelled: nil,
}

// InitialStatus: yeni oluşturulan alımın durumu
func InitialStatus() models.PurchaseStatus {
	return models.PurchaseStatusCompleted
}

func IsTerminal(s models.PurchaseStatus) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// Transition: from -> to geçişini doğrular
func Transition(from, to models.PurchaseStatus) error {
	if from == models.PurchaseStatusCancelled {
		return ErrAlreadyCancelled
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
