package purchase

import (
	"errors"
	"fmt"

	"store-backend/internal/inventory"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyCancelled  = errors.New("This purchase is already cancelled")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrPersistence: transaction/commit hatası, sunucu kaynaklı
	ErrPersistence = errors.New("persistence failure")
)

// NotFoundError: müşteri veya alım bulunamadı
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidInputError: mesajı olduğu gibi istemciye döner
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(msg string) error {
	return &InvalidInputError{Message: msg}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, inventory.ErrProductNotFound)
}

// IsClientError: hata istemciden mi kaynaklı (geçersiz girdi, çakışma, bulunamadı)
func IsClientError(err error) bool {
	var insufficient *inventory.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return true
	case IsNotFound(err),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrInvalidTransition):
		return true
	}
	return false
}
