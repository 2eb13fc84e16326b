package database

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, IsUniqueViolation(wrap("23505")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, IsUniqueViolation(wrap("23503")))

	assert.True(t, IsForeignKeyViolation(wrap("23503")))
	assert.True(t, IsForeignKeyViolation(gorm.ErrForeignKeyViolated))

	assert.True(t, IsRetryable(wrap("40P01")))
	assert.True(t, IsRetryable(wrap("40001")))
	assert.False(t, IsRetryable(wrap("23505")))
	assert.False(t, IsRetryable(fmt.Errorf("connection reset")))

	assert.True(t, IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)))
}
