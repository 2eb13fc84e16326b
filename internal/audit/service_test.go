package audit

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"store-backend/internal/models"
	"store-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorContext(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{UserID: 7, UserName: "ayse"})
	assert.Equal(t, Actor{UserID: 7, UserName: "ayse"}, ActorFrom(ctx))
	assert.Equal(t, Actor{}, ActorFrom(context.Background()))
}

func TestWriteLogAndList(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, WriteLog(db, LogOptions{
		Actor:       Actor{UserID: 1, UserName: "admin"},
		EntityType:  "purchase",
		EntityID:    10,
		Action:      models.AuditActionCreate,
		Description: "purchase created",
		After:       map[string]int{"items": 2},
	}))
	require.NoError(t, WriteLog(db, LogOptions{
		EntityType: "product",
		EntityID:   3,
		Action:     models.AuditActionDelete,
	}))

	var stored models.AuditLog
	require.NoError(t, db.Where("entity_type = ?", "purchase").First(&stored).Error)
	assert.Equal(t, "null", stored.BeforeData)
	assert.JSONEq(t, `{"items":2}`, stored.AfterData)

	app := fiber.New()
	app.Get("/audit-logs", ListAuditLogsHandler(db))

	resp, err := app.Test(httptest.NewRequest("GET", "/audit-logs?entity_type=purchase", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var logs []AuditLogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	require.Len(t, logs, 1)
	assert.Equal(t, uint(10), logs[0].EntityID)
	assert.Equal(t, "admin", logs[0].UserName)
}
