package inventory

import (
	"encoding/json"
	"strconv"
	"testing"

	"store-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentStock(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedProduct(t, db, "A", "1.00", 9)
	testutil.SeedProduct(t, db, "B", "1.00", 2)
	testutil.SeedProduct(t, db, "C", "1.00", 0)

	app := fiber.New()
	app.Get("/stock", GetCurrentStockHandler(db))

	status, body := send(t, app, "GET", "/stock", "")
	require.Equal(t, fiber.StatusOK, status)
	var all []CurrentStock
	require.NoError(t, json.Unmarshal(body, &all))
	require.Len(t, all, 3)
	assert.Equal(t, "C", all[0].SKU)
	assert.Equal(t, "A", all[2].SKU)

	status, body = send(t, app, "GET", "/stock?below=3", "")
	require.Equal(t, fiber.StatusOK, status)
	var low []CurrentStock
	require.NoError(t, json.Unmarshal(body, &low))
	assert.Len(t, low, 2)

	status, _ = send(t, app, "GET", "/stock?below=-1", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestProductStockUsesLedger(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.SeedProduct(t, db, "A", "1.00", 5)
	ledger := NewLedger()

	_, _, err := ledger.Reserve(db, p.ID, 2)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/products/:id/stock", GetProductStockHandler(db, ledger))

	status, body := send(t, app, "GET", "/products/"+strconv.Itoa(int(p.ID))+"/stock", "")
	require.Equal(t, fiber.StatusOK, status)
	var out struct {
		ProductID int `json:"productId"`
		Quantity  int `json:"quantity"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 3, out.Quantity)

	status, body = send(t, app, "GET", "/products/404/stock", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Product with ID 404 not found", string(body))
}
