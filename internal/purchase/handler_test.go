package purchase

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"store-backend/internal/events"
	"store-backend/internal/inventory"
	"store-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiFixture struct {
	app *fiber.App
	db  *gorm.DB
}

func newAPI(t *testing.T) *apiFixture {
	db := testutil.NewDB(t)
	svc := NewService(db, inventory.NewLedger(), WithPublisher(&events.Recorder{}))

	app := fiber.New()
	app.Get("/purchases", ListPurchasesHandler(svc))
	app.Get("/purchases/:id", GetPurchaseHandler(svc))
	app.Post("/purchases", CreatePurchaseHandler(svc))
	app.Post("/purchases/:id/cancel", CancelPurchaseHandler(svc))
	app.Get("/purchases/:id/cancellations", ListCancellationsHandler(svc))
	return &apiFixture{app: app, db: db}
}

func (a *apiFixture) do(t *testing.T, method, path string, body any) (int, []byte) {
	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func errorMessage(body []byte) string {
	// fiber'ın varsayılan ErrorHandler'ı mesajı düz metin döner
	return string(body)
}

func TestCreatePurchaseEndpoint(t *testing.T) {
	api := newAPI(t)
	customer := testutil.SeedCustomer(t, api.db, "Ann", "ann@example.com")
	p := testutil.SeedProduct(t, api.db, "SKU-1", "9.90", 5)

	status, body := api.do(t, "POST", "/purchases", CreatePurchaseRequest{
		CustomerID: customer.ID,
		Items:      []Item{{ProductID: p.ID, Quantity: 2}},
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))

	var resp PurchaseResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "19.80", resp.TotalAmount)
	assert.Equal(t, "completed", string(resp.Status))
	assert.Equal(t, "Ann", resp.Customer.Name)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "9.90", resp.Items[0].PriceAtPurchase)
	assert.Equal(t, "19.80", resp.Items[0].LineTotal)
	assert.Equal(t, "SKU-1", resp.Items[0].Product.SKU)
	assert.Empty(t, resp.CancellationRecord)
	assert.Equal(t, 3, testutil.StockOf(t, api.db, p.ID))
}

func TestCreatePurchaseEndpointErrors(t *testing.T) {
	api := newAPI(t)
	customer := testutil.SeedCustomer(t, api.db, "Ann", "ann@example.com")
	p := testutil.SeedProduct(t, api.db, "SKU-1", "1.00", 3)

	cases := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"missing customer", map[string]any{"items": []Item{{ProductID: p.ID, Quantity: 1}}}, 400, "customerId is required"},
		{"empty items", CreatePurchaseRequest{CustomerID: customer.ID}, 400, "items must be a non-empty array"},
		{"zero quantity", CreatePurchaseRequest{CustomerID: customer.ID, Items: []Item{{ProductID: p.ID}}}, 400, "Each item must have productId and quantity (positive number)"},
		{"insufficient", CreatePurchaseRequest{CustomerID: customer.ID, Items: []Item{{ProductID: p.ID, Quantity: 5}}}, 400,
			"Insufficient stock for product ID " + itoa(p.ID) + ". Available: 3, Requested: 5"},
		{"unknown product", CreatePurchaseRequest{CustomerID: customer.ID, Items: []Item{{ProductID: 999, Quantity: 1}}}, 404, "Product with ID 999 not found"},
		{"unknown customer", CreatePurchaseRequest{CustomerID: 555, Items: []Item{{ProductID: p.ID, Quantity: 1}}}, 404, "Customer with ID 555 not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := api.do(t, "POST", "/purchases", tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.message, errorMessage(body))
		})
	}
	assert.Equal(t, 3, testutil.StockOf(t, api.db, p.ID))
}

func TestCreatePurchaseEndpointMalformedBody(t *testing.T) {
	api := newAPI(t)

	req := httptest.NewRequest("POST", "/purchases", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := api.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCancelPurchaseEndpoint(t *testing.T) {
	api := newAPI(t)
	customer := testutil.SeedCustomer(t, api.db, "Ann", "ann@example.com")
	p := testutil.SeedProduct(t, api.db, "SKU-1", "2.50", 10)

	status, body := api.do(t, "POST", "/purchases", CreatePurchaseRequest{
		CustomerID: customer.ID,
		Items:      []Item{{ProductID: p.ID, Quantity: 4}},
	})
	require.Equal(t, fiber.StatusCreated, status)
	var created PurchaseResponse
	require.NoError(t, json.Unmarshal(body, &created))
	path := "/purchases/" + itoa(created.ID)

	status, body = api.do(t, "POST", path+"/cancel", CancelPurchaseRequest{Reason: strPtr("wrong size")})
	require.Equal(t, fiber.StatusOK, status, string(body))
	var cancelled PurchaseResponse
	require.NoError(t, json.Unmarshal(body, &cancelled))
	assert.Equal(t, "cancelled", string(cancelled.Status))
	require.Len(t, cancelled.CancellationRecord, 1)
	assert.Equal(t, "wrong size", *cancelled.CancellationRecord[0].Reason)
	assert.Equal(t, 10, testutil.StockOf(t, api.db, p.ID))

	status, body = api.do(t, "POST", path+"/cancel", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "This purchase is already cancelled", errorMessage(body))
	assert.Equal(t, 10, testutil.StockOf(t, api.db, p.ID))

	status, body = api.do(t, "GET", path+"/cancellations", nil)
	require.Equal(t, fiber.StatusOK, status)
	var records []CancellationResponse
	require.NoError(t, json.Unmarshal(body, &records))
	assert.Len(t, records, 1)
}

func TestGetAndListEndpoints(t *testing.T) {
	api := newAPI(t)
	customer := testutil.SeedCustomer(t, api.db, "Ann", "ann@example.com")
	p := testutil.SeedProduct(t, api.db, "SKU-1", "1.00", 10)

	status, _ := api.do(t, "POST", "/purchases", CreatePurchaseRequest{
		CustomerID: customer.ID,
		Items:      []Item{{ProductID: p.ID, Quantity: 1}},
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, body := api.do(t, "GET", "/purchases", nil)
	require.Equal(t, fiber.StatusOK, status)
	var list []PurchaseResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	status, _ = api.do(t, "GET", "/purchases/"+itoa(list[0].ID), nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = api.do(t, "GET", "/purchases/404", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Purchase with ID 404 not found", errorMessage(body))

	status, _ = api.do(t, "GET", "/purchases/abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = api.do(t, "POST", "/purchases/404/cancel", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = api.do(t, "GET", "/purchases/404/cancellations", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func strPtr(s string) *string { return &s }
