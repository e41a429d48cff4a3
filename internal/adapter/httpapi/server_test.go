package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/salad-order-service/internal/adapter/cache"
	"github.com/example/salad-order-service/internal/adapter/payment"
	"github.com/example/salad-order-service/internal/adapter/repo"
	"github.com/example/salad-order-service/internal/domain"
	"github.com/example/salad-order-service/internal/menu"
	"github.com/example/salad-order-service/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createBody = `{
  "size": "1000",
  "items": {"veggies": ["lettuce", "quinoa"], "sauces": ["olive_oil"], "primary_extra": "tuna", "paid_additions": []},
  "totals": {"price": 64, "kcal": 450, "protein": 15, "carbs": 60, "fat": 12},
  "pickup_slot": "slot-2030-01-01-12-00",
  "customer_wa": "+972501234567"
}`

type testEnv struct {
	router http.Handler
	store  *repo.MemoryRepo
	cache  *cache.MemoryOrderCache
	mock   *payment.Mock
}

func newEnv(t *testing.T) testEnv {
	t.Helper()
	store := repo.NewMemoryRepo()
	c := cache.NewMemoryOrderCache()
	mock := payment.NewMock(0)
	cat := menu.MustLoad()
	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)

	h := Handlers{
		Create:        usecase.CreateOrder{Repo: store, Slots: store, Payment: mock, Cache: c, Catalog: cat},
		Get:           usecase.GetOrderByID{Cache: c, Repo: store},
		History:       usecase.GetStatusHistory{Log: store},
		UpdateStatus:  usecase.ApplyStatusUpdate{Repo: store, Cache: c, Slots: store, Payment: mock},
		Webhook:       usecase.HandleWebhook{Payment: mock, Repo: store, Slots: store, Cache: c},
		PaymentStatus: usecase.GetPaymentStatus{Payment: mock},
		Slots: usecase.ListSlots{Repo: store, Now: func() time.Time { return now }, Generator: usecase.SlotGenerator{
			Location: time.UTC, OpenHour: 11, CloseHour: 22, Interval: 10 * time.Minute, Days: 3, Capacity: 3,
		}},
		Quote:   usecase.QuoteSelection{Catalog: cat},
		Catalog: cat,
		Queue:   c,
	}
	return testEnv{router: NewServer(h).Router, store: store, cache: c, mock: mock}
}

func (e testEnv) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCreateOrder(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/api/orders/create", createBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "pending_payment", body["status"])
	assert.NotEmpty(t, body["paymentUrl"])
	orderID := body["orderId"].(string)

	w = env.do(t, http.MethodGet, "/api/orders/"+orderID, "")
	require.Equal(t, http.StatusOK, w.Code)
	o := decode(t, w)
	assert.Equal(t, orderID, o["order_id"])
	assert.Equal(t, []any{"tuna"}, o["items"].(map[string]any)["primary_extra"])
	assert.Equal(t, false, o["slot_reserved"], "slot is not tracked until listed")
}

func TestCreateOrderBadRequests(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/api/orders/create", `{"size":"1000"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "missing required fields")

	w = env.do(t, http.MethodPost, "/api/orders/create", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderSlotFull(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.store.Seed(context.Background(), []domain.Slot{{
		ID: "slot-2030-01-01-12-00", SlotTime: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC), Capacity: 1, Available: 0, IsActive: true,
	}}))

	w := env.do(t, http.MethodPost, "/api/orders/create", createBody)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	w := newEnv(t).do(t, http.MethodGet, "/api/orders/order_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", decode(t, w)["error"])
}

func TestWebhook(t *testing.T) {
	env := newEnv(t)
	created := decode(t, env.do(t, http.MethodPost, "/api/orders/create", createBody))
	orderID, paymentID := created["orderId"].(string), created["paymentId"].(string)

	w := env.do(t, http.MethodPost, "/api/payments/webhook", `{"orderId":"`+orderID+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/payments/webhook", `{"paymentId":"mock_unknown","orderId":"`+orderID+`","status":"completed"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid signature", decode(t, w)["error"])

	payload := `{"paymentId":"` + paymentID + `","orderId":"` + orderID + `","status":"completed","amount":64}`
	w = env.do(t, http.MethodPost, "/api/payments/webhook", payload, "x-signature", "sig")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	o, err := env.store.Find(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, o.Status)

	w = env.do(t, http.MethodGet, "/api/payments/webhook?paymentId="+paymentID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["status"])

	w = env.do(t, http.MethodGet, "/api/payments/webhook", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/orders?status=paid", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])
}

func TestStatusUpdate(t *testing.T) {
	env := newEnv(t)
	orderID := decode(t, env.do(t, http.MethodPost, "/api/orders/create", createBody))["orderId"].(string)

	w := env.do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", `{"status":"ready"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", `{"status":"cancelled"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode(t, w)["status"])

	w = env.do(t, http.MethodGet, "/api/orders?status=eaten", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusHistory(t *testing.T) {
	env := newEnv(t)
	orderID := decode(t, env.do(t, http.MethodPost, "/api/orders/create", createBody))["orderId"].(string)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPatch, "/api/orders/"+orderID+"/status", `{"status":"cancelled"}`).Code)

	w := env.do(t, http.MethodGet, "/api/orders/"+orderID+"/history", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, orderID, body["order_id"])
	history := body["history"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "pending_payment", history[0].(map[string]any)["status"])
	assert.Equal(t, "cancelled", history[1].(map[string]any)["status"])

	w = env.do(t, http.MethodGet, "/api/orders/order_missing/history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSlots(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodGet, "/api/slots", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(198), body["total"])
	assert.Len(t, body["slots"].(map[string]any), 3)

	w = env.do(t, http.MethodGet, "/api/slots?date=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMenuAndQuote(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodGet, "/api/menu", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["sizes"], 3)

	w = env.do(t, http.MethodPost, "/api/menu/quote", `{"size":"1000","veggies":["lettuce","quinoa"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(64), decode(t, w)["price"])

	w = env.do(t, http.MethodPost, "/api/menu/quote", `{"size":"2000"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/menu/quote", `{"size":"1000","primary_extra":["egg","tuna"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "selection limit reached")

	w = env.do(t, http.MethodPost, "/api/menu/quote", `{"size":"1000","veggies":["plastic"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodDelete, "/api/slots", "").Code)
}
