package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/salad-order-service/internal/adapter/cache"
	"github.com/example/salad-order-service/internal/adapter/httpapi"
	"github.com/example/salad-order-service/internal/adapter/payment"
	"github.com/example/salad-order-service/internal/config"
	"github.com/example/salad-order-service/internal/menu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("EVENTS_BROKER", "none")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestWiringServesOrders(t *testing.T) {
	cfg := memoryConfig(t)
	store, err := openStorage(context.Background(), cfg)
	require.NoError(t, err)
	defer store.close()
	bus, err := openBroker(cfg)
	require.NoError(t, err)
	assert.Nil(t, bus.events)
	assert.Nil(t, bus.subscriber)

	h, err := newHandlers(cfg, menu.MustLoad(), payment.NewMock(0), store, bus.events, cache.NewMemoryOrderCache())
	require.NoError(t, err)
	router := httpapi.NewServer(h).Router

	body := `{"size":"750","items":{"veggies":["tomato"],"sauces":[],"primary_extra":null,"paid_additions":[]},
		"totals":{"price":54,"kcal":200,"protein":5,"carbs":20,"fat":3},"pickup_slot":"slot-2030-01-01-12-00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders/create", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"pending_payment"`)
	var created struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/"+created.OrderID+"/history", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"pending_payment"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/slots", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCLICommands(t *testing.T) {
	app := newApp()
	assert.Equal(t, "serve", app.DefaultCommand)

	names := map[string]bool{}
	for _, c := range app.Commands {
		names[c.Name] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])

	t.Setenv("DATABASE_URL", "")
	err := app.Run([]string{"server", "migrate", "up"})
	assert.ErrorContains(t, err, "DATABASE_URL is required")
}
