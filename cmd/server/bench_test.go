package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/salad-order-service/internal/adapter/cache"
	"github.com/example/salad-order-service/internal/adapter/httpapi"
	"github.com/example/salad-order-service/internal/domain"
	"github.com/example/salad-order-service/internal/usecase"
)

func BenchmarkHandleGet(b *testing.B) {
	orderCache := cache.NewMemoryOrderCache()
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("order-%d", i)
		orderCache.Set(id, domain.Order{OrderID: id, Status: domain.StatusPaid})
	}
	router := httpapi.NewServer(httpapi.Handlers{Get: usecase.GetOrderByID{Cache: orderCache}}).Router

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/orders/order-%d", i%1000), nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			i++
		}
	})
}

func BenchmarkCacheGet(b *testing.B) {
	c := cache.NewMemoryOrderCache()
	for i := 0; i < 10000; i++ {
		id := fmt.Sprintf("order-%d", i)
		c.Set(id, domain.Order{OrderID: id})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(fmt.Sprintf("order-%d", i%10000))
	}
}

func BenchmarkKitchenQueue(b *testing.B) {
	c := cache.NewMemoryOrderCache()
	statuses := []domain.Status{domain.StatusPaid, domain.StatusPreparing, domain.StatusReady}
	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("order-%d", i)
		c.Set(id, domain.Order{OrderID: id, Status: statuses[i%len(statuses)], PickupSlot: fmt.Sprintf("slot-%03d", i%66)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.ByStatus(domain.StatusPaid)
	}
}
