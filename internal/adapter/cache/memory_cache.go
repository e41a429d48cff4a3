package cache

import (
	"sort"
	"sync"

	"github.com/example/salad-order-service/internal/domain"
)

// MemoryOrderCache — заказы по order_id, плюс выборка очереди по статусу для кухни.
type MemoryOrderCache struct {
	mu    sync.RWMutex
	store map[string]domain.Order
}

func NewMemoryOrderCache() *MemoryOrderCache {
	return &MemoryOrderCache{store: make(map[string]domain.Order)}
}

func (c *MemoryOrderCache) Get(id string) (domain.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.store[id]
	return o, ok
}

func (c *MemoryOrderCache) Set(id string, o domain.Order) {
	c.mu.Lock()
	c.store[id] = o
	c.mu.Unlock()
}

func (c *MemoryOrderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// ByStatus returns cached orders in the given status ordered by pickup slot, then creation time.
func (c *MemoryOrderCache) ByStatus(status domain.Status) []domain.Order {
	c.mu.RLock()
	out := make([]domain.Order, 0)
	for _, o := range c.store {
		if o.Status == status {
			out = append(out, o)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].PickupSlot != out[j].PickupSlot {
			return out[i].PickupSlot < out[j].PickupSlot
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

var _ domain.OrderCache = (*MemoryOrderCache)(nil)
