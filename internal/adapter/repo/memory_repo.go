package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	"github.com/google/uuid"
)

// MemoryRepo хранит заказы и слоты в памяти процесса; используется без DATABASE_URL.
type MemoryRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	slots  map[string]domain.Slot
	seq    []string
	log    map[string][]domain.StatusChange
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		orders: make(map[string]domain.Order),
		slots:  make(map[string]domain.Slot),
		log:    make(map[string][]domain.StatusChange),
	}
}

func (r *MemoryRepo) Create(_ context.Context, o domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.orders[o.OrderID]; dup {
		return domain.Order{}, domain.ErrValidation
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	r.orders[o.OrderID] = o
	r.seq = append(r.seq, o.OrderID)
	r.logStatus(o.OrderID, o.Status, now)
	return o, nil
}

func (r *MemoryRepo) Find(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (r *MemoryRepo) UpdateStatus(_ context.Context, orderID string, from, to domain.Status) error {
	var stale bool
	err := r.update(orderID, func(o *domain.Order) bool {
		if o.Status != from {
			stale = true
			return false
		}
		o.Status = to
		return true
	})
	if err == nil && stale {
		return domain.ErrStaleStatus
	}
	return err
}

func (r *MemoryRepo) SetPayment(_ context.Context, orderID, paymentID string) error {
	return r.update(orderID, func(o *domain.Order) bool {
		o.PaymentID = &paymentID
		return true
	})
}

func (r *MemoryRepo) ApplyPaymentStatus(_ context.Context, orderID string, ps domain.PaymentStatus, from, to domain.Status) (bool, error) {
	changed, stale := false, false
	err := r.update(orderID, func(o *domain.Order) bool {
		if o.PaymentStatus == ps {
			return false
		}
		if o.Status != from {
			stale = true
			return false
		}
		o.PaymentStatus, o.Status = ps, to
		changed = true
		return true
	})
	if err == nil && stale {
		return false, domain.ErrStaleStatus
	}
	return changed, err
}

func (r *MemoryRepo) StatusHistory(_ context.Context, orderID string) ([]domain.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[orderID]; !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.StatusChange(nil), r.log[orderID]...), nil
}

// logStatus must be called with mu held.
func (r *MemoryRepo) logStatus(orderID string, status domain.Status, at time.Time) {
	if n := len(r.log[orderID]); n > 0 && r.log[orderID][n-1].Status == status {
		return
	}
	r.log[orderID] = append(r.log[orderID], domain.StatusChange{Status: status, ChangedAt: at})
}

func (r *MemoryRepo) LoadAll(_ context.Context, fn func(o domain.Order) error) error {
	r.mu.Lock()
	orders := make([]domain.Order, 0, len(r.seq))
	for _, id := range r.seq {
		orders = append(orders, r.orders[id])
	}
	r.mu.Unlock()

	for _, o := range orders {
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryRepo) update(orderID string, fn func(o *domain.Order) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if fn(&o) {
		o.UpdatedAt = time.Now().UTC()
		r.orders[orderID] = o
		r.logStatus(orderID, o.Status, o.UpdatedAt)
	}
	return nil
}

func (r *MemoryRepo) List(_ context.Context, from, to time.Time) ([]domain.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Slot
	for _, s := range r.slots {
		if s.IsActive && !s.SlotTime.Before(from) && s.SlotTime.Before(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotTime.Before(out[j].SlotTime) })
	return out, nil
}

func (r *MemoryRepo) Seed(_ context.Context, slots []domain.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range slots {
		if _, ok := r.slots[s.ID]; ok {
			continue
		}
		s.CreatedAt, s.UpdatedAt = now, now
		r.slots[s.ID] = s
	}
	return nil
}

func (r *MemoryRepo) Reserve(_ context.Context, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok {
		return domain.ErrNotFound
	}
	if !s.IsActive || s.Available <= 0 {
		return domain.ErrSlotFull
	}
	s.Available--
	s.UpdatedAt = time.Now().UTC()
	r.slots[slotID] = s
	return nil
}

func (r *MemoryRepo) Release(_ context.Context, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Available < s.Capacity {
		s.Available++
		s.UpdatedAt = time.Now().UTC()
		r.slots[slotID] = s
	}
	return nil
}

var (
	_ domain.OrderRepository = (*MemoryRepo)(nil)
	_ domain.SlotRepository  = (*MemoryRepo)(nil)
	_ domain.StatusLog       = (*MemoryRepo)(nil)
)
