package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/salad-order-service/internal/builder"
	"github.com/example/salad-order-service/internal/domain"
	"github.com/example/salad-order-service/internal/menu"
	log "github.com/sirupsen/logrus"
)

// GetOrderByID — получить заказ: сначала кэш, затем репозиторий.
type GetOrderByID struct {
	Cache domain.OrderCache
	Repo  domain.OrderRepository
}

func (uc GetOrderByID) Execute(ctx context.Context, id string) (domain.Order, error) {
	if o, ok := uc.Cache.Get(id); ok {
		return o, nil
	}
	if uc.Repo == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	o, err := uc.Repo.Find(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	uc.Cache.Set(o.OrderID, o)
	return o, nil
}

type StatusHistoryResult struct {
	OrderID string                `json:"order_id"`
	History []domain.StatusChange `json:"history"`
}

// GetStatusHistory — журнал смен статуса заказа.
type GetStatusHistory struct {
	Log domain.StatusLog
}

func (uc GetStatusHistory) Execute(ctx context.Context, id string) (StatusHistoryResult, error) {
	if uc.Log == nil {
		return StatusHistoryResult{}, domain.ErrNotFound
	}
	h, err := uc.Log.StatusHistory(ctx, id)
	if err != nil {
		return StatusHistoryResult{}, err
	}
	return StatusHistoryResult{OrderID: id, History: h}, nil
}

// LoadCache — загрузить все заказы из репозитория в кэш при старте.
type LoadCache struct {
	Repo  domain.OrderRepository
	Cache domain.OrderCache
}

func (uc LoadCache) Execute(ctx context.Context) error {
	return uc.Repo.LoadAll(ctx, func(o domain.Order) error {
		if o.OrderID == "" {
			// пропускаем битые записи, не прерывая полную загрузку
			return nil
		}
		uc.Cache.Set(o.OrderID, o)
		return nil
	})
}

// ApplyStatusUpdate — ручная смена статуса заказа (кухня, шина сообщений).
type ApplyStatusUpdate struct {
	Repo    domain.OrderRepository
	Cache   domain.OrderCache
	Slots   domain.SlotRepository
	Events  domain.EventPublisher
	Payment domain.PaymentAdapter
}

// Execute decodes a StatusUpdate message and applies it.
func (uc ApplyStatusUpdate) Execute(ctx context.Context, raw []byte) error {
	var u domain.StatusUpdate
	if err := json.Unmarshal(raw, &u); err != nil {
		return fmt.Errorf("%w: decode status update: %v", domain.ErrValidation, err)
	}
	_, err := uc.Update(ctx, u)
	return err
}

// Update moves the order to the requested status. Repeating the current
// status is accepted and changes nothing.
func (uc ApplyStatusUpdate) Update(ctx context.Context, u domain.StatusUpdate) (domain.Order, error) {
	if u.OrderID == "" || !u.Status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: order_id and a known status are required", domain.ErrValidation)
	}
	entry := log.WithFields(log.Fields{"order_id": u.OrderID, "status": u.Status})

	for attempt := 0; attempt < staleRetries; attempt++ {
		o, err := uc.Repo.Find(ctx, u.OrderID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("load order %s: %w", u.OrderID, err)
		}
		if o.Status == u.Status {
			return o, nil
		}
		if !o.Status.CanTransition(u.Status) {
			return domain.Order{}, fmt.Errorf("%s -> %s: %w", o.Status, u.Status, domain.ErrInvalidTransition)
		}
		err = uc.Repo.UpdateStatus(ctx, u.OrderID, o.Status, u.Status)
		if errors.Is(err, domain.ErrStaleStatus) {
			entry.WithField("order_status", o.Status).Debug("order changed while updating, re-reading")
			continue
		}
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Order{}, err
		}
		if err != nil {
			return domain.Order{}, fmt.Errorf("update order %s: %w", u.OrderID, err)
		}
		return uc.updated(ctx, o, u.Status, entry), nil
	}
	return domain.Order{}, fmt.Errorf("update order %s: %w", u.OrderID, domain.ErrStaleStatus)
}

func (uc ApplyStatusUpdate) updated(ctx context.Context, o domain.Order, next domain.Status, entry *log.Entry) domain.Order {
	o.Status, o.UpdatedAt = next, time.Now().UTC()
	if uc.Cache != nil {
		uc.Cache.Set(o.OrderID, o)
	}
	if o.Status == domain.StatusCancelled {
		releaseSlot(ctx, uc.Slots, o, entry)
		if o.PaymentStatus == domain.PaymentCompleted && o.PaymentID != nil {
			refundPayment(ctx, uc.Payment, *o.PaymentID, o, entry.WithField("payment_id", *o.PaymentID))
		}
	}
	ev := domain.OrderEvent{Type: domain.EventOrderStatusChanged, OrderID: o.OrderID, Status: o.Status, Slot: o.PickupSlot, At: o.UpdatedAt}
	if o.PaymentID != nil {
		ev.PaymentID = *o.PaymentID
	}
	publish(ctx, uc.Events, ev, entry)
	entry.Info("order status updated")
	return o
}

// QuoteSelection prices a bowl and derives its macros and badges. The
// selection is replayed through a builder.Bowl, so unknown items and choices
// over a category limit are rejected the same way the storefront rejects them.
type QuoteSelection struct {
	Catalog *menu.Catalog
}

func (uc QuoteSelection) Execute(sel menu.Selection) (menu.Quote, error) {
	bowl, err := uc.compose(sel)
	if errors.Is(err, menu.ErrUnknownSize) || errors.Is(err, menu.ErrUnknownItem) || errors.Is(err, builder.ErrLimitReached) {
		return menu.Quote{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err != nil {
		return menu.Quote{}, err
	}
	return uc.Catalog.Quote(bowl.Selection())
}

func (uc QuoteSelection) compose(sel menu.Selection) (*builder.Bowl, error) {
	bowl := builder.New(uc.Catalog)
	if err := bowl.SetSize(sel.Size); err != nil {
		return nil, err
	}
	adds := []struct {
		ids []string
		add func(string) error
	}{
		{sel.Veggies, bowl.AddIngredient},
		{sel.Sauces, bowl.AddSauce},
		{sel.PrimaryExtra, bowl.AddTopping},
		{sel.PaidAdditions, bowl.AddPaidAddition},
	}
	for _, a := range adds {
		for _, id := range a.ids {
			if err := a.add(id); err != nil {
				return nil, err
			}
		}
	}
	if err := bowl.SetSide(sel.Side); err != nil {
		return nil, err
	}
	if err := bowl.SetMixing(sel.Mixing); err != nil {
		return nil, err
	}
	return bowl, nil
}
