package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/example/salad-order-service/internal/config"
	"github.com/example/salad-order-service/internal/domain"
	"github.com/example/salad-order-service/internal/menu"
	log "github.com/sirupsen/logrus"
)

const paymentDescriptionPrefix = "סלט בריבאלי - "

type CreateOrderRequest struct {
	Size       string         `json:"size"`
	Items      *domain.Items  `json:"items"`
	Totals     *domain.Totals `json:"totals"`
	PickupSlot string         `json:"pickup_slot"`
	CustomerWA string         `json:"customer_wa,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Source     domain.Source  `json:"source,omitempty"`
}

type CreateOrderResult struct {
	Success    bool          `json:"success"`
	OrderID    string        `json:"orderId"`
	PaymentID  string        `json:"paymentId"`
	PaymentURL string        `json:"paymentUrl"`
	Status     domain.Status `json:"status"`
	Message    string        `json:"message"`
}

// PaymentInitError carries the provider's reason for refusing a payment.
type PaymentInitError struct {
	Details string
}

func (e *PaymentInitError) Error() string { return domain.ErrPaymentInit.Error() + ": " + e.Details }
func (e *PaymentInitError) Unwrap() error { return domain.ErrPaymentInit }

// CreateOrder — оформить заказ: резерв слота, сохранение, инициализация платежа.
type CreateOrder struct {
	Repo    domain.OrderRepository
	Slots   domain.SlotRepository
	Payment domain.PaymentAdapter
	Cache   domain.OrderCache
	Catalog *menu.Catalog

	AppURL      string
	PricingMode string
}

func (uc CreateOrder) Execute(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error) {
	if req.Size == "" || req.Items == nil || req.Totals == nil || req.PickupSlot == "" {
		return CreateOrderResult{}, fmt.Errorf("%w: missing required fields: size, items, totals, pickup_slot", domain.ErrValidation)
	}

	orderID := domain.NewOrderID()
	entry := log.WithFields(log.Fields{"order_id": orderID, "slot": req.PickupSlot})

	totals, err := uc.finalTotals(req, entry)
	if err != nil {
		return CreateOrderResult{}, err
	}

	reserved, err := uc.reserveSlot(ctx, req.PickupSlot, entry)
	if err != nil {
		return CreateOrderResult{}, err
	}

	order := domain.Order{
		OrderID:       orderID,
		CustomerWA:    optional(req.CustomerWA),
		Size:          req.Size,
		Items:         *req.Items,
		Totals:        totals,
		PickupSlot:    req.PickupSlot,
		SlotReserved:  reserved,
		PaymentStatus: domain.PaymentPending,
		Status:        domain.StatusPendingPayment,
		Notes:         optional(req.Notes),
		Source:        source(req.Source, entry),
	}

	persisted := true
	saved, err := uc.Repo.Create(ctx, order)
	if err != nil {
		entry.WithError(err).Error("database error creating order, continuing with local record")
		persisted = false
		now := time.Now().UTC()
		saved = order
		saved.ID = "mock_" + orderID
		saved.CreatedAt, saved.UpdatedAt = now, now
	}
	order = saved

	resp, err := uc.Payment.CreatePayment(ctx, domain.PaymentRequest{
		AmountAgorot:  menu.ToAgorot(totals.Price),
		OrderID:       orderID,
		Description:   paymentDescriptionPrefix + req.Size,
		CustomerPhone: req.CustomerWA,
		ReturnURL:     uc.appURL() + "/order/" + orderID + "/success",
		WebhookURL:    uc.appURL() + "/api/payments/webhook",
	})
	if err != nil || !resp.Success {
		details := resp.Error
		if err != nil {
			details = err.Error()
		}
		entry.WithField("details", details).Error("payment initialization failed")
		uc.cancel(ctx, &order, persisted, reserved, entry)
		return CreateOrderResult{}, &PaymentInitError{Details: details}
	}

	entry = entry.WithField("payment_id", resp.PaymentID)
	if persisted {
		if err := uc.Repo.SetPayment(ctx, orderID, resp.PaymentID); err != nil {
			entry.WithError(err).Error("failed to store payment id")
		}
	}
	order.PaymentID = &resp.PaymentID
	uc.cacheOrder(order)
	entry.Info("order created")

	return CreateOrderResult{
		Success:    true,
		OrderID:    orderID,
		PaymentID:  resp.PaymentID,
		PaymentURL: resp.PaymentURL,
		Status:     domain.StatusPendingPayment,
		Message:    "Order created successfully, redirecting to payment",
	}, nil
}

// finalTotals copies the client totals, or replaces them with the server quote
// when pricing is recomputed. Any disagreement is logged.
func (uc CreateOrder) finalTotals(req CreateOrderRequest, entry *log.Entry) (domain.Totals, error) {
	client := *req.Totals
	if uc.Catalog == nil {
		return client, nil
	}
	q, err := uc.Catalog.Quote(SelectionOf(req.Size, *req.Items))
	if err != nil {
		if uc.PricingMode == config.PricingRecompute {
			return domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		entry.WithError(err).Warn("cannot quote order")
		return client, nil
	}
	server := domain.Totals{Price: q.Price, Kcal: q.Macros.Kcal, Protein: q.Macros.Protein, Carbs: q.Macros.Carbs, Fat: q.Macros.Fat}
	if math.Abs(server.Price-client.Price) >= 0.01 {
		entry.WithFields(log.Fields{"client_price": client.Price, "server_price": server.Price}).Warn("client price differs from menu")
	}
	if uc.PricingMode == config.PricingRecompute {
		return server, nil
	}
	return client, nil
}

func (uc CreateOrder) reserveSlot(ctx context.Context, slotID string, entry *log.Entry) (bool, error) {
	if uc.Slots == nil {
		return false, nil
	}
	err := uc.Slots.Reserve(ctx, slotID)
	switch {
	case err == nil:
		entry.Debug("slot reserved")
		return true, nil
	case errors.Is(err, domain.ErrSlotFull):
		entry.Warn("slot is full")
		return false, fmt.Errorf("slot %s: %w", slotID, err)
	case errors.Is(err, domain.ErrNotFound):
		entry.Info("slot is not tracked, skipping reservation")
	default:
		entry.WithError(err).Error("failed to reserve slot")
	}
	return false, nil
}

func (uc CreateOrder) cancel(ctx context.Context, o *domain.Order, persisted, reserved bool, entry *log.Entry) {
	o.Status = domain.StatusCancelled
	if persisted {
		if err := uc.Repo.UpdateStatus(ctx, o.OrderID, domain.StatusPendingPayment, domain.StatusCancelled); err != nil {
			entry.WithError(err).Error("failed to update order status")
		}
	}
	if reserved {
		if err := uc.Slots.Release(ctx, o.PickupSlot); err != nil {
			entry.WithError(err).Error("failed to release slot")
		}
	}
	uc.cacheOrder(*o)
}

func (uc CreateOrder) cacheOrder(o domain.Order) {
	if uc.Cache != nil {
		uc.Cache.Set(o.OrderID, o)
	}
}

func (uc CreateOrder) appURL() string {
	if uc.AppURL == "" {
		return "http://localhost:3000"
	}
	return strings.TrimRight(uc.AppURL, "/")
}

// SelectionOf converts stored order items into a menu selection.
func SelectionOf(size string, it domain.Items) menu.Selection {
	return menu.Selection{
		Size:          size,
		Veggies:       it.Veggies,
		Sauces:        it.Sauces,
		PrimaryExtra:  []string(it.PrimaryExtra),
		PaidAdditions: it.PaidAdditions,
		Side:          it.Side,
		Mixing:        it.Mixing,
	}
}

func source(s domain.Source, entry *log.Entry) domain.Source {
	if s == "" {
		return domain.SourceWeb
	}
	if !s.Valid() {
		entry.WithField("source", s).Warn("unknown order source, using web")
		return domain.SourceWeb
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
