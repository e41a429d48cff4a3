package domain

import (
	"context"
	"time"
)

// OrderRepository — порт для операций персистентности заказов.
type OrderRepository interface {
	Create(ctx context.Context, o Order) (Order, error)
	Find(ctx context.Context, orderID string) (Order, error)
	// UpdateStatus переводит заказ из from в to; ErrStaleStatus, если статус уже не from.
	UpdateStatus(ctx context.Context, orderID string, from, to Status) error
	SetPayment(ctx context.Context, orderID, paymentID string) error
	// ApplyPaymentStatus записывает статус платежа и переводит заказ из from в to;
	// false, если статус платежа уже такой, ErrStaleStatus, если статус заказа уже не from.
	ApplyPaymentStatus(ctx context.Context, orderID string, ps PaymentStatus, from, to Status) (bool, error)
	LoadAll(ctx context.Context, fn func(o Order) error) error
}

// SlotRepository — порт хранения слотов самовывоза.
type SlotRepository interface {
	// List возвращает активные слоты в интервале [from, to), отсортированные по времени.
	List(ctx context.Context, from, to time.Time) ([]Slot, error)
	// Seed добавляет отсутствующие слоты, существующие не трогает.
	Seed(ctx context.Context, slots []Slot) error
	// Reserve уменьшает available; ErrSlotFull при нулевом остатке, ErrNotFound для неизвестного слота.
	Reserve(ctx context.Context, slotID string) error
	Release(ctx context.Context, slotID string) error
}

// StatusLog — история смен статуса заказа.
type StatusLog interface {
	StatusHistory(ctx context.Context, orderID string) ([]StatusChange, error)
}

// OrderCache — порт быстрого доступа к заказам (кэш).
type OrderCache interface {
	Get(id string) (Order, bool)
	Set(id string, o Order)
}

// PaymentAdapter — порт платёжного провайдера.
type PaymentAdapter interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResponse, error)
	VerifyWebhook(ctx context.Context, payload WebhookPayload, signature string) (bool, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (PaymentStatus, error)
}

// Refunder is implemented by adapters that support refunds.
type Refunder interface {
	RefundPayment(ctx context.Context, paymentID string, amountAgorot int64) (bool, error)
}

// EventPublisher — порт публикации событий заказа.
type EventPublisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// MessageSubscriber — порт подписчика на входящие сообщения.
type MessageSubscriber interface {
	// Subscribe регистрирует обработчик; ack/повторные доставки реализует адаптер.
	Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error
}

// Общие доменные ошибки
var (
	ErrNotFound            = notFoundError("not found")
	ErrValidation          = validationError("invalid data")
	ErrUnsupportedProvider = validationError("unsupported payment provider")
	ErrSlotFull            = conflictError("pickup slot is fully booked")
	ErrInvalidTransition   = conflictError("invalid status transition")
	ErrStaleStatus         = conflictError("order status changed concurrently")
	ErrInvalidSignature    = signatureError("invalid signature")
	ErrNotImplemented      = notImplementedError("not implemented")
	ErrPaymentInit         = paymentError("payment initialization failed")
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

type validationError string

func (e validationError) Error() string { return string(e) }

type conflictError string

func (e conflictError) Error() string { return string(e) }

type signatureError string

func (e signatureError) Error() string { return string(e) }

type notImplementedError string

func (e notImplementedError) Error() string { return string(e) }

type paymentError string

func (e paymentError) Error() string { return string(e) }
