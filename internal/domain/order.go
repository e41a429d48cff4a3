package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Order — доменная сущность заказа салата.
type Order struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"order_id"`
	CustomerWA *string `json:"customer_wa"`
	Size       string  `json:"size"`
	Items      Items   `json:"items"`
	Totals     Totals  `json:"totals"`
	PickupSlot string  `json:"pickup_slot"`
	// SlotReserved is set only when a place in PickupSlot was taken for this order.
	SlotReserved  bool          `json:"slot_reserved"`
	PaymentID     *string       `json:"payment_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Status        Status        `json:"status"`
	Notes         *string       `json:"notes"`
	Source        Source        `json:"source"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Items — выбранные позиции меню по категориям.
type Items struct {
	Veggies       []string   `json:"veggies"`
	Sauces        []string   `json:"sauces"`
	PrimaryExtra  StringList `json:"primary_extra"`
	PaidAdditions []string   `json:"paid_additions"`
	Side          string     `json:"side,omitempty"`
	Mixing        string     `json:"mixing,omitempty"`
}

// StringList accepts a single string, null or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
		} else {
			*l = StringList{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

type Totals struct {
	Price   float64 `json:"price"`
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusPickedUp       Status = "picked_up"
	StatusCancelled      Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady},
	StatusReady:          {StatusPickedUp},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusPreparing, StatusReady, StatusPickedUp, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// OrderStatus maps a payment outcome onto the order lifecycle.
// Pending has no effect and reports false.
func (p PaymentStatus) OrderStatus() (Status, bool) {
	switch p {
	case PaymentCompleted:
		return StatusPaid, true
	case PaymentFailed, PaymentCancelled:
		return StatusCancelled, true
	}
	return "", false
}

type Source string

const (
	SourceWeb      Source = "web"
	SourceWhatsApp Source = "whatsapp"
	SourcePOS      Source = "pos"
)

func (s Source) Valid() bool {
	return s == SourceWeb || s == SourceWhatsApp || s == SourcePOS
}

// StatusUpdate — ручное изменение статуса, приходящее из шины сообщений.
type StatusUpdate struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

// StatusChange is one entry of an order's status log.
type StatusChange struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

// OrderEvent is published when an order changes state.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	PaymentID string    `json:"payment_id,omitempty"`
	Slot      string    `json:"pickup_slot,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventOrderPaid          = "order.paid"
	EventOrderStatusChanged = "order.status_changed"
)
