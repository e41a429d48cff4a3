package usecase

import (
	"context"
	"testing"

	"github.com/example/salad-order-service/internal/adapter/cache"
	"github.com/example/salad-order-service/internal/adapter/payment"
	"github.com/example/salad-order-service/internal/adapter/repo"
	"github.com/example/salad-order-service/internal/builder"
	"github.com/example/salad-order-service/internal/domain"
	"github.com/example/salad-order-service/internal/menu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrderByIDFallsBackToRepo(t *testing.T) {
	store := repo.NewMemoryRepo()
	res := createdOrder(t, store, payment.NewMock(0))
	c := cache.NewMemoryOrderCache()
	uc := GetOrderByID{Cache: c, Repo: store}

	o, err := uc.Execute(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, o.OrderID)
	assert.Equal(t, 1, c.Len(), "found order is cached")

	_, err = uc.Execute(context.Background(), "order_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadCache(t *testing.T) {
	store := repo.NewMemoryRepo()
	createdOrder(t, store, payment.NewMock(0))
	createdOrder(t, store, payment.NewMock(0))

	c := cache.NewMemoryOrderCache()
	require.NoError(t, LoadCache{Repo: store, Cache: c}.Execute(context.Background()))
	assert.Equal(t, 2, c.Len())
}

func TestApplyStatusUpdate(t *testing.T) {
	store := seededStore(t, 3)
	res := createdOrder(t, store, payment.NewMock(0))
	events := &recordingEvents{}
	c := cache.NewMemoryOrderCache()
	uc := ApplyStatusUpdate{Repo: store, Cache: c, Slots: store, Events: events}
	ctx := context.Background()

	err := uc.Execute(ctx, []byte(`{"order_id":"`+res.OrderID+`","status":"ready"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	for _, st := range []domain.Status{domain.StatusPaid, domain.StatusPreparing, domain.StatusReady, domain.StatusPickedUp} {
		o, err := uc.Update(ctx, domain.StatusUpdate{OrderID: res.OrderID, Status: st})
		require.NoError(t, err, st)
		assert.Equal(t, st, o.Status)
	}
	require.Len(t, events.events, 4)
	assert.Equal(t, domain.EventOrderStatusChanged, events.events[0].Type)
	assert.Equal(t, res.PaymentID, events.events[0].PaymentID)

	_, err = uc.Update(ctx, domain.StatusUpdate{OrderID: res.OrderID, Status: domain.StatusPickedUp})
	require.NoError(t, err, "same status is accepted")
	assert.Len(t, events.events, 4)

	cached, ok := c.Get(res.OrderID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPickedUp, cached.Status)
}

func TestApplyStatusUpdateCancelReleasesSlot(t *testing.T) {
	store := seededStore(t, 3)
	res := createdOrder(t, store, payment.NewMock(0))
	require.Equal(t, 2, available(t, store))

	_, err := ApplyStatusUpdate{Repo: store, Slots: store}.Update(context.Background(), domain.StatusUpdate{OrderID: res.OrderID, Status: domain.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, 3, available(t, store))
}

func TestApplyStatusUpdateCancelRefundsPaidOrder(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, 3)
	pay := &fakePayment{resp: domain.PaymentResponse{Success: true, PaymentID: "pay_1"}, verified: true}
	res := createdOrder(t, store, pay)
	_, err := HandleWebhook{Payment: pay, Repo: store, Slots: store}.Execute(ctx,
		domain.WebhookPayload{PaymentID: "pay_1", OrderID: res.OrderID, Status: domain.PaymentCompleted}, "sig")
	require.NoError(t, err)

	o, err := ApplyStatusUpdate{Repo: store, Slots: store, Payment: pay}.Update(ctx, domain.StatusUpdate{OrderID: res.OrderID, Status: domain.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.Equal(t, []string{"pay_1"}, pay.refunds)
	assert.Equal(t, 3, available(t, store))

	unpaid := createdOrder(t, store, pay)
	_, err = ApplyStatusUpdate{Repo: store, Slots: store, Payment: pay}.Update(ctx, domain.StatusUpdate{OrderID: unpaid.OrderID, Status: domain.StatusCancelled})
	require.NoError(t, err)
	assert.Len(t, pay.refunds, 1, "nothing captured, nothing refunded")
}

func TestApplyStatusUpdateRereadsAfterConcurrentChange(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, 3)
	pay := &fakePayment{resp: domain.PaymentResponse{Success: true, PaymentID: "pay_1"}, verified: true}
	res := createdOrder(t, store, pay)
	_, err := HandleWebhook{Payment: pay, Repo: store}.Execute(ctx,
		domain.WebhookPayload{PaymentID: "pay_1", OrderID: res.OrderID, Status: domain.PaymentCompleted}, "sig")
	require.NoError(t, err)

	racing := &interferingRepo{MemoryRepo: store, afterRead: func(ctx context.Context, orderID string) {
		require.NoError(t, store.UpdateStatus(ctx, orderID, domain.StatusPaid, domain.StatusPreparing))
	}}
	_, err = ApplyStatusUpdate{Repo: racing, Slots: store, Payment: pay}.Update(ctx, domain.StatusUpdate{OrderID: res.OrderID, Status: domain.StatusCancelled})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	o, err := store.Find(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, o.Status)
	assert.Empty(t, pay.refunds)
	assert.Equal(t, 2, available(t, store))
}

func TestGetStatusHistory(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryRepo()
	res := createdOrder(t, store, payment.NewMock(0))
	_, err := ApplyStatusUpdate{Repo: store}.Update(ctx, domain.StatusUpdate{OrderID: res.OrderID, Status: domain.StatusPaid})
	require.NoError(t, err)

	h, err := GetStatusHistory{Log: store}.Execute(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, h.OrderID)
	require.Len(t, h.History, 2)
	assert.Equal(t, domain.StatusPendingPayment, h.History[0].Status)
	assert.Equal(t, domain.StatusPaid, h.History[1].Status)

	_, err = GetStatusHistory{Log: store}.Execute(ctx, "order_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = GetStatusHistory{}.Execute(ctx, res.OrderID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyStatusUpdateRejectsBadMessages(t *testing.T) {
	uc := ApplyStatusUpdate{Repo: repo.NewMemoryRepo()}
	ctx := context.Background()

	assert.ErrorIs(t, uc.Execute(ctx, []byte(`{`)), domain.ErrValidation)
	assert.ErrorIs(t, uc.Execute(ctx, []byte(`{"order_id":"x","status":"eaten"}`)), domain.ErrValidation)
	assert.ErrorIs(t, uc.Execute(ctx, []byte(`{"order_id":"x","status":"paid"}`)), domain.ErrNotFound)
}

func TestQuoteSelection(t *testing.T) {
	uc := QuoteSelection{Catalog: menu.MustLoad()}

	q, err := uc.Execute(menu.Selection{Size: "1000", Veggies: []string{"lettuce", "quinoa"}})
	require.NoError(t, err)
	assert.Equal(t, 64.0, q.Price)

	_, err = uc.Execute(menu.Selection{Size: "2000"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Execute(menu.Selection{Size: "1000", PrimaryExtra: []string{"egg", "tuna"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, builder.ErrLimitReached)

	_, err = uc.Execute(menu.Selection{Size: "1000", Veggies: []string{"plastic"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
