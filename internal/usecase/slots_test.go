package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/salad-order-service/internal/adapter/repo"
	"github.com/example/salad-order-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downSlots struct {
	*repo.MemoryRepo
}

func (downSlots) List(context.Context, time.Time, time.Time) ([]domain.Slot, error) {
	return nil, errors.New("timeout")
}

func jerusalem(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)
	return loc
}

func generator(loc *time.Location) SlotGenerator {
	return SlotGenerator{Location: loc, OpenHour: 11, CloseHour: 22, Interval: 10 * time.Minute, Days: 3, Capacity: 3}
}

func TestGenerateSkipsPastSlots(t *testing.T) {
	loc := jerusalem(t)
	now := time.Date(2030, 3, 10, 21, 35, 0, 0, loc)

	slots := generator(loc).Generate(now, nil)
	require.NotEmpty(t, slots)
	assert.Equal(t, "slot-2030-03-10-21-40", slots[0].ID)
	// 2 slots left today plus 66 on each of the next two days.
	assert.Len(t, slots, 2+66+66)
	for _, s := range slots {
		assert.True(t, s.SlotTime.After(now))
		assert.Equal(t, 3, s.Available)
		assert.True(t, s.IsActive)
	}
	assert.Equal(t, "slot-2030-03-12-21-50", slots[len(slots)-1].ID)
}

func TestGenerateSingleDay(t *testing.T) {
	loc := jerusalem(t)
	now := time.Date(2030, 3, 10, 8, 0, 0, 0, loc)
	day := time.Date(2030, 3, 11, 0, 0, 0, 0, loc)

	slots := generator(loc).Generate(now, &day)
	require.Len(t, slots, 66)
	assert.Equal(t, "slot-2030-03-11-11-00", slots[0].ID)
}

func TestListSlotsSeedsDefaults(t *testing.T) {
	loc := jerusalem(t)
	now := time.Date(2030, 3, 10, 21, 35, 0, 0, loc)
	store := repo.NewMemoryRepo()
	uc := ListSlots{Repo: store, Generator: generator(loc), Now: func() time.Time { return now }}

	res, err := uc.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 134, res.Total)
	assert.Len(t, res.Slots["2030-03-10"], 2)
	assert.Len(t, res.Slots["2030-03-11"], 66)

	require.NoError(t, store.Reserve(context.Background(), "slot-2030-03-10-21-40"))
	res, err = uc.Execute(context.Background(), "2030-03-10")
	require.NoError(t, err)
	require.Len(t, res.Slots["2030-03-10"], 2)
	assert.Equal(t, 2, res.Slots["2030-03-10"][0].Available)
}

func TestListSlotsHidesPastAndInactive(t *testing.T) {
	loc := jerusalem(t)
	now := time.Date(2030, 3, 10, 12, 0, 0, 0, loc)
	store := repo.NewMemoryRepo()
	require.NoError(t, store.Seed(context.Background(), []domain.Slot{
		{ID: "past", SlotTime: now.Add(-time.Hour), Capacity: 3, Available: 3, IsActive: true},
		{ID: "now", SlotTime: now, Capacity: 3, Available: 3, IsActive: true},
		{ID: "full", SlotTime: now.Add(time.Hour), Capacity: 3, Available: 0, IsActive: true},
		{ID: "off", SlotTime: now.Add(2 * time.Hour), Capacity: 3, Available: 3, IsActive: false},
	}))
	uc := ListSlots{Repo: store, Generator: generator(loc), Now: func() time.Time { return now }}

	res, err := uc.Execute(context.Background(), "2030-03-10")
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "full", res.Slots["2030-03-10"][0].ID)
}

func TestListSlotsDateWithoutSlots(t *testing.T) {
	loc := jerusalem(t)
	now := time.Date(2030, 3, 10, 12, 0, 0, 0, loc)
	uc := ListSlots{Repo: repo.NewMemoryRepo(), Generator: generator(loc), Now: func() time.Time { return now }}

	res, err := uc.Execute(context.Background(), "2030-03-11")
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestListSlotsFallsBackToGenerator(t *testing.T) {
	loc := jerusalem(t)
	now := time.Date(2030, 3, 10, 12, 0, 0, 0, loc)
	uc := ListSlots{Repo: downSlots{repo.NewMemoryRepo()}, Generator: generator(loc), Now: func() time.Time { return now }}

	res, err := uc.Execute(context.Background(), "2030-03-11")
	require.NoError(t, err)
	assert.Equal(t, 66, res.Total)

	uc.Repo = nil
	res, err = uc.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 59+66+66, res.Total)
}

func TestListSlotsRejectsBadDate(t *testing.T) {
	_, err := ListSlots{Generator: generator(time.UTC)}.Execute(context.Background(), "10/03/2030")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
