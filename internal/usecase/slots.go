package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// SlotGenerator строит слоты самовывоза по расписанию кухни.
type SlotGenerator struct {
	Location  *time.Location
	OpenHour  int
	CloseHour int
	Interval  time.Duration
	Days      int
	Capacity  int
}

// Generate returns slots for the next Days days starting today, or for the
// single day given. Slots at or before now are skipped.
func (g SlotGenerator) Generate(now time.Time, day *time.Time) []domain.Slot {
	loc := g.location()
	now = now.In(loc)
	first, days := startOfDay(now), g.Days
	if day != nil {
		first, days = startOfDay(day.In(loc)), 1
	}

	created := now.UTC()
	slots := make([]domain.Slot, 0)
	for d := 0; d < days; d++ {
		y, m, dd := first.AddDate(0, 0, d).Date()
		open := time.Date(y, m, dd, g.OpenHour, 0, 0, 0, loc)
		closing := time.Date(y, m, dd, g.CloseHour, 0, 0, 0, loc)
		for t := open; t.Before(closing); t = t.Add(g.Interval) {
			if !t.After(now) {
				continue
			}
			slots = append(slots, domain.Slot{
				ID:        domain.SlotID(t),
				SlotTime:  t,
				Capacity:  g.Capacity,
				Available: g.Capacity,
				IsActive:  true,
				CreatedAt: created,
				UpdatedAt: created,
			})
		}
	}
	return slots
}

func (g SlotGenerator) location() *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type SlotsResult struct {
	Success bool                     `json:"success"`
	Slots   map[string][]domain.Slot `json:"slots"`
	Total   int                      `json:"total"`
}

// ListSlots — список доступных слотов, сгруппированный по датам.
type ListSlots struct {
	Repo      domain.SlotRepository
	Generator SlotGenerator
	Now       func() time.Time
}

func (uc ListSlots) Execute(ctx context.Context, date string) (SlotsResult, error) {
	now := uc.now()
	loc := uc.Generator.location()

	var day *time.Time
	from, to := now, startOfDay(now.In(loc)).AddDate(0, 0, uc.Generator.Days)
	if date != "" {
		d, err := time.ParseInLocation(dateLayout, date, loc)
		if err != nil {
			return SlotsResult{}, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation)
		}
		day, from, to = &d, d, d.AddDate(0, 0, 1)
	}

	slots, err := uc.fromRepo(ctx, from, to)
	switch {
	case uc.Repo == nil:
		slots = uc.Generator.Generate(now, day)
	case err != nil:
		log.WithError(err).Warn("slot store unavailable, generating slots")
		slots = uc.Generator.Generate(now, day)
	case len(slots) == 0 && day == nil:
		slots = uc.Generator.Generate(now, nil)
		if err := uc.Repo.Seed(ctx, slots); err != nil {
			log.WithError(err).Error("failed to seed default slots")
		}
	}

	grouped := make(map[string][]domain.Slot)
	total := 0
	for _, s := range slots {
		if !s.IsActive || !s.SlotTime.After(now) {
			continue
		}
		key := s.SlotTime.In(loc).Format(dateLayout)
		grouped[key] = append(grouped[key], s)
		total++
	}
	return SlotsResult{Success: true, Slots: grouped, Total: total}, nil
}

func (uc ListSlots) fromRepo(ctx context.Context, from, to time.Time) ([]domain.Slot, error) {
	if uc.Repo == nil {
		return nil, nil
	}
	return uc.Repo.List(ctx, from, to)
}

func (uc ListSlots) now() time.Time {
	if uc.Now == nil {
		return time.Now()
	}
	return uc.Now()
}
