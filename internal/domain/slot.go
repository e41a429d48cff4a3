package domain

import "time"

// Slot — интервал самовывоза с ограниченной вместимостью.
type Slot struct {
	ID        string    `json:"id"`
	SlotTime  time.Time `json:"slot_time"`
	Capacity  int       `json:"capacity"`
	Available int       `json:"available"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SlotIDLayout formats the time part of generated slot ids.
const SlotIDLayout = "2006-01-02-15-04"

func SlotID(t time.Time) string {
	return "slot-" + t.Format(SlotIDLayout)
}
