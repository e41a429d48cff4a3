// Package builder keeps the state of a bowl being composed and its derived totals.
package builder

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/example/salad-order-service/internal/menu"
)

var ErrLimitReached = errors.New("selection limit reached")

const defaultMaxVeggies = 10

// Totals are recomputed after every mutation.
type Totals struct {
	Price  float64     `json:"price"`
	Macros menu.Macros `json:"macros"`
	Badges []string    `json:"badges"`
}

type Bowl struct {
	cat *menu.Catalog

	mu     sync.RWMutex
	sel    menu.Selection
	slot   string
	name   string
	last   string
	totals Totals
}

func New(cat *menu.Catalog) *Bowl {
	b := &Bowl{cat: cat}
	b.recalc()
	return b
}

func (b *Bowl) SetSize(size string) error {
	if _, ok := b.cat.Size(size); !ok {
		return fmt.Errorf("%w: %q", menu.ErrUnknownSize, size)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sel.Size = size
	b.recalc()
	return nil
}

func (b *Bowl) AddIngredient(id string) error {
	return b.add(menu.Veggies, &b.sel.Veggies, id, b.maxVeggies)
}

func (b *Bowl) RemoveIngredient(id string) { b.remove(&b.sel.Veggies, id) }

func (b *Bowl) AddTopping(id string) error {
	return b.add(menu.PrimaryExtra, &b.sel.PrimaryExtra, id, b.maxToppings)
}

func (b *Bowl) RemoveTopping(id string) { b.remove(&b.sel.PrimaryExtra, id) }

func (b *Bowl) AddSauce(id string) error {
	return b.add(menu.Sauces, &b.sel.Sauces, id, b.maxSauces)
}

func (b *Bowl) RemoveSauce(id string) { b.remove(&b.sel.Sauces, id) }

func (b *Bowl) AddPaidAddition(id string) error {
	return b.add(menu.PaidAdditions, &b.sel.PaidAdditions, id, b.maxPaid)
}

func (b *Bowl) RemovePaidAddition(id string) { b.remove(&b.sel.PaidAdditions, id) }

// SetSide selects bread, croutons or nothing; an empty id clears the choice.
func (b *Bowl) SetSide(id string) error {
	return b.set(menu.Side, &b.sel.Side, id)
}

func (b *Bowl) SetMixing(id string) error {
	return b.set(menu.Mixing, &b.sel.Mixing, id)
}

func (b *Bowl) SetSlot(slotID string) {
	b.mu.Lock()
	b.slot = slotID
	b.mu.Unlock()
}

func (b *Bowl) SetName(name string) {
	b.mu.Lock()
	b.name = name
	b.mu.Unlock()
}

func (b *Bowl) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sel = menu.Selection{}
	b.slot, b.name, b.last = "", "", ""
	b.recalc()
}

func (b *Bowl) CanAddIngredient() bool   { return b.canAdd(&b.sel.Veggies, b.maxVeggies) }
func (b *Bowl) CanAddTopping() bool      { return b.canAdd(&b.sel.PrimaryExtra, b.maxToppings) }
func (b *Bowl) CanAddSauce() bool        { return b.canAdd(&b.sel.Sauces, b.maxSauces) }
func (b *Bowl) CanAddPaidAddition() bool { return b.canAdd(&b.sel.PaidAdditions, b.maxPaid) }

// Selection returns a copy of the current choices.
func (b *Bowl) Selection() menu.Selection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.sel
	s.Veggies = slices.Clone(s.Veggies)
	s.Sauces = slices.Clone(s.Sauces)
	s.PrimaryExtra = slices.Clone(s.PrimaryExtra)
	s.PaidAdditions = slices.Clone(s.PaidAdditions)
	return s
}

func (b *Bowl) Totals() Totals {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t := b.totals
	t.Badges = slices.Clone(t.Badges)
	return t
}

func (b *Bowl) Slot() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.slot
}

func (b *Bowl) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// LastAdded is the id of the most recently added item, for showing its facts.
func (b *Bowl) LastAdded() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

func (b *Bowl) add(category string, list *[]string, id string, limit func() int) error {
	if _, ok := b.cat.Item(category, id); !ok {
		return fmt.Errorf("%w: %s/%s", menu.ErrUnknownItem, category, id)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if slices.Contains(*list, id) {
		return nil
	}
	if len(*list) >= limit() {
		return fmt.Errorf("%w: %s allows %d", ErrLimitReached, category, limit())
	}
	*list = append(*list, id)
	b.last = id
	b.recalc()
	return nil
}

func (b *Bowl) remove(list *[]string, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.Index(*list, id)
	if i < 0 {
		return
	}
	*list = slices.Delete(*list, i, i+1)
	b.recalc()
}

func (b *Bowl) set(category string, field *string, id string) error {
	if id != "" {
		if _, ok := b.cat.Item(category, id); !ok {
			return fmt.Errorf("%w: %s/%s", menu.ErrUnknownItem, category, id)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	*field = id
	b.recalc()
	return nil
}

func (b *Bowl) canAdd(list *[]string, limit func() int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(*list) < limit()
}

// limits are read with mu held

func (b *Bowl) maxVeggies() int {
	if _, hi, err := b.cat.VeggieLimit(b.sel.Size); err == nil {
		return hi
	}
	return defaultMaxVeggies
}

func (b *Bowl) maxToppings() int {
	return b.categoryMax(menu.PrimaryExtra, b.cat.Rules.PrimaryExtraMax)
}
func (b *Bowl) maxSauces() int { return b.categoryMax(menu.Sauces, b.cat.Rules.SaucesMax) }
func (b *Bowl) maxPaid() int   { return b.categoryMax(menu.PaidAdditions, b.cat.Rules.PaidAdditionsMax) }

func (b *Bowl) categoryMax(key string, fallback int) int {
	if c, ok := b.cat.Category(key); ok && c.Selection.Max > 0 {
		return c.Selection.Max
	}
	return fallback
}

func (b *Bowl) recalc() {
	var t Totals
	if price, err := b.cat.Price(b.sel); err == nil {
		t.Price = price.InexactFloat64()
	}
	t.Macros = b.cat.Macros(b.sel)
	t.Badges, _ = b.cat.Badges(t.Macros, b.sel.Size)
	b.totals = t
}
