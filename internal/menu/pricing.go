package menu

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Selection is what the customer picked for one bowl.
type Selection struct {
	Size          string   `json:"size"`
	Veggies       []string `json:"veggies"`
	Sauces        []string `json:"sauces"`
	PrimaryExtra  []string `json:"primary_extra"`
	PaidAdditions []string `json:"paid_additions"`
	Side          string   `json:"side,omitempty"`
	Mixing        string   `json:"mixing,omitempty"`
}

// Quote is the server-side view of a selection.
type Quote struct {
	Price  float64  `json:"price"`
	Macros Macros   `json:"macros"`
	Target Target   `json:"target"`
	Badges []string `json:"badges"`
}

// Price sums the size base price, veggie deltas, sauces past the free
// allowance and paid additions. Unknown item ids are not charged.
func (c *Catalog) Price(sel Selection) (decimal.Decimal, error) {
	size, ok := c.Size(sel.Size)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownSize, sel.Size)
	}
	total := decimal.NewFromFloat(size.BasePrice)

	for _, id := range sel.Veggies {
		if it, ok := c.Item(Veggies, id); ok && it.PriceDelta != nil {
			total = total.Add(decimal.NewFromFloat(*it.PriceDelta))
		}
	}

	free := c.freeSauces()
	for i, id := range sel.Sauces {
		if i < free {
			continue
		}
		if it, ok := c.Item(Sauces, id); ok && it.UnitPrice != nil {
			total = total.Add(decimal.NewFromFloat(*it.UnitPrice))
		}
	}

	for _, id := range sel.PaidAdditions {
		if it, ok := c.Item(PaidAdditions, id); ok && it.UnitPrice != nil {
			total = total.Add(decimal.NewFromFloat(*it.UnitPrice))
		}
	}
	return total.Round(2), nil
}

func (c *Catalog) Quote(sel Selection) (Quote, error) {
	price, err := c.Price(sel)
	if err != nil {
		return Quote{}, err
	}
	macros := c.Macros(sel)
	badges, err := c.Badges(macros, sel.Size)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Price:  price.InexactFloat64(),
		Macros: macros,
		Target: c.Target(sel.Size),
		Badges: badges,
	}, nil
}

// ToAgorot converts a shekel amount to the smallest currency unit.
func ToAgorot(price float64) int64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
