package menu

import (
	"math"
	"slices"
)

const defaultTargetSize = "1000"

type Macros struct {
	Kcal    float64 `yaml:"kcal" json:"kcal"`
	Protein float64 `yaml:"protein" json:"protein"`
	Carbs   float64 `yaml:"carbs" json:"carbs"`
	Fat     float64 `yaml:"fat" json:"fat"`
	Fiber   float64 `yaml:"fiber" json:"fiber"`
}

func (m Macros) Add(o Macros) Macros {
	return Macros{
		Kcal:    m.Kcal + o.Kcal,
		Protein: m.Protein + o.Protein,
		Carbs:   m.Carbs + o.Carbs,
		Fat:     m.Fat + o.Fat,
		Fiber:   m.Fiber + o.Fiber,
	}
}

// Rounded returns kcal as a whole number and the rest to one decimal.
func (m Macros) Rounded() Macros {
	return Macros{
		Kcal:    math.Round(m.Kcal),
		Protein: round1(m.Protein),
		Carbs:   round1(m.Carbs),
		Fat:     round1(m.Fat),
		Fiber:   round1(m.Fiber),
	}
}

// Defaults holds per-scoop estimates for items the table has no nutrition data for.
type Defaults struct {
	Fallback DefaultGroup   `yaml:"fallback"`
	Groups   []DefaultGroup `yaml:"groups"`
}

// DefaultGroup matches items by id, or any unit-priced item when Items is empty.
type DefaultGroup struct {
	Name       string   `yaml:"name"`
	Grams      float64  `yaml:"grams"`
	UnitPriced bool     `yaml:"unit_priced"`
	Items      []string `yaml:"items"`
	Per100g    Macros   `yaml:"per_100g"`
}

func (g DefaultGroup) matches(it Item) bool {
	if g.UnitPriced && it.UnitPrice == nil {
		return false
	}
	if len(g.Items) == 0 {
		return g.UnitPriced
	}
	return slices.Contains(g.Items, it.ID)
}

func (d Defaults) groupFor(it Item) DefaultGroup {
	for _, g := range d.Groups {
		if g.matches(it) {
			return g
		}
	}
	return d.Fallback
}

// ScoopMacros returns the macros of one scoop of an item.
func (c *Catalog) ScoopMacros(it Item) Macros {
	grams, per100 := 0.0, Macros{}
	if it.Nutrition != nil {
		grams, per100 = it.Nutrition.GramsPerScoop, it.Nutrition.Per100g
	} else {
		g := c.Defaults.groupFor(it)
		grams, per100 = g.Grams, g.Per100g
	}
	f := grams / 100
	return Macros{
		Kcal:    per100.Kcal * f,
		Protein: per100.Protein * f,
		Carbs:   per100.Carbs * f,
		Fat:     per100.Fat * f,
		Fiber:   per100.Fiber * f,
	}.Rounded()
}

// Macros sums one scoop of every selected veggie, sauce, extra and paid addition.
// Unknown ids contribute nothing.
func (c *Catalog) Macros(sel Selection) Macros {
	var total Macros
	add := func(category string, ids []string) {
		for _, id := range ids {
			if it, ok := c.Item(category, id); ok {
				total = total.Add(c.ScoopMacros(it))
			}
		}
	}
	add(Veggies, sel.Veggies)
	add(Sauces, sel.Sauces)
	add(PrimaryExtra, sel.PrimaryExtra)
	add(PaidAdditions, sel.PaidAdditions)
	return total.Rounded()
}

// Target returns the nutrition target for a size, defaulting to the 1000 ml bowl.
func (c *Catalog) Target(size string) Target {
	if t, ok := c.Targets[size]; ok {
		return t
	}
	return c.Targets[defaultTargetSize]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
