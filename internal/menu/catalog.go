package menu

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var bundledMenu []byte

// Category keys used by pricing and nutrition.
const (
	Veggies       = "veggies"
	Sauces        = "sauces"
	Mixing        = "mixing"
	Side          = "side"
	PrimaryExtra  = "primary_extra"
	PaidAdditions = "paid_additions"
)

var (
	ErrUnknownSize = errors.New("unknown size")
	ErrUnknownItem = errors.New("unknown menu item")
)

// Catalog — статическая таблица меню, неизменяемая после загрузки.
type Catalog struct {
	Meta       Meta              `yaml:"meta" json:"meta"`
	Sizes      []Size            `yaml:"sizes" json:"sizes"`
	Rules      Rules             `yaml:"rules" json:"rules"`
	Categories []Category        `yaml:"categories" json:"categories"`
	Targets    map[string]Target `yaml:"targets" json:"targets"`
	Defaults   Defaults          `yaml:"defaults" json:"-"`
	BadgeRules []BadgeRule       `yaml:"badges" json:"-"`

	sizes map[string]Size
	items map[string]map[string]Item
}

type Meta struct {
	Brand    string `yaml:"brand" json:"brand"`
	Locale   string `yaml:"locale" json:"locale"`
	Currency string `yaml:"currency" json:"currency"`
	Notes    string `yaml:"notes" json:"notes"`
}

type Size struct {
	ID        string  `yaml:"id" json:"id"`
	LabelHe   string  `yaml:"label_he" json:"label_he"`
	LabelEn   string  `yaml:"label_en" json:"label_en"`
	BasePrice float64 `yaml:"base_price" json:"base_price"`
	VegMin    int     `yaml:"veg_min" json:"veg_min"`
	VegMax    int     `yaml:"veg_max" json:"veg_max"`
}

type Rules struct {
	SaucesIncludedFree   int  `yaml:"sauces_included_free" json:"sauces_included_free"`
	SaucesMin            int  `yaml:"sauces_min" json:"sauces_min"`
	SaucesMax            int  `yaml:"sauces_max" json:"sauces_max"`
	PrimaryExtraMax      int  `yaml:"primary_extra_max" json:"primary_extra_max"`
	PaidAdditionsMax     int  `yaml:"paid_additions_max" json:"paid_additions_max"`
	BreadChoiceRequired  bool `yaml:"bread_choice_required" json:"bread_choice_required"`
	MixingChoiceRequired bool `yaml:"mixing_choice_required" json:"mixing_choice_required"`
}

type Category struct {
	Key       string        `yaml:"key" json:"key"`
	TitleHe   string        `yaml:"title_he" json:"title_he"`
	TitleEn   string        `yaml:"title_en" json:"title_en"`
	Selection SelectionRule `yaml:"selection" json:"selection"`
	Items     []Item        `yaml:"items" json:"items"`
}

// SelectionRule describes how many items of a category a bowl may hold.
type SelectionRule struct {
	Type              string            `yaml:"type" json:"type"`
	Min               int               `yaml:"min,omitempty" json:"min,omitempty"`
	Max               int               `yaml:"max,omitempty" json:"max,omitempty"`
	Count             int               `yaml:"count,omitempty" json:"count,omitempty"`
	IncludedFree      int               `yaml:"included_free,omitempty" json:"included_free,omitempty"`
	ExtraPriceApplies bool              `yaml:"extra_price_applies,omitempty" json:"extra_price_applies,omitempty"`
	SizeRules         map[string][2]int `yaml:"size_rules,omitempty" json:"size_rules,omitempty"`
}

type Item struct {
	ID         string     `yaml:"id" json:"id"`
	He         string     `yaml:"he" json:"he"`
	En         string     `yaml:"en" json:"en"`
	PriceDelta *float64   `yaml:"price_delta,omitempty" json:"price_delta,omitempty"`
	UnitPrice  *float64   `yaml:"unit_price,omitempty" json:"unit_price,omitempty"`
	Nutrition  *Nutrition `yaml:"nutrition,omitempty" json:"nutrition,omitempty"`
	Facts      []Fact     `yaml:"facts,omitempty" json:"facts,omitempty"`
}

type Nutrition struct {
	GramsPerScoop float64 `yaml:"grams_per_scoop" json:"grams_per_scoop"`
	Per100g       Macros  `yaml:"per_100g" json:"per_100g"`
}

type Fact struct {
	He string `yaml:"he" json:"he"`
	En string `yaml:"en" json:"en"`
}

type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Target is the nutrition goal for one bowl size.
type Target struct {
	Kcal    float64 `yaml:"kcal" json:"kcal"`
	Protein Range   `yaml:"protein" json:"protein"`
	Carbs   Range   `yaml:"carbs" json:"carbs"`
	Fat     Range   `yaml:"fat" json:"fat"`
}

// Load parses the menu table bundled into the binary.
func Load() (*Catalog, error) {
	return Parse(bundledMenu)
}

// MustLoad is Load for package-level initialisation and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a catalog from a YAML document and indexes its items.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	c.sizes = make(map[string]Size, len(c.Sizes))
	for _, s := range c.Sizes {
		c.sizes[s.ID] = s
	}
	c.items = make(map[string]map[string]Item, len(c.Categories))
	for _, cat := range c.Categories {
		byID := make(map[string]Item, len(cat.Items))
		for _, it := range cat.Items {
			if _, dup := byID[it.ID]; dup {
				return nil, fmt.Errorf("parse menu: duplicate item %q in %s", it.ID, cat.Key)
			}
			byID[it.ID] = it
		}
		c.items[cat.Key] = byID
	}
	if _, ok := c.Targets[defaultTargetSize]; !ok {
		return nil, fmt.Errorf("parse menu: missing nutrition target for size %s", defaultTargetSize)
	}
	if err := c.compileBadges(); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	return &c, nil
}

func (c *Catalog) Size(id string) (Size, bool) {
	s, ok := c.sizes[id]
	return s, ok
}

func (c *Catalog) Item(category, id string) (Item, bool) {
	it, ok := c.items[category][id]
	return it, ok
}

func (c *Catalog) Category(key string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

// VeggieLimit returns the [min, max] veggie count for a size.
func (c *Catalog) VeggieLimit(size string) (int, int, error) {
	s, ok := c.sizes[size]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownSize, size)
	}
	if cat, ok := c.Category(Veggies); ok {
		if r, ok := cat.Selection.SizeRules[size]; ok {
			return r[0], r[1], nil
		}
	}
	return s.VegMin, s.VegMax, nil
}

func (c *Catalog) freeSauces() int {
	if cat, ok := c.Category(Sauces); ok && cat.Selection.IncludedFree > 0 {
		return cat.Selection.IncludedFree
	}
	return c.Rules.SaucesIncludedFree
}
