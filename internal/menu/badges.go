package menu

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/diegoholiveira/jsonlogic"
)

// BadgeRule is a JSON-logic expression over {macros, target}.
type BadgeRule struct {
	Name string         `yaml:"name"`
	Rule map[string]any `yaml:"rule"`

	compiled []byte
}

type badgeInput struct {
	Macros Macros `json:"macros"`
	Target Target `json:"target"`
}

func (c *Catalog) compileBadges() error {
	for i := range c.BadgeRules {
		raw, err := json.Marshal(c.BadgeRules[i].Rule)
		if err != nil {
			return fmt.Errorf("badge %q: %w", c.BadgeRules[i].Name, err)
		}
		c.BadgeRules[i].compiled = raw
	}
	return nil
}

// Badges evaluates every badge rule against the macros and the size target,
// returning the names of the rules that hold, in table order.
func (c *Catalog) Badges(m Macros, size string) ([]string, error) {
	data, err := json.Marshal(badgeInput{Macros: m, Target: c.Target(size)})
	if err != nil {
		return nil, err
	}
	badges := []string{}
	for _, b := range c.BadgeRules {
		var out bytes.Buffer
		if err := jsonlogic.Apply(bytes.NewReader(b.compiled), bytes.NewReader(data), &out); err != nil {
			return nil, fmt.Errorf("badge %q: %w", b.Name, err)
		}
		var ok bool
		if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &ok); err != nil {
			return nil, fmt.Errorf("badge %q: non-boolean result %s", b.Name, out.String())
		}
		if ok {
			badges = append(badges, b.Name)
		}
	}
	return badges, nil
}
