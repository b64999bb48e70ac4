package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Catalog is the validated, immutable panel catalog. Construct with Load
// or Parse; lookups after a successful construction cannot fail on
// structural grounds (unknown strategies, missing components, cycles are
// all rejected up front).
type Catalog struct {
	currency string
	fees     FeeSchedule
	defaults PricingDefaults
	panels   []Panel
	byID     map[string]*Panel
}

// Load reads and validates the catalog document at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates a raw catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc)
}

// New validates a catalog document and builds the lookup index.
func New(doc Document) (*Catalog, error) {
	c := &Catalog{
		currency: doc.Currency,
		fees:     doc.DefaultFees,
		defaults: doc.PricingDefaults,
		panels:   doc.Panels,
		byID:     make(map[string]*Panel, len(doc.Panels)),
	}
	if c.currency == "" {
		c.currency = "usd"
	}

	for i := range c.panels {
		p := &c.panels[i]
		if p.ID == "" {
			return nil, fmt.Errorf("catalog: panel %d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate panel id %q", p.ID)
		}
		c.byID[p.ID] = p
	}

	for i := range c.panels {
		if err := c.validatePanel(&c.panels[i]); err != nil {
			return nil, err
		}
	}

	// Cycles must be rejected here: price computation resolves bundles
	// recursively and has no runtime cycle guard.
	if err := c.checkCycles(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Catalog) validatePanel(p *Panel) error {
	switch p.Strategy.Type {
	case StrategyMarkupPercent:
		if p.Strategy.MarkupPercent < 0 {
			return fmt.Errorf("catalog: panel %q: negative markup percent", p.ID)
		}
	case StrategyFixedFee:
		if p.Strategy.FeeCents < 0 {
			return fmt.Errorf("catalog: panel %q: negative fixed fee", p.ID)
		}
	case StrategyMatchReference:
		if p.Strategy.FloorPercent < 0 {
			return fmt.Errorf("catalog: panel %q: negative floor percent", p.ID)
		}
	default:
		return fmt.Errorf("catalog: panel %q: unknown pricing strategy %q", p.ID, p.Strategy.Type)
	}

	if p.WholesaleCents < 0 {
		return fmt.Errorf("catalog: panel %q: negative wholesale cost", p.ID)
	}
	if p.ReferencePriceCents != nil && *p.ReferencePriceCents < 0 {
		return fmt.Errorf("catalog: panel %q: negative reference price", p.ID)
	}

	if p.IsBundle() {
		if p.WholesaleCents != 0 {
			return fmt.Errorf("catalog: bundle %q declares its own wholesale cost", p.ID)
		}
		for _, cid := range p.Components {
			comp, ok := c.byID[cid]
			if !ok {
				return fmt.Errorf("catalog: bundle %q references unknown component %q", p.ID, cid)
			}
			if comp.ID == p.ID {
				return fmt.Errorf("catalog: bundle %q references itself", p.ID)
			}
			if !comp.IsBundle() && comp.WholesaleCents == 0 {
				return fmt.Errorf("catalog: bundle %q component %q has no wholesale cost", p.ID, cid)
			}
		}
	}
	return nil
}

// checkCycles walks bundle component edges with a three-color DFS.
func (c *Catalog) checkCycles() error {
	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(c.panels))

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case grey:
			return fmt.Errorf("catalog: bundle cycle involving panel %q", id)
		case black:
			return nil
		}
		color[id] = grey
		for _, cid := range c.byID[id].Components {
			if err := visit(cid); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}

	for i := range c.panels {
		if err := visit(c.panels[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the panel with the given id.
func (c *Catalog) Get(id string) (*Panel, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Panels returns all panels in document order.
func (c *Catalog) Panels() []Panel {
	out := make([]Panel, len(c.panels))
	copy(out, c.panels)
	return out
}

// Currency returns the catalog currency code.
func (c *Catalog) Currency() string { return c.currency }

// Fees returns the platform absorbed-fee schedule.
func (c *Catalog) Fees() FeeSchedule { return c.fees }

// Defaults returns the fallback pricing parameters.
func (c *Catalog) Defaults() PricingDefaults { return c.defaults }

// WholesaleCost returns the panel's cost basis in cents. For bundles it is
// the exact integer sum of the component panels' wholesale costs; nested
// bundles are resolved recursively. Safe after validation.
func (c *Catalog) WholesaleCost(id string) (int64, error) {
	p, ok := c.byID[id]
	if !ok {
		return 0, fmt.Errorf("catalog: unknown panel %q", id)
	}
	if !p.IsBundle() {
		return p.WholesaleCents, nil
	}
	var sum int64
	for _, cid := range p.Components {
		v, err := c.WholesaleCost(cid)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}
