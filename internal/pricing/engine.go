// Package pricing computes retail prices for catalog panels. The engine is
// a pure computation over an immutable catalog: no I/O, no hidden state,
// identical inputs always produce identical output.
package pricing

import (
	"fmt"
	"math"

	"github.com/labguide/labguide/internal/catalog"
)

// Breakdown is the auditable decomposition of a computed price. It is a
// view artifact, recomputed on demand and never persisted as authoritative.
type Breakdown struct {
	BaseCostCents    int64 `json:"base_cost_cents"`
	AbsorbedFeeCents int64 `json:"absorbed_fee_cents"`
	ReferenceCents   int64 `json:"reference_cents,omitempty"`
	ReferenceUsed    bool  `json:"reference_used"`
	ExceedsReference bool  `json:"exceeds_reference"`
	// Degraded is set when a reference-match panel had no reference price
	// and fell back to the default markup. This is defined behavior, not
	// an error.
	Degraded bool `json:"degraded,omitempty"`
}

// PricedPanel pairs a catalog panel with its computed retail price.
type PricedPanel struct {
	Panel      catalog.Panel `json:"panel"`
	PriceCents int64         `json:"price_cents"`
	Currency   string        `json:"currency"`
	Breakdown  Breakdown     `json:"breakdown"`
}

// Engine prices panels against a validated catalog.
type Engine struct {
	cat      *catalog.Catalog
	defaults catalog.PricingDefaults
	fees     catalog.FeeSchedule
}

// NewEngine builds an engine using the catalog's own fee schedule and
// pricing defaults.
func NewEngine(cat *catalog.Catalog) *Engine {
	return &Engine{cat: cat, defaults: cat.Defaults(), fees: cat.Fees()}
}

// NewEngineWithOverrides builds an engine with explicit defaults and fees,
// used by tests and by clinic-specific fee arrangements.
func NewEngineWithOverrides(cat *catalog.Catalog, defaults catalog.PricingDefaults, fees catalog.FeeSchedule) *Engine {
	return &Engine{cat: cat, defaults: defaults, fees: fees}
}

// Price computes the retail price for a panel. Bundles resolve their cost
// basis as the exact integer sum of component wholesale costs before the
// bundle's own strategy is applied; intermediate math stays in full
// precision and only the final price is rounded (half-up) to a cent.
func (e *Engine) Price(panelID string) (*PricedPanel, error) {
	p, ok := e.cat.Get(panelID)
	if !ok {
		return nil, fmt.Errorf("pricing: unknown panel %q", panelID)
	}

	base, err := e.cat.WholesaleCost(panelID)
	if err != nil {
		return nil, err
	}

	bd := Breakdown{BaseCostCents: base}
	strategyPrice := e.applyStrategy(p, base, &bd)

	fee := float64(e.fees.FlatCents) + strategyPrice*e.fees.Percent/100
	total := roundHalfUp(strategyPrice + fee)
	bd.AbsorbedFeeCents = total - roundHalfUp(strategyPrice)

	if p.ReferencePriceCents != nil {
		bd.ReferenceCents = *p.ReferencePriceCents
		bd.ExceedsReference = total > *p.ReferencePriceCents
	}

	return &PricedPanel{
		Panel:      *p,
		PriceCents: total,
		Currency:   e.cat.Currency(),
		Breakdown:  bd,
	}, nil
}

// PriceAll prices every panel in catalog order.
func (e *Engine) PriceAll() ([]*PricedPanel, error) {
	panels := e.cat.Panels()
	out := make([]*PricedPanel, 0, len(panels))
	for i := range panels {
		pp, err := e.Price(panels[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, pp)
	}
	return out, nil
}

// applyStrategy returns the pre-fee price in full precision.
func (e *Engine) applyStrategy(p *catalog.Panel, base int64, bd *Breakdown) float64 {
	cost := float64(base)
	switch p.Strategy.Type {
	case catalog.StrategyMarkupPercent:
		return cost * (1 + p.Strategy.MarkupPercent/100)
	case catalog.StrategyFixedFee:
		return cost + float64(p.Strategy.FeeCents)
	case catalog.StrategyMatchReference:
		if p.ReferencePriceCents == nil {
			// Documented degradation: no reference to match, price as a
			// plain markup panel using the catalog defaults.
			bd.Degraded = true
			return cost * (1 + e.defaults.MarkupPercent/100)
		}
		bd.ReferenceUsed = true
		floor := cost * (1 + p.Strategy.FloorPercent/100)
		return math.Max(float64(*p.ReferencePriceCents), floor)
	}
	// Unreachable: catalog validation rejects unknown strategies at load.
	return cost
}

func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
