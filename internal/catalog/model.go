// Package catalog loads and validates the lab panel catalog document.
// The catalog is read once at startup and is immutable afterwards; pricing
// and handlers receive the constructed value, never a global.
package catalog

// StrategyType identifies how a panel's retail price is derived from its
// wholesale cost.
type StrategyType string

const (
	// StrategyMarkupPercent prices the panel at cost plus a percentage.
	StrategyMarkupPercent StrategyType = "markup_percentage"
	// StrategyFixedFee prices the panel at cost plus a fixed amount.
	StrategyFixedFee StrategyType = "fixed_fee_over_cost"
	// StrategyMatchReference matches an external reference price, floored
	// at cost plus a minimum percentage.
	StrategyMatchReference StrategyType = "match_reference_with_floor"
)

// PricingStrategy is a tagged variant; exactly one parameter field is
// meaningful for a given Type, enforced at catalog load.
type PricingStrategy struct {
	Type          StrategyType `json:"type"`
	MarkupPercent float64      `json:"markup_percent,omitempty"`
	FeeCents      int64        `json:"fee_cents,omitempty"`
	FloorPercent  float64      `json:"floor_percent,omitempty"`
}

// Panel is a catalog entry for a single orderable lab panel. A panel with
// Components is a bundle: its cost basis is the sum of the component
// panels' wholesale costs and its own WholesaleCents must be absent.
type Panel struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	VendorSKU           string          `json:"vendor_sku,omitempty"`
	Category            string          `json:"category,omitempty"`
	Specimen            string          `json:"specimen,omitempty"`
	Fasting             bool            `json:"fasting,omitempty"`
	TurnaroundDays      string          `json:"turnaround_days,omitempty"`
	Advanced            bool            `json:"advanced,omitempty"`
	Markers             []string        `json:"markers,omitempty"`
	Components          []string        `json:"components,omitempty"`
	WholesaleCents      int64           `json:"wholesale_cents,omitempty"`
	ReferencePriceCents *int64          `json:"reference_price_cents,omitempty"`
	Strategy            PricingStrategy `json:"strategy"`
}

// IsBundle reports whether the panel derives its cost from other panels.
func (p *Panel) IsBundle() bool {
	return len(p.Components) > 0
}

// FeeSchedule is the platform's absorbed processing fee applied on top of
// the strategy price: a flat amount plus a percentage of the pre-fee price.
type FeeSchedule struct {
	FlatCents int64   `json:"flat_cents"`
	Percent   float64 `json:"percent"`
}

// PricingDefaults supplies fallback parameters when a strategy degrades
// (a reference-match panel without a reference price).
type PricingDefaults struct {
	MarkupPercent float64 `json:"markup_percent"`
}

// Document is the raw shape of the catalog JSON file.
type Document struct {
	Currency        string          `json:"currency"`
	DefaultFees     FeeSchedule     `json:"default_fees"`
	PricingDefaults PricingDefaults `json:"pricing_defaults"`
	Panels          []Panel         `json:"panels"`
}
