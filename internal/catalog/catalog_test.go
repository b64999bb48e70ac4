package catalog

import (
	"strings"
	"testing"
)

func markup(pct float64) PricingStrategy {
	return PricingStrategy{Type: StrategyMarkupPercent, MarkupPercent: pct}
}

func TestNew_ValidCatalog(t *testing.T) {
	doc := Document{
		Currency: "usd",
		Panels: []Panel{
			{ID: "cbc", Name: "CBC", WholesaleCents: 450, Strategy: markup(20)},
			{ID: "cmp", Name: "CMP", WholesaleCents: 600, Strategy: markup(20)},
			{ID: "basic", Name: "Basic Bundle", Components: []string{"cbc", "cmp"}, Strategy: markup(10)},
		},
	}
	c, err := New(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Get("cbc"); !ok {
		t.Error("expected cbc to be indexed")
	}
	if len(c.Panels()) != 3 {
		t.Errorf("expected 3 panels, got %d", len(c.Panels()))
	}
}

func TestNew_UnknownStrategy(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "cbc", WholesaleCents: 450, Strategy: PricingStrategy{Type: "dynamic"}},
	}}
	_, err := New(doc)
	if err == nil || !strings.Contains(err.Error(), "unknown pricing strategy") {
		t.Fatalf("expected unknown strategy error, got %v", err)
	}
}

func TestNew_MissingBundleComponent(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "b", Components: []string{"ghost"}, Strategy: markup(10)},
	}}
	_, err := New(doc)
	if err == nil || !strings.Contains(err.Error(), "unknown component") {
		t.Fatalf("expected missing component error, got %v", err)
	}
}

func TestNew_BundleCycle(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "a", Components: []string{"b"}, Strategy: markup(10)},
		{ID: "b", Components: []string{"a"}, Strategy: markup(10)},
	}}
	_, err := New(doc)
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestNew_SelfReferencingBundle(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "a", Components: []string{"a"}, Strategy: markup(10)},
	}}
	if _, err := New(doc); err == nil {
		t.Fatal("expected error for self-referencing bundle")
	}
}

func TestNew_DuplicatePanelID(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "a", WholesaleCents: 100, Strategy: markup(10)},
		{ID: "a", WholesaleCents: 200, Strategy: markup(10)},
	}}
	if _, err := New(doc); err == nil {
		t.Fatal("expected error for duplicate panel id")
	}
}

func TestNew_BundleWithOwnCost(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "a", WholesaleCents: 100, Strategy: markup(10)},
		{ID: "b", WholesaleCents: 500, Components: []string{"a"}, Strategy: markup(10)},
	}}
	if _, err := New(doc); err == nil {
		t.Fatal("expected error for bundle declaring its own wholesale cost")
	}
}

func TestNew_ComponentWithoutWholesaleCost(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "free", WholesaleCents: 0, Strategy: markup(10)},
		{ID: "b", Components: []string{"free"}, Strategy: markup(10)},
	}}
	_, err := New(doc)
	if err == nil || !strings.Contains(err.Error(), "no wholesale cost") {
		t.Fatalf("expected missing wholesale cost error, got %v", err)
	}
}

func TestWholesaleCost_BundleSumsExactly(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "c1", WholesaleCents: 450, Strategy: markup(0)},
		{ID: "c2", WholesaleCents: 601, Strategy: markup(0)},
		{ID: "c3", WholesaleCents: 333, Strategy: markup(0)},
		{ID: "bundle", Components: []string{"c1", "c2", "c3"}, Strategy: markup(0)},
	}}
	c, err := New(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.WholesaleCost("bundle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 450+601+333 {
		t.Errorf("expected exact component sum %d, got %d", 450+601+333, got)
	}
}

func TestWholesaleCost_NestedBundle(t *testing.T) {
	doc := Document{Panels: []Panel{
		{ID: "x", WholesaleCents: 100, Strategy: markup(0)},
		{ID: "y", WholesaleCents: 200, Strategy: markup(0)},
		{ID: "inner", Components: []string{"x", "y"}, Strategy: markup(0)},
		{ID: "outer", Components: []string{"inner", "x"}, Strategy: markup(0)},
	}}
	c, err := New(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.WholesaleCost("outer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 400 {
		t.Errorf("expected 400, got %d", got)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte("{not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParse_FullDocument(t *testing.T) {
	data := []byte(`{
		"currency": "usd",
		"default_fees": {"flat_cents": 800, "percent": 2.5},
		"pricing_defaults": {"markup_percent": 50},
		"panels": [
			{
				"id": "thyroid",
				"name": "Thyroid Panel",
				"vendor_sku": "QD-7444",
				"category": "hormones",
				"specimen": "serum",
				"fasting": true,
				"turnaround_days": "2-4",
				"markers": ["TSH", "Free T4", "Free T3"],
				"wholesale_cents": 2350,
				"reference_price_cents": 4900,
				"strategy": {"type": "match_reference_with_floor", "floor_percent": 25}
			}
		]
	}`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Fees().FlatCents != 800 || c.Fees().Percent != 2.5 {
		t.Errorf("fee schedule not parsed: %+v", c.Fees())
	}
	if c.Defaults().MarkupPercent != 50 {
		t.Errorf("pricing defaults not parsed: %+v", c.Defaults())
	}
	p, ok := c.Get("thyroid")
	if !ok {
		t.Fatal("thyroid panel missing")
	}
	if p.ReferencePriceCents == nil || *p.ReferencePriceCents != 4900 {
		t.Errorf("reference price not parsed: %+v", p.ReferencePriceCents)
	}
	if !p.Fasting || len(p.Markers) != 3 {
		t.Errorf("panel metadata not parsed: %+v", p)
	}
}
