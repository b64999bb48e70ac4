package tenant

// AccessContext is a closed variant describing how the app is being
// accessed: the public direct-to-consumer mode, or under a clinic slug.
// There are exactly two variants; use PublicAccess or ClinicAccess to
// construct one.
type AccessContext struct {
	clinic *Clinic
}

// PublicAccess is the direct-to-consumer mode.
func PublicAccess() AccessContext {
	return AccessContext{}
}

// ClinicAccess scopes access to a resolved clinic.
func ClinicAccess(c *Clinic) AccessContext {
	return AccessContext{clinic: c}
}

// Clinic returns the clinic for clinic-scoped access, or ok=false for
// public access.
func (a AccessContext) Clinic() (*Clinic, bool) {
	return a.clinic, a.clinic != nil
}

// Capabilities is the fixed-shape feature set consumed by rendering and by
// the dispensary/pricing display logic.
type Capabilities struct {
	Mode                  string `json:"mode"` // "public" or "clinic"
	DetailedDosage        bool   `json:"detailed_dosage"`
	AdvancedPanels        bool   `json:"advanced_panels"`
	PayPerReport          bool   `json:"pay_per_report"`
	DispensaryURL         string `json:"dispensary_url,omitempty"`
	DispensaryDiscountPct int    `json:"dispensary_discount_pct,omitempty"`
}

// ResolveCapabilities maps an access context to its capability set. Pure:
// same input, same output; absent context is always the public variant.
// discountPct is a deployment setting, never fixed here.
func ResolveCapabilities(a AccessContext, discountPct int) Capabilities {
	clinic, ok := a.Clinic()
	if !ok || !clinic.SubscriptionActive() {
		return Capabilities{
			Mode:         "public",
			PayPerReport: true,
		}
	}

	caps := Capabilities{
		Mode:           "clinic",
		DetailedDosage: true,
		AdvancedPanels: true,
	}
	if clinic.HasDispensary() {
		caps.DispensaryURL = *clinic.DispensaryURL
		caps.DispensaryDiscountPct = discountPct
	}
	return caps
}
