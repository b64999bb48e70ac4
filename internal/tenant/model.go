package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Clinic is a white-labeled portal instance scoped by a URL slug.
type Clinic struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Slug               string     `db:"slug" json:"slug"`
	Name               string     `db:"name" json:"name"`
	LogoURL            *string    `db:"logo_url" json:"logo_url,omitempty"`
	PrimaryColor       *string    `db:"primary_color" json:"primary_color,omitempty"`
	AccentColor        *string    `db:"accent_color" json:"accent_color,omitempty"`
	SubscriptionStatus string     `db:"subscription_status" json:"subscription_status"`
	SubscriptionTier   *string    `db:"subscription_tier" json:"subscription_tier,omitempty"`
	DispensaryURL      *string    `db:"dispensary_url" json:"dispensary_url,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Valid subscription states. "trialing" counts as active for entitlement
// purposes; "past_due" and "canceled" do not.
var validSubscriptionStatuses = map[string]bool{
	"active": true, "trialing": true, "past_due": true, "canceled": true,
}

// SubscriptionActive reports whether the clinic's subscription entitles it
// to the full clinic capability set.
func (c *Clinic) SubscriptionActive() bool {
	return c.SubscriptionStatus == "active" || c.SubscriptionStatus == "trialing"
}

// HasDispensary reports whether the clinic has a dispensary storefront
// configured. Derived once here rather than re-checked field-by-field at
// every call site.
func (c *Clinic) HasDispensary() bool {
	return c.DispensaryURL != nil && *c.DispensaryURL != ""
}
