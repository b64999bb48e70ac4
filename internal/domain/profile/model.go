package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the health context a user maintains for report analysis. One
// row per user, keyed by the identity provider's subject.
type Profile struct {
	UserID      string     `db:"user_id" json:"user_id"`
	Email       string     `db:"email" json:"email"`
	FullName    string     `db:"full_name" json:"full_name"`
	ClinicID    *uuid.UUID `db:"clinic_id" json:"clinic_id,omitempty"`
	Age         int        `db:"age" json:"age,omitempty"`
	Sex         string     `db:"sex" json:"sex,omitempty"`
	HeightCM    float64    `db:"height_cm" json:"height_cm,omitempty"`
	WeightKG    float64    `db:"weight_kg" json:"weight_kg,omitempty"`
	Conditions  []string   `db:"conditions" json:"conditions,omitempty"`
	Medications []string   `db:"medications" json:"medications,omitempty"`
	Goals       []string   `db:"goals" json:"goals,omitempty"`

	ConsentAnalysis  bool `db:"consent_analysis" json:"consent_analysis"`
	ConsentMarketing bool `db:"consent_marketing" json:"consent_marketing"`

	DispensaryAccountID *string `db:"dispensary_account_id" json:"dispensary_account_id,omitempty"`
	DispensaryURL       *string `db:"dispensary_url" json:"dispensary_url,omitempty"`

	// HasDispensaryAccess is derived from the linkage columns when the row
	// is loaded, never stored. Keeping it explicit avoids recomputing the
	// check at every call site.
	HasDispensaryAccess bool `db:"-" json:"has_dispensary_access"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Profile) deriveAccess() {
	p.HasDispensaryAccess = p.DispensaryAccountID != nil && *p.DispensaryAccountID != "" &&
		p.DispensaryURL != nil && *p.DispensaryURL != ""
}
