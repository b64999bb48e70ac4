package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Order statuses. Payment has no intermediate states on our side; the
// processor's session either completes or the user abandons it.
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusCanceled = "canceled"
)

var statusTransitions = map[string][]string{
	StatusPending:  {StatusPaid, StatusCanceled},
	StatusPaid:     {},
	StatusCanceled: {},
}

// ValidateTransition checks if an order status transition is valid.
func ValidateTransition(from, to string) error {
	allowed, ok := statusTransitions[from]
	if !ok {
		return fmt.Errorf("unknown from-status: %s", from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", from, to)
}

// Order maps to the orders table. AmountCents is computed by the pricing
// engine at creation time and frozen; later catalog changes do not reprice
// an existing order.
type Order struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	ClinicID    *uuid.UUID `db:"clinic_id" json:"clinic_id,omitempty"`
	PanelIDs    []string   `db:"panel_ids" json:"panel_ids"`
	AmountCents int64      `db:"amount_cents" json:"amount_cents"`
	Currency    string     `db:"currency" json:"currency"`
	Status      string     `db:"status" json:"status"`
	CheckoutRef *string    `db:"checkout_ref" json:"checkout_ref,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
