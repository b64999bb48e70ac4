package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/labguide/labguide/internal/payments"
	"github.com/labguide/labguide/internal/pricing"
)

// Pricer is the slice of the pricing engine the service needs.
type Pricer interface {
	Price(panelID string) (*pricing.PricedPanel, error)
}

// CheckoutClient is the slice of the payments client the service needs.
type CheckoutClient interface {
	CreateSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error)
}

// Recorder is the slice of the telemetry package the service needs.
type Recorder interface {
	OrderCreated()
	OrderPaid()
}

type Service struct {
	repo     Repository
	pricer   Pricer
	checkout CheckoutClient
	currency string
	metrics  Recorder
}

func NewService(repo Repository, pricer Pricer, checkout CheckoutClient, currency string, metrics Recorder) *Service {
	return &Service{repo: repo, pricer: pricer, checkout: checkout, currency: currency, metrics: metrics}
}

// CreateInput describes a new panel order.
type CreateInput struct {
	UserID    string
	ClinicID  *uuid.UUID
	PanelIDs  []string
	ReturnURL string
}

// Checkout is the created order plus the processor redirect the client
// sends the user to.
type Checkout struct {
	Order       *Order `json:"order"`
	RedirectURL string `json:"redirect_url"`
}

// Create prices the panels, persists the pending order, and opens a
// checkout session. A session failure leaves the order pending with no
// checkout reference; the client may retry checkout at face value since
// the amount is already frozen.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Checkout, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if len(in.PanelIDs) == 0 {
		return nil, fmt.Errorf("at least one panel is required")
	}
	if in.ReturnURL == "" {
		return nil, fmt.Errorf("return url is required")
	}

	var total int64
	for _, id := range in.PanelIDs {
		pp, err := s.pricer.Price(id)
		if err != nil {
			return nil, err
		}
		total += pp.PriceCents
	}

	o := &Order{
		UserID:      in.UserID,
		ClinicID:    in.ClinicID,
		PanelIDs:    in.PanelIDs,
		AmountCents: total,
		Currency:    s.currency,
		Status:      StatusPending,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if s.metrics != nil {
		s.metrics.OrderCreated()
	}

	session, err := s.checkout.CreateSession(ctx, payments.CheckoutRequest{
		OrderID:     o.ID.String(),
		AmountCents: o.AmountCents,
		Currency:    o.Currency,
		ReturnURL:   in.ReturnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open checkout session: %w", err)
	}

	o.CheckoutRef = &session.ID
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}

	return &Checkout{Order: o, RedirectURL: session.RedirectURL}, nil
}

// Get returns an order after checking ownership.
func (s *Service) Get(ctx context.Context, id uuid.UUID, userID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

// List returns the user's orders, newest first, plus the total count.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]*Order, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkPaid records a completed payment. Exposed to the operator role that
// reconciles processor settlement reports.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.transition(ctx, id, StatusPaid)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.OrderPaid()
	}
	return o, nil
}

// Cancel voids a pending order. The owner can cancel before paying.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, userID string) (*Order, error) {
	o, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o.ID, StatusCanceled)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(o.Status, to); err != nil {
		return nil, err
	}
	o.Status = to
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
