package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrForbidden = errors.New("order belongs to another user")
)

// Repository persists orders in the clinic's schema.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Order, int, error)
}
