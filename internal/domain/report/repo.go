package report

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("report not found")
	ErrForbidden = errors.New("report belongs to another user")
)

// Repository persists lab reports in the clinic's schema.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Report, int, error)
}
