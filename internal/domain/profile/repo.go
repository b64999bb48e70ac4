package profile

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("profile not found")

// Repository persists profiles in the clinic's schema.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, userID string) error
}
