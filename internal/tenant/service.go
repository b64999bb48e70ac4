package tenant

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// slugPattern matches routing-safe clinic slugs. Lowercase alphanumerics
// and hyphens, no leading/trailing hyphen.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// reservedSlugs can never be claimed by a clinic because they collide with
// top-level routes.
var reservedSlugs = map[string]bool{
	"api": true, "auth": true, "health": true, "metrics": true,
	"dashboard": true, "admin": true, "c": true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new clinic. New clinics start in trialing status
// unless one is supplied.
func (s *Service) Create(ctx context.Context, c *Clinic) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !slugPattern.MatchString(c.Slug) {
		return fmt.Errorf("invalid slug: %q", c.Slug)
	}
	if reservedSlugs[c.Slug] {
		return fmt.Errorf("slug %q is reserved", c.Slug)
	}
	if c.SubscriptionStatus == "" {
		c.SubscriptionStatus = "trialing"
	}
	if !validSubscriptionStatuses[c.SubscriptionStatus] {
		return fmt.Errorf("invalid subscription status: %s", c.SubscriptionStatus)
	}
	if _, err := s.repo.GetBySlug(ctx, c.Slug); err == nil {
		return fmt.Errorf("slug %q is already taken", c.Slug)
	}
	return s.repo.Create(ctx, c)
}

// Resolve looks up a clinic by routing slug. One round trip, no fallback:
// an unknown slug is ErrNotFound and the caller renders the not-found page.
func (s *Service) Resolve(ctx context.Context, slug string) (*Clinic, error) {
	if !slugPattern.MatchString(slug) {
		return nil, ErrNotFound
	}
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, c *Clinic) error {
	if c.SubscriptionStatus != "" && !validSubscriptionStatuses[c.SubscriptionStatus] {
		return fmt.Errorf("invalid subscription status: %s", c.SubscriptionStatus)
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.List(ctx, limit, offset)
}
