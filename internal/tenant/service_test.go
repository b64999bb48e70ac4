package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	clinics map[uuid.UUID]*Clinic
}

func newMockRepo() *mockRepo {
	return &mockRepo{clinics: make(map[uuid.UUID]*Clinic)}
}

func (m *mockRepo) Create(_ context.Context, c *Clinic) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	m.clinics[c.ID] = c
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	c, ok := m.clinics[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) GetBySlug(_ context.Context, slug string) (*Clinic, error) {
	for _, c := range m.clinics {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, c *Clinic) error {
	m.clinics[c.ID] = c
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.clinics, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Clinic, int, error) {
	var result []*Clinic
	for _, c := range m.clinics {
		result = append(result, c)
	}
	return result, len(result), nil
}

func TestCreateClinic(t *testing.T) {
	svc := NewService(newMockRepo())
	c := &Clinic{Slug: "wellness-lab", Name: "Wellness Lab"}
	if err := svc.Create(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.SubscriptionStatus != "trialing" {
		t.Errorf("expected default status 'trialing', got %s", c.SubscriptionStatus)
	}
}

func TestCreateClinic_NameRequired(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Create(context.Background(), &Clinic{Slug: "x1"}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestCreateClinic_InvalidSlug(t *testing.T) {
	svc := NewService(newMockRepo())
	for _, slug := range []string{"", "Bad Slug", "UPPER", "-lead", "trail-", "a_b"} {
		if err := svc.Create(context.Background(), &Clinic{Slug: slug, Name: "X"}); err == nil {
			t.Errorf("expected error for slug %q", slug)
		}
	}
}

func TestCreateClinic_ReservedSlug(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Create(context.Background(), &Clinic{Slug: "api", Name: "X"}); err == nil {
		t.Error("expected error for reserved slug")
	}
}

func TestCreateClinic_DuplicateSlug(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Create(context.Background(), &Clinic{Slug: "dup", Name: "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Create(context.Background(), &Clinic{Slug: "dup", Name: "B"}); err == nil {
		t.Error("expected error for duplicate slug")
	}
}

func TestResolve(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	c := &Clinic{Slug: "acme", Name: "Acme Health", SubscriptionStatus: "active"}
	if err := svc.Create(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Resolve(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("resolved wrong clinic")
	}
}

func TestResolve_UnknownSlug(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.Resolve(context.Background(), "ghost"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_MalformedSlugShortCircuits(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.Resolve(context.Background(), "DROP TABLE"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateClinic_InvalidStatus(t *testing.T) {
	svc := NewService(newMockRepo())
	c := &Clinic{Slug: "ok", Name: "OK"}
	if err := svc.Create(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.SubscriptionStatus = "suspended"
	if err := svc.Update(context.Background(), c); err == nil {
		t.Error("expected error for invalid subscription status")
	}
}

func TestSubscriptionActive(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"active", true},
		{"trialing", true},
		{"past_due", false},
		{"canceled", false},
	}
	for _, tt := range tests {
		c := &Clinic{SubscriptionStatus: tt.status}
		if c.SubscriptionActive() != tt.want {
			t.Errorf("status %s: expected active=%v", tt.status, tt.want)
		}
	}
}
