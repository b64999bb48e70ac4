package profile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/labguide/labguide/internal/dispensary"
)

type mockRepo struct {
	profiles map[string]*Profile
}

func newMockRepo() *mockRepo {
	return &mockRepo{profiles: make(map[string]*Profile)}
}

func (m *mockRepo) GetByUserID(_ context.Context, userID string) (*Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.deriveAccess()
	return &cp, nil
}

func (m *mockRepo) Upsert(_ context.Context, p *Profile) error {
	cp := *p
	m.profiles[p.UserID] = &cp
	p.deriveAccess()
	return nil
}

func (m *mockRepo) Delete(_ context.Context, userID string) error {
	if _, ok := m.profiles[userID]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, userID)
	return nil
}

type mockProvisioner struct {
	account *dispensary.Account
	err     error
	calls   int
}

func (m *mockProvisioner) Provision(_ context.Context, _ dispensary.ProvisionRequest) (*dispensary.Account, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.account, nil
}

func seedProfile(t *testing.T, repo *mockRepo) *Profile {
	t.Helper()
	p := &Profile{
		UserID:          "user-1",
		Email:           "pat@example.com",
		FullName:        "Pat Example",
		Age:             42,
		Sex:             "female",
		Conditions:      []string{"hypothyroid"},
		Goals:           []string{"energy"},
		ConsentAnalysis: true,
	}
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSaveValidation(t *testing.T) {
	svc := NewService(newMockRepo(), &mockProvisioner{})

	cases := []struct {
		name string
		p    Profile
	}{
		{"missing user id", Profile{Email: "a@b.com"}},
		{"missing email", Profile{UserID: "u"}},
		{"negative age", Profile{UserID: "u", Email: "a@b.com", Age: -1}},
		{"absurd age", Profile{UserID: "u", Email: "a@b.com", Age: 200}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Save(context.Background(), &tc.p); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSavePreservesDispensaryLinkage(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockProvisioner{})
	p := seedProfile(t, repo)

	accountID := "disp-9"
	url := "https://shop.example.com/u/disp-9"
	p.DispensaryAccountID = &accountID
	p.DispensaryURL = &url
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	// A client update must not be able to overwrite the linkage.
	update := &Profile{
		UserID:              "user-1",
		Email:               "pat@example.com",
		DispensaryAccountID: nil,
		DispensaryURL:       nil,
	}
	if err := svc.Save(context.Background(), update); err != nil {
		t.Fatalf("save: %v", err)
	}

	stored, err := repo.GetByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.DispensaryAccountID == nil || *stored.DispensaryAccountID != "disp-9" {
		t.Errorf("linkage lost: %+v", stored)
	}
	if !stored.HasDispensaryAccess {
		t.Error("HasDispensaryAccess should be derived true")
	}
}

func TestLinkDispensary(t *testing.T) {
	repo := newMockRepo()
	prov := &mockProvisioner{account: &dispensary.Account{
		ID:            "disp-9",
		DispensaryURL: "https://shop.example.com/u/disp-9",
	}}
	svc := NewService(repo, prov)
	seedProfile(t, repo)

	p, err := svc.LinkDispensary(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if !p.HasDispensaryAccess {
		t.Error("expected dispensary access after linking")
	}
	if prov.calls != 1 {
		t.Errorf("provision calls = %d", prov.calls)
	}

	// Linking again is a no-op, not a second provision call.
	if _, err := svc.LinkDispensary(context.Background(), "user-1", ""); err != nil {
		t.Fatalf("relink: %v", err)
	}
	if prov.calls != 1 {
		t.Errorf("provision calls after relink = %d", prov.calls)
	}
}

func TestLinkDispensaryFailureLeavesUnlinked(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockProvisioner{err: fmt.Errorf("duplicate email")})
	seedProfile(t, repo)

	if _, err := svc.LinkDispensary(context.Background(), "user-1", ""); err == nil {
		t.Fatal("expected provisioning error")
	}

	stored, _ := repo.GetByUserID(context.Background(), "user-1")
	if stored.HasDispensaryAccess {
		t.Error("profile should stay unlinked after failure")
	}
}

func TestLinkDispensaryWithoutProfile(t *testing.T) {
	svc := NewService(newMockRepo(), &mockProvisioner{})
	if _, err := svc.LinkDispensary(context.Background(), "nobody", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestAnalysisProfile(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockProvisioner{})
	seedProfile(t, repo)

	in, err := svc.AnalysisProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("analysis profile: %v", err)
	}
	if in.Age != 42 || in.Sex != "female" || len(in.Conditions) != 1 {
		t.Errorf("input = %+v", in)
	}

	// No profile row means empty context, not an error.
	in, err = svc.AnalysisProfile(context.Background(), "nobody")
	if err != nil || in.Age != 0 {
		t.Errorf("missing profile: in=%+v err=%v", in, err)
	}
}

func TestAnalysisProfileRespectsConsent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockProvisioner{})
	p := seedProfile(t, repo)
	p.ConsentAnalysis = false
	repo.Upsert(context.Background(), p)

	in, err := svc.AnalysisProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if in.Age != 0 || in.Sex != "" {
		t.Errorf("consent not respected: %+v", in)
	}
}
