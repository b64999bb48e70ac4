package profile

import (
	"context"
	"fmt"

	"github.com/labguide/labguide/internal/analysis"
	"github.com/labguide/labguide/internal/dispensary"
)

// Provisioner is the slice of the dispensary client the service needs.
type Provisioner interface {
	Provision(ctx context.Context, req dispensary.ProvisionRequest) (*dispensary.Account, error)
}

type Service struct {
	repo        Repository
	provisioner Provisioner
}

func NewService(repo Repository, provisioner Provisioner) *Service {
	return &Service{repo: repo, provisioner: provisioner}
}

func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// Save validates and upserts the user's profile. The dispensary linkage
// columns are owned by LinkDispensary and are carried over from the
// existing row, never taken from the caller.
func (s *Service) Save(ctx context.Context, p *Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if p.Email == "" {
		return fmt.Errorf("email is required")
	}
	if p.Age < 0 || p.Age > 150 {
		return fmt.Errorf("age out of range")
	}

	existing, err := s.repo.GetByUserID(ctx, p.UserID)
	if err == nil {
		p.DispensaryAccountID = existing.DispensaryAccountID
		p.DispensaryURL = existing.DispensaryURL
	}

	return s.repo.Upsert(ctx, p)
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}

// LinkDispensary provisions an affiliate account and stores the linkage on
// the profile. Provisioning fires once; on failure the profile stays
// unlinked and the user can try again.
func (s *Service) LinkDispensary(ctx context.Context, userID, accountType string) (*Profile, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.HasDispensaryAccess {
		return p, nil
	}

	account, err := s.provisioner.Provision(ctx, dispensary.ProvisionRequest{
		UserID:      p.UserID,
		Email:       p.Email,
		FullName:    p.FullName,
		AccountType: accountType,
	})
	if err != nil {
		return nil, fmt.Errorf("provision dispensary account: %w", err)
	}

	p.DispensaryAccountID = &account.ID
	p.DispensaryURL = &account.DispensaryURL
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AnalysisProfile maps the stored profile to the analysis request shape.
// Users who have not opted in to analysis context sharing get an empty
// profile, and so does a user with no profile row yet.
func (s *Service) AnalysisProfile(ctx context.Context, userID string) (analysis.ProfileInput, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return analysis.ProfileInput{}, nil
	}
	if !p.ConsentAnalysis {
		return analysis.ProfileInput{}, nil
	}
	return analysis.ProfileInput{
		Age:         p.Age,
		Sex:         p.Sex,
		HeightCM:    p.HeightCM,
		WeightKG:    p.WeightKG,
		Conditions:  p.Conditions,
		Medications: p.Medications,
		Goals:       p.Goals,
	}, nil
}
