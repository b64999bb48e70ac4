package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/labguide/labguide/internal/analysis"
	"github.com/labguide/labguide/internal/platform/blobstore"
)

// Analyzer is the slice of the analysis client the service needs.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// ProfileSource supplies the patient context for the analysis request. The
// profile domain implements it; a report can still be analyzed when the
// user has no profile yet.
type ProfileSource interface {
	AnalysisProfile(ctx context.Context, userID string) (analysis.ProfileInput, error)
}

// Recorder is the slice of the telemetry package the service needs.
type Recorder interface {
	ReportUploaded(clinicSlug string)
	AnalysisCompleted()
	AnalysisFailed()
}

type Service struct {
	repo     Repository
	blobs    blobstore.BlobStore
	analyzer Analyzer
	profiles ProfileSource
	metrics  Recorder
}

func NewService(repo Repository, blobs blobstore.BlobStore, analyzer Analyzer, profiles ProfileSource, metrics Recorder) *Service {
	return &Service{repo: repo, blobs: blobs, analyzer: analyzer, profiles: profiles, metrics: metrics}
}

// UploadInput carries everything the upload workflow needs. Observations
// are optional; CSV exports arrive pre-parsed from the caller while
// scanned documents are extracted by the analysis service itself.
type UploadInput struct {
	UserID           string
	ClinicID         *uuid.UUID
	ClinicSlug       string
	FileName         string
	ContentType      string
	Content          io.Reader
	Observations     []analysis.Observation
	FunctionalRanges map[string]analysis.FunctionalRange
}

// Upload stores the file, creates the report row, and runs the analysis to
// a terminal state. The analysis call fires once: a remote failure moves
// the report to failed and the error is returned to the caller.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Report, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	blob, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    in.FileName,
		ContentType: in.ContentType,
		OwnerID:     in.UserID,
	}, in.Content)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		UserID:   in.UserID,
		ClinicID: in.ClinicID,
		BlobID:   blob.ID,
		FileName: blob.FileName,
		Status:   StatusPending,
	}
	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ReportUploaded(in.ClinicSlug)
	}

	if err := s.transition(ctx, rep, StatusProcessing); err != nil {
		return nil, err
	}

	result, err := s.analyze(ctx, rep, in.Observations, in.FunctionalRanges)
	if err != nil {
		msg := err.Error()
		rep.Error = &msg
		if terr := s.transition(ctx, rep, StatusFailed); terr != nil {
			return nil, terr
		}
		if s.metrics != nil {
			s.metrics.AnalysisFailed()
		}
		return rep, fmt.Errorf("analysis failed: %w", err)
	}

	rep.Analysis = result.Analysis
	if err := s.transition(ctx, rep, StatusCompleted); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AnalysisCompleted()
	}
	return rep, nil
}

func (s *Service) analyze(ctx context.Context, rep *Report, observations []analysis.Observation, ranges map[string]analysis.FunctionalRange) (*analysis.Result, error) {
	var profile analysis.ProfileInput
	if s.profiles != nil {
		p, err := s.profiles.AnalysisProfile(ctx, rep.UserID)
		if err == nil {
			profile = p
		}
	}

	result, err := s.analyzer.Analyze(ctx, analysis.Request{
		ReportID:         rep.ID.String(),
		Profile:          profile,
		Observations:     observations,
		FunctionalRanges: ranges,
	})
	if err != nil {
		return nil, err
	}
	if result.Status != "completed" {
		return nil, fmt.Errorf("analysis returned status %q", result.Status)
	}
	if len(result.Analysis) == 0 || string(result.Analysis) == "null" {
		return nil, fmt.Errorf("analysis returned empty payload")
	}
	return result, nil
}

func (s *Service) transition(ctx context.Context, rep *Report, to string) error {
	if err := ValidateTransition(rep.Status, to); err != nil {
		return err
	}
	rep.Status = to
	return s.repo.Update(ctx, rep)
}

// Get returns a report after checking ownership.
func (s *Service) Get(ctx context.Context, id uuid.UUID, userID string) (*Report, error) {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.UserID != userID {
		return nil, ErrForbidden
	}
	return rep, nil
}

// List returns the user's reports, newest first, plus the total count.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]*Report, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// DownloadFile streams the original uploaded file after an ownership check.
func (s *Service) DownloadFile(ctx context.Context, id uuid.UUID, userID string) (io.ReadCloser, *blobstore.BlobMetadata, error) {
	rep, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	return s.blobs.Download(ctx, rep.BlobID)
}

// Delete removes a report and its stored file. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	rep, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, rep.ID); err != nil {
		return err
	}
	// Blob cleanup is best effort; an orphaned blob is harmless.
	_ = s.blobs.Delete(ctx, rep.BlobID)
	return nil
}

// ParseObservations decodes the optional observations form field.
func ParseObservations(raw string) ([]analysis.Observation, error) {
	if raw == "" {
		return nil, nil
	}
	var obs []analysis.Observation
	if err := json.Unmarshal([]byte(raw), &obs); err != nil {
		return nil, fmt.Errorf("invalid observations payload: %w", err)
	}
	return obs, nil
}

// ParseFunctionalRanges decodes the optional functional_ranges form field,
// a map of marker name to optimal band.
func ParseFunctionalRanges(raw string) (map[string]analysis.FunctionalRange, error) {
	if raw == "" {
		return nil, nil
	}
	var ranges map[string]analysis.FunctionalRange
	if err := json.Unmarshal([]byte(raw), &ranges); err != nil {
		return nil, fmt.Errorf("invalid functional_ranges payload: %w", err)
	}
	for name, fr := range ranges {
		if fr.High != 0 && fr.Low > fr.High {
			return nil, fmt.Errorf("functional range for %q has low above high", name)
		}
	}
	return ranges, nil
}
