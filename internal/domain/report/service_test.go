package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/labguide/labguide/internal/analysis"
	"github.com/labguide/labguide/internal/platform/blobstore"
)

type mockRepo struct {
	reports map[uuid.UUID]*Report
}

func newMockRepo() *mockRepo {
	return &mockRepo{reports: make(map[uuid.UUID]*Report)}
}

func (m *mockRepo) Create(_ context.Context, r *Report) error {
	r.ID = uuid.New()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, r *Report) error {
	if _, ok := m.reports[r.ID]; !ok {
		return ErrNotFound
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.reports[id]; !ok {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*Report, int, error) {
	var out []*Report
	for _, r := range m.reports {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

type mockAnalyzer struct {
	result *analysis.Result
	err    error
	gotReq analysis.Request
}

func (m *mockAnalyzer) Analyze(_ context.Context, req analysis.Request) (*analysis.Result, error) {
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockProfiles struct {
	profile analysis.ProfileInput
}

func (m *mockProfiles) AnalysisProfile(_ context.Context, _ string) (analysis.ProfileInput, error) {
	return m.profile, nil
}

func newTestService(an *mockAnalyzer) (*Service, *mockRepo) {
	repo := newMockRepo()
	blobs := blobstore.NewInMemoryBlobStore(1 << 20)
	profiles := &mockProfiles{profile: analysis.ProfileInput{Age: 42, Sex: "female"}}
	return NewService(repo, blobs, an, profiles, nil), repo
}

func pdfUpload(userID string) UploadInput {
	return UploadInput{
		UserID:      userID,
		FileName:    "panel.pdf",
		ContentType: "application/pdf",
		Content:     strings.NewReader("report body"),
	}
}

func TestUploadCompletes(t *testing.T) {
	an := &mockAnalyzer{result: &analysis.Result{
		Status:   "completed",
		Analysis: []byte(`{"summary":"all markers in range"}`),
	}}
	svc, repo := newTestService(an)

	rep, err := svc.Upload(context.Background(), pdfUpload("user-1"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if rep.Status != StatusCompleted {
		t.Errorf("status = %q", rep.Status)
	}
	if !strings.Contains(string(rep.Analysis), "all markers in range") {
		t.Errorf("analysis = %s", rep.Analysis)
	}
	if an.gotReq.ReportID != rep.ID.String() {
		t.Errorf("analyzer got report id %q", an.gotReq.ReportID)
	}
	if an.gotReq.Profile.Age != 42 {
		t.Errorf("analyzer got profile %+v", an.gotReq.Profile)
	}

	stored, err := repo.GetByID(context.Background(), rep.ID)
	if err != nil {
		t.Fatalf("stored report: %v", err)
	}
	if stored.Status != StatusCompleted {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestUploadAnalysisFailureIsTerminal(t *testing.T) {
	an := &mockAnalyzer{err: fmt.Errorf("model overloaded")}
	svc, repo := newTestService(an)

	rep, err := svc.Upload(context.Background(), pdfUpload("user-1"))
	if err == nil {
		t.Fatal("expected error")
	}
	if rep == nil || rep.Status != StatusFailed {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Error == nil || !strings.Contains(*rep.Error, "model overloaded") {
		t.Errorf("error = %v", rep.Error)
	}

	stored, _ := repo.GetByID(context.Background(), rep.ID)
	if stored.Status != StatusFailed {
		t.Errorf("stored status = %q", stored.Status)
	}
	if !stored.Terminal() {
		t.Error("failed report should be terminal")
	}
}

func TestUploadRejectsBadContentType(t *testing.T) {
	svc, repo := newTestService(&mockAnalyzer{})

	in := pdfUpload("user-1")
	in.ContentType = "application/zip"
	_, err := svc.Upload(context.Background(), in)
	if !errors.Is(err, blobstore.ErrInvalidContentType) {
		t.Fatalf("got %v", err)
	}
	if len(repo.reports) != 0 {
		t.Error("no report row should exist after rejected upload")
	}
}

func TestUploadRejectsIncompleteAnalysis(t *testing.T) {
	an := &mockAnalyzer{result: &analysis.Result{Status: "partial", Analysis: []byte(`{}`)}}
	svc, _ := newTestService(an)

	rep, err := svc.Upload(context.Background(), pdfUpload("user-1"))
	if err == nil {
		t.Fatal("expected error for non-completed status")
	}
	if rep.Status != StatusFailed {
		t.Errorf("status = %q", rep.Status)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	an := &mockAnalyzer{result: &analysis.Result{Status: "completed", Analysis: []byte(`{}`)}}
	svc, _ := newTestService(an)

	rep, err := svc.Upload(context.Background(), pdfUpload("user-1"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := svc.Get(context.Background(), rep.ID, "user-2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("other user: got %v", err)
	}
	if _, err := svc.Get(context.Background(), rep.ID, "user-1"); err != nil {
		t.Errorf("owner: got %v", err)
	}
}

func TestDeleteOwnerOnly(t *testing.T) {
	an := &mockAnalyzer{result: &analysis.Result{Status: "completed", Analysis: []byte(`{}`)}}
	svc, repo := newTestService(an)

	rep, err := svc.Upload(context.Background(), pdfUpload("user-1"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(context.Background(), rep.ID, "user-2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("other user delete: got %v", err)
	}
	if err := svc.Delete(context.Background(), rep.ID, "user-1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), rep.ID); !errors.Is(err, ErrNotFound) {
		t.Error("report still exists after delete")
	}
}

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
		{"bogus", StatusPending, false},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s -> %s: expected error", tc.from, tc.to)
		}
	}
}

func TestParseObservations(t *testing.T) {
	obs, err := ParseObservations(`[{"name":"LDL","value":160,"units":"mg/dL"}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(obs) != 1 || obs[0].Name != "LDL" {
		t.Errorf("obs = %+v", obs)
	}

	if obs, err := ParseObservations(""); err != nil || obs != nil {
		t.Errorf("empty input: obs=%v err=%v", obs, err)
	}
	if _, err := ParseObservations("{not json"); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestParseFunctionalRanges(t *testing.T) {
	ranges, err := ParseFunctionalRanges(`{"LDL":{"low":0,"high":100}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fr, ok := ranges["LDL"]; !ok || fr.High != 100 {
		t.Errorf("ranges = %+v", ranges)
	}

	if ranges, err := ParseFunctionalRanges(""); err != nil || ranges != nil {
		t.Errorf("empty input: ranges=%v err=%v", ranges, err)
	}
	if _, err := ParseFunctionalRanges("[]"); err == nil {
		t.Error("expected error for non-object payload")
	}
	if _, err := ParseFunctionalRanges(`{"LDL":{"low":200,"high":100}}`); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestUploadForwardsObservationsAndRanges(t *testing.T) {
	an := &mockAnalyzer{result: &analysis.Result{
		Status:   "completed",
		Analysis: []byte(`{"summary":"ok"}`),
	}}
	svc, _ := newTestService(an)

	refHigh := 130.0
	in := pdfUpload("user-1")
	in.Observations = []analysis.Observation{
		{Name: "LDL", Value: 160, Units: "mg/dL", RefHigh: &refHigh},
	}
	in.FunctionalRanges = map[string]analysis.FunctionalRange{
		"LDL": {Low: 0, High: 100},
	}

	if _, err := svc.Upload(context.Background(), in); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if len(an.gotReq.Observations) != 1 {
		t.Fatalf("analyzer got observations %+v", an.gotReq.Observations)
	}
	obs := an.gotReq.Observations[0]
	if obs.RefHigh == nil || *obs.RefHigh != 130 || obs.RefLow != nil {
		t.Errorf("analyzer got reference bounds low=%v high=%v", obs.RefLow, obs.RefHigh)
	}
	if fr, ok := an.gotReq.FunctionalRanges["LDL"]; !ok || fr.High != 100 {
		t.Errorf("analyzer got functional ranges %+v", an.gotReq.FunctionalRanges)
	}
}
