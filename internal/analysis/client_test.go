package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnalyzeSuccess(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var err error
		if gotBody, err = io.ReadAll(r.Body); err != nil {
			t.Errorf("read request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"completed","analysis":{"summary":"LDL elevated","recommendations":["omega-3"]}}`))
	}))
	defer srv.Close()

	refHigh := 130.0
	c := NewClient(srv.URL, "test-key")
	result, err := c.Analyze(context.Background(), Request{
		ReportID: "report-1",
		Profile:  ProfileInput{Age: 42, Sex: "female", Goals: []string{"energy"}},
		Observations: []Observation{
			{Name: "LDL", Value: 160, Units: "mg/dL", RefHigh: &refHigh},
		},
		FunctionalRanges: map[string]FunctionalRange{
			"LDL": {Low: 0, High: 100},
		},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	var gotReq Request
	if err := json.Unmarshal(gotBody, &gotReq); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if gotReq.ReportID != "report-1" || len(gotReq.Observations) != 1 {
		t.Errorf("request = %+v", gotReq)
	}
	// The serialized field names are the service's contract, so assert the
	// raw keys, not just the round trip.
	for _, key := range []string{`"ref_high":130`, `"functional_ranges"`, `"observations"`} {
		if !strings.Contains(string(gotBody), key) {
			t.Errorf("request body missing %s: %s", key, gotBody)
		}
	}
	if strings.Contains(string(gotBody), "ref_low") {
		t.Errorf("absent ref_low should be omitted: %s", gotBody)
	}
	if result.Status != "completed" {
		t.Errorf("status = %q", result.Status)
	}
	if !strings.Contains(string(result.Analysis), "LDL elevated") {
		t.Errorf("analysis payload = %s", result.Analysis)
	}
}

func TestAnalyzeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	_, err := c.Analyze(context.Background(), Request{ReportID: "report-1"})
	if err == nil {
		t.Fatal("expected error on 503")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %v", err)
	}
}

func TestAnalyzeContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, "test-key")
	if _, err := c.Analyze(ctx, Request{ReportID: "report-1"}); err == nil {
		t.Fatal("expected context error")
	}
}
