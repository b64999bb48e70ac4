// Package analysis calls the external LLM completion service that turns an
// uploaded lab report into a narrative analysis with supplement
// recommendations.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProfileInput is the patient context sent alongside the report
// observations. Only fields the user has filled in are serialized.
type ProfileInput struct {
	Age         int      `json:"age,omitempty"`
	Sex         string   `json:"sex,omitempty"`
	HeightCM    float64  `json:"height_cm,omitempty"`
	WeightKG    float64  `json:"weight_kg,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
	Medications []string `json:"medications,omitempty"`
	Goals       []string `json:"goals,omitempty"`
}

// Observation is a single extracted lab value. RefLow and RefHigh are the
// lab's own reference bounds; either may be absent for one-sided ranges.
type Observation struct {
	Name        string    `json:"name"`
	Value       float64   `json:"value"`
	Units       string    `json:"units"`
	RefLow      *float64  `json:"ref_low,omitempty"`
	RefHigh     *float64  `json:"ref_high,omitempty"`
	CollectedAt time.Time `json:"collected_at,omitempty"`
	Lab         string    `json:"lab,omitempty"`
}

// FunctionalRange narrows a standard reference range to an optimal band.
type FunctionalRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Request is the analysis payload for one report.
type Request struct {
	ReportID         string                     `json:"report_id"`
	Profile          ProfileInput               `json:"profile"`
	Observations     []Observation              `json:"observations"`
	FunctionalRanges map[string]FunctionalRange `json:"functional_ranges,omitempty"`
}

// Result is the service's response: a status flag plus a payload that mixes
// narrative text with structured sections, kept opaque as raw JSON.
type Result struct {
	Status   string          `json:"status"`
	Analysis json.RawMessage `json:"analysis"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client for the analysis service. The timeout is
// generous because a completion over a full panel can take tens of seconds.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 90 * time.Second},
	}
}

// Analyze submits a report for analysis. The call is made once; the caller
// moves the report to its failed state on error rather than retrying.
func (c *Client) Analyze(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call analysis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, msg)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	return &result, nil
}
