// Package dispensary provisions affiliate accounts with the external
// supplement dispensary. A provisioned account gives the user a
// personalized storefront URL with the portal's discount applied.
package dispensary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Account types recognized by the dispensary platform.
const (
	AccountTypePatient      = "patient"
	AccountTypePractitioner = "practitioner"
)

// ProvisionRequest creates or links a dispensary account for a portal user.
type ProvisionRequest struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	AccountType string `json:"account_type"`
}

// Account is the dispensary's record for a provisioned user.
type Account struct {
	ID            string `json:"id"`
	DispensaryURL string `json:"dispensary_url"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Provision creates the dispensary account. Called once when the user opts
// in; an error leaves the profile unlinked and the user can try again.
func (c *Client) Provision(ctx context.Context, req ProvisionRequest) (*Account, error) {
	if req.AccountType == "" {
		req.AccountType = AccountTypePatient
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal provision request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/accounts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build provision request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call dispensary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("dispensary returned %d: %s", resp.StatusCode, msg)
	}

	var account Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("decode dispensary account: %w", err)
	}
	if account.ID == "" {
		return nil, fmt.Errorf("dispensary returned no account id")
	}
	return &account, nil
}
