package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CRMAccount is the subset of a CRM account the engine reads
type CRMAccount struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// CRMActivity is one logged touch-point mirrored into the CRM
type CRMActivity struct {
	ExternalID string `json:"external_id,omitempty"`
	Title      string `json:"title"`
	Notes      string `json:"notes,omitempty"`
	TargetID   string `json:"target_id"`
}

// CRMService is the CRM API surface the engine consumes
type CRMService interface {
	FindAccount(ctx context.Context, domain string) (*CRMAccount, error)
	CreateActivity(ctx context.Context, activity CRMActivity) error
}

// CRMClient talks to the CRM REST API
type CRMClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewCRMClient(baseURL, apiKey string) *CRMClient {
	return &CRMClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FindAccount looks up a CRM account by company domain. A missing
// account is (nil, nil), not an error.
func (cc *CRMClient) FindAccount(ctx context.Context, domain string) (*CRMAccount, error) {
	if cc.BaseURL == "" {
		return nil, fmt.Errorf("CRM integration not configured")
	}

	endpoint := fmt.Sprintf("%s/v1/accounts?domain=%s", cc.BaseURL, url.QueryEscape(domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cc.APIKey)

	resp, err := cc.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CRM account lookup returned status %d", resp.StatusCode)
	}

	var account CRMAccount
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, err
	}
	if account.ID == "" {
		return nil, nil
	}

	return &account, nil
}

func (cc *CRMClient) CreateActivity(ctx context.Context, activity CRMActivity) error {
	if cc.BaseURL == "" {
		return fmt.Errorf("CRM integration not configured")
	}

	payload, err := json.Marshal(activity)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cc.BaseURL+"/v1/activities", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cc.APIKey)

	resp, err := cc.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("CRM activity creation returned status %d", resp.StatusCode)
	}

	return nil
}

// BuildContactLink builds a deep link into the caller's CRM for a
// contact. Falls back to a search link when the contact has no CRM id,
// and to empty when the caller has no CRM domain configured.
func BuildContactLink(crmDomain, contactCRMID, contactName, companyDomain string) string {
	if crmDomain == "" {
		return ""
	}
	if contactCRMID != "" {
		return fmt.Sprintf("https://%s/contacts/%s", crmDomain, contactCRMID)
	}
	query := contactName
	if query == "" {
		query = companyDomain
	}
	if query == "" {
		return ""
	}
	return fmt.Sprintf("https://%s/search?q=%s", crmDomain, url.QueryEscape(query))
}
