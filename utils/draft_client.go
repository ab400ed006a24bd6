package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/config"
)

// DraftRequest carries the personalization inputs for a generated draft
type DraftRequest struct {
	ContactName      string   `json:"contact_name"`
	ContactTitle     string   `json:"contact_title,omitempty"`
	ContactSeniority string   `json:"contact_seniority,omitempty"`
	CompanyName      string   `json:"company_name"`
	CompanyIndustry  string   `json:"company_industry,omitempty"`
	Signals          []string `json:"signals,omitempty"`
	CRMStatuses      []string `json:"crm_statuses,omitempty"`
	ICPScore         int      `json:"icp_score,omitempty"`
	Channel          string   `json:"channel"`
	Tone             string   `json:"tone,omitempty"`
	Template         string   `json:"template,omitempty"`
}

// DraftResponse is the generation service's reply
type DraftResponse struct {
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// DraftGenerator produces message drafts for outreach steps
type DraftGenerator interface {
	Generate(ctx context.Context, req DraftRequest) (*DraftResponse, error)
}

// DraftClient calls the content-generation service over HTTP
type DraftClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewDraftClient(cfg config.DraftServiceConfig) *DraftClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &DraftClient{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (dc *DraftClient) Generate(ctx context.Context, req DraftRequest) (*DraftResponse, error) {
	if dc.BaseURL == "" {
		return nil, fmt.Errorf("draft service not configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, dc.BaseURL+"/v1/drafts", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if dc.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+dc.APIKey)
	}

	resp, err := dc.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("draft service returned status %d", resp.StatusCode)
	}

	var draft DraftResponse
	if err := json.NewDecoder(resp.Body).Decode(&draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft response: %w", err)
	}

	return &draft, nil
}
