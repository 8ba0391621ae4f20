package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type CRMClient struct {
	oauthToken string
	baseURL    string
	httpClient *http.Client
}

// Lead is a record in the Zoho CRM Leads module.
type Lead struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"Email"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Phone       string `json:"Phone,omitempty"`
	Company     string `json:"Company"`
	Industry    string `json:"Industry,omitempty"`
	Revenue     string `json:"Annual_Revenue_Band,omitempty"`
	Description string `json:"Description,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(baseURL, oauthToken string) *CRMClient {
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateLead inserts a lead and returns its CRM id.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	return c.write(ctx, http.MethodPost, fmt.Sprintf("%s/Leads", c.baseURL), lead)
}

// UpdateLead overwrites the fields of an existing lead.
func (c *CRMClient) UpdateLead(ctx context.Context, leadID string, lead *Lead) error {
	_, err := c.write(ctx, http.MethodPut, fmt.Sprintf("%s/Leads/%s", c.baseURL, leadID), lead)
	return err
}

// SearchLeads finds leads by email. Zoho answers 204 when nothing matches.
func (c *CRMClient) SearchLeads(ctx context.Context, email string) ([]Lead, error) {
	endpoint := fmt.Sprintf("%s/Leads/search?email=%s", c.baseURL, url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to search leads (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []Lead `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Data, nil
}

// UpsertLead updates the first lead with the same email or creates a new one.
func (c *CRMClient) UpsertLead(ctx context.Context, lead *Lead) (string, error) {
	existing, err := c.SearchLeads(ctx, lead.Email)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 && existing[0].ID != "" {
		if err := c.UpdateLead(ctx, existing[0].ID, lead); err != nil {
			return "", err
		}
		return existing[0].ID, nil
	}
	return c.CreateLead(ctx, lead)
}

func (c *CRMClient) write(ctx context.Context, method, endpoint string, lead *Lead) (string, error) {
	jsonData, err := json.Marshal(map[string]interface{}{"data": []Lead{*lead}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to write lead (status %d): %s", resp.StatusCode, string(body))
	}

	var out upsertResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if out.Data[0].Status != "success" {
		return "", fmt.Errorf("lead write failed: %s", out.Data[0].Message)
	}

	return out.Data[0].Details.ID, nil
}
