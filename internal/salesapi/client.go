package salesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBodyLen = 4 * 1024

// Client talks to the remote sales-reporting API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the API at baseURL.
// If timeout is 0, defaults to 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, loginID, password string) (string, error) {
	body, err := json.Marshal(loginRequest{
		UserLoginID:       loginID,
		UserLoginPassword: password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login_user", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed: %s", statusDetail(resp))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("failed to parse login response: %w", err)
	}
	if lr.Token == "" {
		return "", fmt.Errorf("login response contained no token")
	}
	return lr.Token, nil
}

// UsersReport fetches the per-user sales report for the given time window.
// FilterCustom requires both startDate and endDate; other filters ignore them.
func (c *Client) UsersReport(ctx context.Context, token string, filter Filter, startDate, endDate string) ([]UserReport, error) {
	endpoint := c.baseURL + "/api/sales/sales_users_report_list"

	switch filter {
	case FilterNone:
	case FilterToday, FilterWeek, FilterMonth, FilterQuarter:
		q := url.Values{}
		q.Set("filter", string(filter))
		endpoint += "?" + q.Encode()
	case FilterCustom:
		if startDate == "" || endDate == "" {
			return nil, fmt.Errorf("custom filter requires both start and end dates")
		}
		q := url.Values{}
		q.Set("filter", string(filter))
		q.Set("start_date", startDate)
		q.Set("end_date", endDate)
		endpoint += "?" + q.Encode()
	default:
		return nil, fmt.Errorf("unknown filter %q", filter)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create report request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("report request failed: %s", statusDetail(resp))
	}

	var rr reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("failed to parse report response: %w", err)
	}
	return rr.Data, nil
}

// statusDetail summarizes a non-2xx response for error messages.
func statusDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, detail)
}
