package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ticketdawg/checkin/pkg/domain"
)

// Client is the ticket API client.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a new API client. baseURL includes the /api prefix.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// --- Auth ---

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	var res domain.LoginResult
	if err := c.post(ctx, "/auth/login", domain.Credentials{Username: username, Password: password}, &res); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &res, nil
}

// GetProfile returns the authenticated user.
func (c *Client) GetProfile(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "/auth/me", &u); err != nil {
		return nil, fmt.Errorf("client.GetProfile: %w", err)
	}
	return &u, nil
}

// ListUsers returns every staff account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var res struct {
		Users []domain.User `json:"users"`
	}
	if err := c.get(ctx, "/auth/users", &res); err != nil {
		return nil, fmt.Errorf("client.ListUsers: %w", err)
	}
	return res.Users, nil
}

// CreateUser registers a new staff account. Admin only.
func (c *Client) CreateUser(ctx context.Context, u domain.NewUser) (*domain.User, error) {
	var created domain.User
	if err := c.post(ctx, "/auth/register", u, &created); err != nil {
		return nil, fmt.Errorf("client.CreateUser: %w", err)
	}
	return &created, nil
}

// DeleteUser removes a staff account. Admin only.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/auth/users/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteUser: %w", err)
	}
	return nil
}

// --- Tickets ---

// TicketStats returns global counters and, for issuers, personal ones.
func (c *Client) TicketStats(ctx context.Context) (*domain.TicketStats, error) {
	var stats domain.TicketStats
	if err := c.get(ctx, "/tickets/stats", &stats); err != nil {
		return nil, fmt.Errorf("client.TicketStats: %w", err)
	}
	return &stats, nil
}

// AssignTicket assigns the next free ticket to email.
func (c *Client) AssignTicket(ctx context.Context, email string) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := c.post(ctx, "/tickets/assign", map[string]string{"email": email}, &t); err != nil {
		return nil, fmt.Errorf("client.AssignTicket: %w", err)
	}
	return &t, nil
}

// ValidateTicket marks the ticket encoded in qrCode as used.
// Rejections come back as *HTTPError with the API's reason as Message.
func (c *Client) ValidateTicket(ctx context.Context, qrCode string) (*domain.ValidationResult, error) {
	var res domain.ValidationResult
	if err := c.post(ctx, "/tickets/validate", map[string]string{"qrCode": qrCode}, &res); err != nil {
		return nil, fmt.Errorf("client.ValidateTicket: %w", err)
	}
	return &res, nil
}

// ListTickets fetches tickets matching f.
func (c *Client) ListTickets(ctx context.Context, f domain.TicketFilter) ([]domain.Ticket, error) {
	params := url.Values{}
	if f.Status != "" {
		params.Set("status", f.Status)
	}
	if f.Email != "" {
		params.Set("email", f.Email)
	}
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}
	path := "/tickets"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var res struct {
		Tickets []domain.Ticket `json:"tickets"`
	}
	if err := c.get(ctx, path, &res); err != nil {
		return nil, fmt.Errorf("client.ListTickets: %w", err)
	}
	return res.Tickets, nil
}

// SearchTickets finds tickets assigned to an email.
func (c *Client) SearchTickets(ctx context.Context, email string) ([]domain.Ticket, error) {
	params := url.Values{}
	params.Set("email", email)

	var res struct {
		Tickets []domain.Ticket `json:"tickets"`
	}
	if err := c.get(ctx, "/tickets/search?"+params.Encode(), &res); err != nil {
		return nil, fmt.Errorf("client.SearchTickets: %w", err)
	}
	return res.Tickets, nil
}

// InitializeTickets seeds the ticket pool. Admin only.
func (c *Client) InitializeTickets(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodPost, "/tickets/initialize", nil, nil); err != nil {
		return fmt.Errorf("client.InitializeTickets: %w", err)
	}
	return nil
}

// --- Activity ---

// ActivityLogs returns audit records matching f. Admin only.
func (c *Client) ActivityLogs(ctx context.Context, f domain.ActivityFilter) ([]domain.ActivityLog, error) {
	params := url.Values{}
	if f.Action != "" {
		params.Set("action", f.Action)
	}
	if !f.StartDate.IsZero() {
		params.Set("startDate", f.StartDate.Format("2006-01-02"))
	}
	if !f.EndDate.IsZero() {
		params.Set("endDate", f.EndDate.Format("2006-01-02"))
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))

	var res struct {
		Logs []domain.ActivityLog `json:"logs"`
	}
	if err := c.get(ctx, "/activity/logs?"+params.Encode(), &res); err != nil {
		return nil, fmt.Errorf("client.ActivityLogs: %w", err)
	}
	return res.Logs, nil
}

// SystemStats returns the activity breakdown and top users. Admin only.
func (c *Client) SystemStats(ctx context.Context) (*domain.SystemStats, error) {
	var stats domain.SystemStats
	if err := c.get(ctx, "/activity/stats", &stats); err != nil {
		return nil, fmt.Errorf("client.SystemStats: %w", err)
	}
	return &stats, nil
}

// envelope is the wrapper every API response uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max body
	if err != nil {
		if resp.StatusCode >= 400 {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", err)}
		}
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var env envelope
		if json.Unmarshal(respBody, &env) == nil && env.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: env.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success && env.Error != "" {
		return &HTTPError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
