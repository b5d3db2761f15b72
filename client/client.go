package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"portfoliolab/internal/analytics"
	"portfoliolab/internal/store"
)

const defaultTimeout = 30 * time.Second

// Client is a typed consumer of the portfolio API. It owns a cookie jar for
// the session cookie and a SessionStore for the authenticated identity; the
// server remains the sole authority on session validity.
type Client struct {
	baseURL string
	http    *http.Client
	Session *SessionStore
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The replacement should
// carry a cookie jar or every authenticated call will 401.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New builds a client against the given base URL, e.g. "http://localhost:5000".
func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
		Session: NewSessionStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PortfolioSnapshot pairs the raw holdings with the server-computed aggregate.
type PortfolioSnapshot struct {
	StocksList    []store.Holding      `json:"stocks_list"`
	PortfolioData *analytics.Aggregate `json:"portfolio_data"`
}

// HoldingRequest is the body for add and update calls.
type HoldingRequest struct {
	StockSymbol   string  `json:"stock_symbol,omitempty"`
	Quantity      int     `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	Date          string  `json:"date"`
}

// APIError is a non-2xx response decoded into its message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		message := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			if payload.Error != "" {
				message = payload.Error
			} else if payload.Message != "" {
				message = payload.Message
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Register creates an account. It never touches the session store.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/register", body, nil)
}

// Login authenticates and records the identity the server returned. A
// rejected login leaves the session store untouched.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", body, &resp); err != nil {
		return err
	}
	c.Session.Login(resp.Username)
	return nil
}

// Logout ends the session server-side and clears the local identity.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/logout", nil, nil); err != nil {
		return err
	}
	c.Session.Clear()
	return nil
}

// CurrentUser asks the server who the session belongs to.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var resp struct {
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodGet, "/current_user", nil, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

// Stocks lists every known ticker symbol.
func (c *Client) Stocks(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := c.do(ctx, http.MethodGet, "/stocks", nil, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// Portfolio fetches the holdings and aggregate in one round trip.
func (c *Client) Portfolio(ctx context.Context) (*PortfolioSnapshot, error) {
	var snapshot PortfolioSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/portfolio", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// AddHolding creates a holding and returns the server's copy of it.
func (c *Client) AddHolding(ctx context.Context, req HoldingRequest) (store.Holding, error) {
	var resp struct {
		NewStock store.Holding `json:"new_stock"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/portfolio/add", req, &resp); err != nil {
		return store.Holding{}, err
	}
	return resp.NewStock, nil
}

// UpdateHolding overwrites the editable fields of a holding.
func (c *Client) UpdateHolding(ctx context.Context, id int, req HoldingRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/portfolio/update/%d", id), req, nil)
}

// DeleteHolding removes a holding by id.
func (c *Client) DeleteHolding(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/portfolio/delete/%d", id), nil, nil)
}
