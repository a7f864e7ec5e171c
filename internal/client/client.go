// Package client talks to the fintrack API on behalf of a terminal front
// end. It keeps the session cookie in a jar, tracks who is logged in and
// caches reference data for the life of a session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

// APIError is a non-2xx response. It unwraps to the matching core error
// kind so callers can use errors.Is(err, core.ErrNotFound).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return core.ErrValidation
	case http.StatusUnauthorized:
		return core.ErrUnauthenticated
	case http.StatusForbidden:
		return core.ErrForbidden
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusConflict:
		return core.ErrConflict
	default:
		return nil
	}
}

// Client is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its Jar is kept if set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API at baseURL, e.g. http://localhost:5000/api.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{base: u, http: &http.Client{Timeout: 15 * time.Second, Jar: jar}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	return c, nil
}

// Token returns the session token currently held in the jar.
func (c *Client) Token() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == auth.CookieName {
			return ck.Value
		}
	}
	return ""
}

// SetToken installs a previously saved session token.
func (c *Client) SetToken(token string) {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: auth.CookieName, Value: token, Path: "/"}})
}

// do sends body as JSON and decodes a 2xx response into out. A 401
// invalidates the session carried by ctx, if any.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&env) == nil && env.Message != "" {
			apiErr.Message = env.Message
		}
		if resp.StatusCode == http.StatusUnauthorized {
			if s := SessionFrom(ctx); s != nil {
				s.Invalidate()
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type userResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	User    core.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (core.User, error) {
	var resp userResponse
	err := c.do(ctx, http.MethodPost, "/users/new", nil,
		map[string]string{"name": name, "email": email, "password": password}, &resp)
	return resp.User, err
}

// Login returns the user and the server greeting.
func (c *Client) Login(ctx context.Context, email, password string) (core.User, string, error) {
	var resp userResponse
	err := c.do(ctx, http.MethodPost, "/users/login", nil,
		map[string]string{"email": email, "password": password}, &resp)
	return resp.User, resp.Message, err
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/users/logout", nil, nil, nil); err != nil {
		return err
	}
	if s := SessionFrom(ctx); s != nil {
		s.Invalidate()
	}
	return nil
}

func (c *Client) Me(ctx context.Context) (core.User, error) {
	var resp userResponse
	err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &resp)
	return resp.User, err
}

func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	err := c.do(ctx, http.MethodGet, "/data/categories", nil, nil, &out)
	return out, err
}

// Subcategories accepts a category id or name.
func (c *Client) Subcategories(ctx context.Context, category string) ([]core.Subcategory, error) {
	var out []core.Subcategory
	err := c.do(ctx, http.MethodGet, "/data/subcategories", url.Values{"category": {category}}, nil, &out)
	return out, err
}

func (c *Client) PaymentMethods(ctx context.Context) ([]core.PaymentMethod, error) {
	var out []core.PaymentMethod
	err := c.do(ctx, http.MethodGet, "/data/payment-methods", nil, nil, &out)
	return out, err
}

// ListTransactions returns the caller's rows matching f, newest first.
func (c *Client) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.TransactionView, error) {
	var resp struct {
		Transactions      []core.TransactionView `json:"transactions"`
		TotalTransactions int                    `json:"totalTransactions"`
	}
	if err := c.do(ctx, http.MethodGet, "/transactions", FilterQuery(f), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) AddTransaction(ctx context.Context, in core.TransactionInput) (core.TransactionView, error) {
	var out core.TransactionView
	err := c.do(ctx, http.MethodPost, "/transactions/add", nil, in, &out)
	return out, err
}

// Update lists the fields of a partial update. Nil pointers are omitted;
// ClearDescription sends an explicit null.
type Update struct {
	Type             *core.TransactionType
	Amount           *string
	CategoryID       *string
	SubcategoryID    *string
	PaymentMethod    *string
	Date             *core.Date
	Description      *string
	ClearDescription bool
}

func (u Update) body() map[string]any {
	m := make(map[string]any)
	if u.Type != nil {
		m["type"] = *u.Type
	}
	if u.Amount != nil {
		m["amount"] = *u.Amount
	}
	if u.CategoryID != nil {
		m["categoryId"] = *u.CategoryID
	}
	if u.SubcategoryID != nil {
		m["subcategoryId"] = *u.SubcategoryID
	}
	if u.PaymentMethod != nil {
		m["paymentMethod"] = *u.PaymentMethod
	}
	if u.Date != nil {
		m["date"] = *u.Date
	}
	if u.Description != nil {
		m["description"] = *u.Description
	}
	if u.ClearDescription {
		m["description"] = nil
	}
	return m
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, u Update) (core.TransactionView, error) {
	if id == "" {
		return core.TransactionView{}, errors.New("transaction id is required")
	}
	var out core.TransactionView
	err := c.do(ctx, http.MethodPut, "/transactions/"+url.PathEscape(id), nil, u.body(), &out)
	return out, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("transaction id is required")
	}
	return c.do(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil, nil)
}

// FilterQuery encodes f as list query parameters. Zero fields are omitted.
func FilterQuery(f core.TransactionFilter) url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("type", f.Type.String())
	set("categoryId", f.CategoryID)
	set("subcategoryId", f.SubcategoryID)
	set("paymentMethod", f.PaymentMethod)
	set("search", f.Search)
	if f.StartDate != nil {
		set("startDate", f.StartDate.String())
	}
	if f.EndDate != nil {
		set("endDate", f.EndDate.String())
	}
	return q
}
