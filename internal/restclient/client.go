// Package restclient talks to the hosted backend's PostgREST and auth
// endpoints. The same client serves the emulated backend when its
// http.Client carries the emulator transport.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"peritagem/internal/model"
	"peritagem/internal/repository"
)

const peritagensPath = "/rest/v1/peritagens"

// APIError is a non-2xx reply from the backend
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Session is the auth reply of a password sign-in
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// Client is a minimal PostgREST client bound to one project URL
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     *zap.Logger

	mu      sync.RWMutex
	session *Session
}

// New returns a client for baseURL. A nil httpClient gets a 15s timeout client.
func New(baseURL, anonKey string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    httpClient,
		log:     log,
	}
}

// HTTPClient exposes the underlying client so a transport can be installed on it
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

var _ repository.PeritagemRepository = (*Client)(nil)

// SignIn exchanges email and password for a session used on later calls
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, nil, &s); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	c.mu.Lock()
	c.session = &s
	c.mu.Unlock()
	return &s, nil
}

// UserID returns the signed-in user id, if any
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.User.ID
}

// FirstProfileID returns the id of any existing profile
func (c *Client) FirstProfileID(ctx context.Context) (string, bool, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/v1/profiles?select=id&limit=1", nil, nil, &rows); err != nil {
		return "", false, err
	}
	if len(rows) == 0 || rows[0].ID == "" {
		return "", false, nil
	}
	return rows[0].ID, true, nil
}

// InvokeFunction calls a serverless function with a JSON body
func (c *Client) InvokeFunction(ctx context.Context, name string, body any) error {
	return c.do(ctx, http.MethodPost, "/functions/v1/"+url.PathEscape(name), body, nil, nil)
}

func (c *Client) Create(ctx context.Context, p *model.Peritagem) error {
	var rows []model.Peritagem
	if err := c.do(ctx, http.MethodPost, peritagensPath, []model.Peritagem{*p}, representation(), &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("insert returned no rows")
	}
	*p = rows[0]
	return nil
}

func (c *Client) CreateBatch(ctx context.Context, ps []model.Peritagem) error {
	if len(ps) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, peritagensPath, ps, http.Header{"Prefer": {"return=minimal"}}, nil)
}

func (c *Client) List(ctx context.Context, f repository.PeritagemFilter) ([]model.Peritagem, error) {
	q := url.Values{}
	q.Set("select", "*")
	switch len(f.Stages) {
	case 0:
	case 1:
		q.Set("status", "eq."+f.Stages[0].Label())
	default:
		labels := make([]string, len(f.Stages))
		for i, s := range f.Stages {
			labels[i] = `"` + s.Label() + `"`
		}
		q.Set("status", "in.("+strings.Join(labels, ",")+")")
	}
	if f.NewestFirst {
		q.Set("order", "created_at.desc")
	} else {
		q.Set("order", "created_at.asc")
	}

	var rows []model.Peritagem
	if err := c.do(ctx, http.MethodGet, peritagensPath+"?"+q.Encode(), nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetByID(ctx context.Context, id string) (*model.Peritagem, error) {
	var rows []model.Peritagem
	if err := c.do(ctx, http.MethodGet, peritagensPath+"?select=*&"+idFilter(id), nil, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("peritagem %s: %w", id, repository.ErrNotFound)
	}
	return &rows[0], nil
}

func (c *Client) Update(ctx context.Context, id string, patch model.PeritagemPatch) (*model.Peritagem, error) {
	body, err := patchBody(patch)
	if err != nil {
		return nil, err
	}
	var rows []model.Peritagem
	if err := c.do(ctx, http.MethodPatch, peritagensPath+"?"+idFilter(id), body, representation(), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("peritagem %s: %w", id, repository.ErrNotFound)
	}
	return &rows[0], nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	var rows []json.RawMessage
	status, err := c.doStatus(ctx, http.MethodDelete, peritagensPath+"?"+idFilter(id), nil, representation(), &rows)
	if err != nil {
		return err
	}
	// 204 carries no representation; only an explicit empty list proves absence
	if status == http.StatusOK && len(rows) == 0 {
		return fmt.Errorf("peritagem %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// patchBody writes status and stage_index together whenever the stage changes
func patchBody(p model.PeritagemPatch) (map[string]any, error) {
	body := map[string]any{"updated_at": time.Now().UTC().Format(time.RFC3339Nano)}
	if p.Header != nil {
		b, err := json.Marshal(p.Header)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			body[k] = v
		}
	}
	if p.Stage != nil {
		body["status"] = p.Stage.Label()
		body["stage_index"] = int(*p.Stage)
	}
	if p.Items != nil {
		body["items"] = p.Items
	}
	if p.Revision != nil {
		body["revision"] = *p.Revision
	}
	return body, nil
}

func idFilter(id string) string {
	return "id=" + url.QueryEscape("eq."+id)
}

func representation() http.Header {
	return http.Header{"Prefer": {"return=representation"}}
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	_, err := c.doStatus(ctx, method, path, body, header, out)
	return err
}

func (c *Client) doStatus(ctx context.Context, method, path string, body any, header http.Header, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		}
		c.log.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return resp.StatusCode, apiErr
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.anonKey
}
