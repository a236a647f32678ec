// Package client is the typed remote data client for the roster proxy.
// Every method issues exactly one request and never retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// Compile-time interface check.
var _ types.PersonAPI = (*Client)(nil)

// Client talks to the proxy routes under a base URL such as
// http://127.0.0.1:8081/api.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the transport timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// New returns a Client for the proxy mounted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches every person. An empty body is an empty list. The response is
// not schema-checked beyond decoding.
func (c *Client) List(ctx context.Context) ([]types.Person, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/list", nil)
	if err != nil {
		return nil, &types.FetchError{Message: fmt.Sprintf("%s: %v", types.MsgFetchFailed, err)}
	}
	if !ok(status) {
		return nil, &types.FetchError{Status: status, Message: types.MsgFetchFailed}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return []types.Person{}, nil
	}
	var persons []types.Person
	if err := json.Unmarshal(body, &persons); err != nil {
		return nil, &types.FetchError{Status: status, Message: fmt.Sprintf("%s: decoding person list: %v", types.MsgFetchFailed, err)}
	}
	if persons == nil {
		persons = []types.Person{}
	}
	return persons, nil
}

// Create submits drafts as a batch and returns the response text.
func (c *Client) Create(ctx context.Context, drafts []types.PersonInput) (string, error) {
	return c.mutate(ctx, types.OpCreate, http.MethodPost, "/create", drafts)
}

// Update submits the identifier with the updatable fields and returns the
// response text.
func (c *Client) Update(ctx context.Context, id types.PersonID, in types.PersonInput) (string, error) {
	req := types.UpdateRequest{ID: id, Name: in.Name, Email: in.Email, Age: in.Age}
	return c.mutate(ctx, types.OpUpdate, http.MethodPut, "/update", req)
}

// Delete removes the person with the given ID. Any response body on success
// is discarded.
func (c *Client) Delete(ctx context.Context, id types.PersonID) error {
	_, err := c.mutate(ctx, types.OpDelete, http.MethodDelete, "/delete", types.DeleteRequest{ID: id})
	return err
}

func (c *Client) mutate(ctx context.Context, op, method, path string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding %s body: %w", op, err)
	}
	status, body, err := c.do(ctx, method, path, data)
	if err != nil {
		return "", &types.MutationError{Op: op, Message: err.Error()}
	}
	if !ok(status) {
		return "", &types.MutationError{Op: op, Status: status, Message: strings.TrimSpace(string(body))}
	}
	return string(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}
