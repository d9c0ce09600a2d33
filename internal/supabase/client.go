// Package supabase implements the persistence gateway and the session
// client against the Supabase-hosted remote store. The record store is
// reached over its PostgREST interface: two independently addressable
// collections, incomes and expenses, filtered by owner id.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/service"
)

// TokenSource supplies the bearer credential attached to every
// record-store request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken adapts a fixed credential into a TokenSource.
type StaticToken string

// Token returns the fixed credential.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", common.ErrNoIdentity
	}
	return string(t), nil
}

var _ service.Gateway = (*Client)(nil)

// Client is the persistence gateway. It is the only place in the
// application allowed to switch on a transaction's kind to pick a
// collection and payload shape.
type Client struct {
	baseURL    string
	anonKey    string
	tokens     TokenSource
	identity   service.IdentityProvider
	httpClient *http.Client
}

// NewClient creates a gateway client for the remote store at baseURL.
func NewClient(baseURL, anonKey string, tokens TokenSource, identity service.IdentityProvider) *Client {
	return &Client{
		baseURL:  baseURL,
		anonKey:  anonKey,
		tokens:   tokens,
		identity: identity,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do issues one REST call and classifies failure statuses into the
// application's error taxonomy. On success the caller owns the body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, prefer string) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		drain(resp)
		return nil, fmt.Errorf("%s %s: %w", method, path, common.ErrAuthExpired)
	case resp.StatusCode == http.StatusNotFound:
		drain(resp)
		return nil, fmt.Errorf("%s %s: %w", method, path, common.ErrNotFound)
	case resp.StatusCode >= http.StatusBadRequest:
		detail := readErrorDetail(resp)
		drain(resp)
		return nil, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, detail)
	}

	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// readErrorDetail pulls the server message out of a PostgREST error
// body, falling back to the raw text.
func readErrorDetail(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil || len(raw) == 0 {
		return "no detail"
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(raw)
}

// decodeRecords decodes a PostgREST representation array and closes
// the body.
func decodeRecords(resp *http.Response) ([]record, error) {
	defer func() { _ = resp.Body.Close() }()

	var records []record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}
