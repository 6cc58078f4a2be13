// qbclient/client.go
package qbclient

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

	"github.com/sirupsen/logrus"
)

// Environment selects which QuickBooks API host calls are made against.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// BaseURL returns the company API base for the environment.
func (e Environment) BaseURL() string {
	if e == Production {
		return "https://quickbooks.api.intuit.com/v3/company"
	}
	return "https://sandbox-quickbooks.api.intuit.com/v3/company"
}

// TokenSource supplies a valid bearer token for a realm. The auth service
// implements this; a failure here means the call must not be attempted.
type TokenSource interface {
	Token(ctx context.Context, realmID string) (string, error)
}

// Client is the QuickBooks API gateway. It resolves the tenant base
// endpoint, attaches bearer credentials, and normalizes every outcome into
// either a decoded response or a typed error.
type Client struct {
	baseURL      string
	minorVersion string
	tokens       TokenSource
	realmID      string
	httpClient   *http.Client
	log          *logrus.Logger
}

// NewClient creates a QuickBooks API client for the given environment.
func NewClient(env Environment, minorVersion string, tokens TokenSource, log *logrus.Logger) *Client {
	if minorVersion == "" {
		minorVersion = "75"
	}
	return &Client{
		baseURL:      env.BaseURL(),
		minorVersion: minorVersion,
		tokens:       tokens,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}
}

// WithRealm returns a shallow copy of the client scoped to a company.
func (c *Client) WithRealm(realmID string) *Client {
	client := *c
	client.realmID = realmID
	return &client
}

// WithBaseURL returns a copy of the client pointed at a different API base,
// for tests and API-compatible gateways.
func (c *Client) WithBaseURL(baseURL string) *Client {
	client := *c
	client.baseURL = baseURL
	return &client
}

// Do performs an authenticated call against a company-relative path
// (e.g. "/invoice"), serializing body as JSON when present and decoding a
// 2xx response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	op := fmt.Sprintf("%s %s", method, path)

	if c.realmID == "" {
		return &AuthError{Op: op, Err: fmt.Errorf("no realm selected")}
	}

	// Fail fast when no credential can be supplied; never attempt the call.
	bearer, err := c.tokens.Token(ctx, c.realmID)
	if err != nil {
		return &AuthError{Op: op, Err: err}
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request body: %w", op, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + "/" + c.realmID + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	query := req.URL.Query()
	query.Set("minorversion", c.minorVersion)
	req.URL.RawQuery = query.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
		var envelope struct {
			Fault *Fault `json:"Fault"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Fault != nil {
			apiErr.Fault = envelope.Fault
		}
		c.log.WithFields(logrus.Fields{
			"operation": op,
			"status":    resp.StatusCode,
			"realm_id":  c.realmID,
		}).Warn("QuickBooks API call failed")
		return apiErr
	}

	if out != nil {
		// A 2xx with an undecodable body is still a failed call.
		if err := json.Unmarshal(raw, out); err != nil {
			return &APIError{
				Op:         op,
				StatusCode: resp.StatusCode,
				Body:       fmt.Sprintf("malformed response body: %v", err),
			}
		}
	}

	return nil
}

// Query executes a read-only query expression against the company dataset.
// Values interpolated into expr must be run through EscapeQueryValue first.
func (c *Client) Query(ctx context.Context, expr string) (*QueryResponse, error) {
	var envelope struct {
		QueryResponse QueryResponse `json:"QueryResponse"`
	}
	path := "/query?query=" + url.QueryEscape(expr)
	if err := c.Do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.QueryResponse, nil
}

// EscapeQueryValue sanitizes a string for interpolation into a query
// expression, preventing quote breakout.
func EscapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
