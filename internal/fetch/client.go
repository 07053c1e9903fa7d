// Package fetch performs the authenticated GET against the usage endpoint
// and classifies failures into the reason categories the degraded-record
// path persists.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JillVernus/cc-usageline/internal/credentials"
)

// DefaultEndpoint is the subscription usage endpoint.
const DefaultEndpoint = "https://api.anthropic.com/api/oauth/usage"

// betaHeader identifies the OAuth usage API surface.
const betaHeader = "oauth-2025-04-20"

// Failure reason categories persisted into the cache record.
const (
	ReasonCredentials = "credentials unavailable"
	ReasonAuth        = "authorization rejected"
	ReasonRateLimited = "rate limited"
	ReasonUpstream    = "upstream error"
	ReasonTransport   = "network error"
)

// Error is a classified fetch failure. StatusCode is 0 when no HTTP response
// was received (credential or transport failures).
type Error struct {
	Reason     string
	Detail     string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Reason
}

// Classify extracts the persisted reason, detail text and status code from a
// fetch error.
func Classify(err error) (reason, detail string, statusCode int) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason, fe.Error(), fe.StatusCode
	}
	return ReasonTransport, err.Error(), 0
}

// Client fetches the raw usage payload.
type Client struct {
	endpoint   string
	creds      credentials.TokenSource
	httpClient *http.Client
}

// NewClient creates a usage fetch client. timeout bounds the whole request.
func NewClient(endpoint string, creds credentials.TokenSource, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the configured usage endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchUsage performs one authenticated GET and returns the response body.
// All failure modes come back as *Error so callers can persist the category
// and status code.
func (c *Client) FetchUsage(ctx context.Context) ([]byte, error) {
	token, err := c.creds.Token()
	if err != nil {
		return nil, &Error{Reason: ReasonCredentials, Detail: fmt.Sprintf("%s: %v", ReasonCredentials, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, &Error{Reason: ReasonTransport, Detail: fmt.Sprintf("%s: %v", ReasonTransport, err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-beta", betaHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Reason: ReasonTransport, Detail: fmt.Sprintf("%s: %v", ReasonTransport, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Reason: ReasonTransport, Detail: fmt.Sprintf("%s: %v", ReasonTransport, err)}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{
			Reason:     ReasonAuth,
			Detail:     fmt.Sprintf("%s (HTTP %d)", ReasonAuth, resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{
			Reason:     ReasonRateLimited,
			Detail:     fmt.Sprintf("%s (HTTP %d)", ReasonRateLimited, resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	default:
		return nil, &Error{
			Reason:     ReasonUpstream,
			Detail:     fmt.Sprintf("%s (HTTP %d)", ReasonUpstream, resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
}
