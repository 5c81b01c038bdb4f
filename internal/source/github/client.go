// Package github is a thin client for the GitHub notifications REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/notification-triage/internal/source"
)

// DefaultBaseURL is the public GitHub API root.
const DefaultBaseURL = "https://api.github.com"

// maxConcurrency caps the number of requests one fan-out keeps in flight.
const maxConcurrency = 30

const userAgent = "notification-triage"

// StatusError is returned for any unexpected HTTP status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"unexpected status %d on %s %s: %s",
		e.StatusCode, e.Method, e.URL, e.Body,
	)
}

// Client talks to the GitHub REST API with Bearer token authentication.
// It never retries; callers decide when to try again.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a GitHub client. baseURL may point at a test server;
// an empty baseURL selects DefaultBaseURL. A zero timeout leaves requests
// bounded only by their context.
func NewClient(
	baseURL string,
	token string,
	timeout time.Duration,
	logger *slog.Logger,
) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// send builds and executes a request, handling auth and status mapping.
// 304 Not Modified is returned as a response, not an error. rawURL may be
// absolute or a path relative to the base URL.
func (c *Client) send(
	ctx context.Context,
	method string,
	rawURL string,
	header http.Header,
) (*response, error) {
	if c.token == "" {
		return nil, source.ErrMissingToken
	}

	url := c.resolve(rawURL)

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request %s %s: %w", method, url, err)
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("reading response body: %w", readErr)
	}

	c.logger.Debug("github request",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
	)

	if isAuthFailure(resp) {
		return nil, &source.AuthError{
			StatusCode: resp.StatusCode,
			Message:    "check the GitHub token for " + c.baseURL,
		}
	}

	if resp.StatusCode != http.StatusNotModified &&
		(resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return nil, &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return &response{
		status: resp.StatusCode,
		header: resp.Header,
		body:   body,
	}, nil
}

// isAuthFailure reports a rejected or under-scoped token. An exhausted rate
// limit also answers 403 and stays a StatusError.
func isAuthFailure(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("X-RateLimit-Remaining") != "0"
	}
	return false
}

// getJSON performs a GET and unmarshals the JSON body into result.
func (c *Client) getJSON(
	ctx context.Context,
	rawURL string,
	result interface{},
) (http.Header, error) {
	resp, err := c.send(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusNotModified {
		return nil, &StatusError{
			Method:     http.MethodGet,
			URL:        c.resolve(rawURL),
			StatusCode: resp.status,
		}
	}

	if err := json.Unmarshal(resp.body, result); err != nil {
		return nil, fmt.Errorf("unmarshaling response from %s: %w", rawURL, err)
	}

	return resp.header, nil
}

// resolve turns a path into an absolute URL on the base URL and rewrites
// absolute public API URLs onto it.
func (c *Client) resolve(rawURL string) string {
	if strings.HasPrefix(rawURL, "/") {
		return c.baseURL + rawURL
	}
	return c.rewriteURL(rawURL)
}

// rewriteURL moves a URL returned by the public API onto the configured
// base URL, so that links embedded in responses are followed against the
// same server the client talks to.
func (c *Client) rewriteURL(rawURL string) string {
	if rest, ok := strings.CutPrefix(rawURL, DefaultBaseURL); ok {
		return c.baseURL + rest
	}
	return rawURL
}
