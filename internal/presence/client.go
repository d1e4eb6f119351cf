package presence

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client queries /api/presence on the hub.
type Client struct {
	baseURL    string
	header     func() http.Header
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a presence client. header, if non-nil, supplies extra
// request headers such as the session cookie.
func NewClient(baseURL string, header func() http.Header, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		header:  header,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:       slog.Default().With("component", "presence_client"),
		maxRetries:   2,
		retryBackoff: 250 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.With("component", "presence_client")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// BaseURL returns the origin of pageURL, which is where the hub serves its API.
func BaseURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported page url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("page url %q has no host", pageURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
