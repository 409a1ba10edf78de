package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/pagemirror/internal/model"
)

// Default client settings, used when no option overrides them.
const (
	defaultUserAgent   = "pagemirror"
	defaultMaxBodySize = 50 * 1024 * 1024
	defaultTimeout     = 30 * time.Second
)

// Client fetches URLs with the single-hop redirect policy.
// A Client is safe for concurrent use.
type Client struct {
	// httpClient performs the requests. It must not follow redirects itself.
	httpClient *http.Client

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize is the largest body accepted, in bytes.
	maxBodySize int64

	// limiter paces requests. Nil means no pacing.
	limiter *rate.Limiter

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
// Use NewHTTPClient to build one with proxy and header support.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithLimiter paces requests with l, which may be shared by several clients
// so the interval holds across all of them. A nil limiter disables pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewLimiter returns a limiter allowing one request per d.
// It returns nil for a zero or negative d.
func NewLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client. Without WithHTTPClient it uses a direct
// connection with the default timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		hc, err := NewHTTPClient(TransportOptions{Timeout: defaultTimeout})
		if err != nil {
			// Only reachable if http.DefaultTransport was replaced.
			hc = &http.Client{
				Timeout: defaultTimeout,
				CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
					return http.ErrUseLastResponse
				},
			}
		}
		c.httpClient = hc
	}

	return c
}

// Fetch performs a GET for rawURL and returns the response body.
//
// A 301, 302 or 307 response is followed exactly once, to its Location
// header resolved against the request URL. The response to that second
// request is terminal: any non-2xx status, including another redirect, is
// an error. Every failure is a *model.Error of kind model.KindFetch.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	op := "GET " + rawURL

	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, model.NewFetchError(op, err)
	}

	if isFollowedRedirect(resp.StatusCode) {
		location := resp.Header.Get("Location")
		requestURL := resp.Request.URL
		discard(resp)

		if location == "" {
			return nil, model.NewFetchError(op, ErrRedirectWithoutLocation)
		}
		next, err := requestURL.Parse(location)
		if err != nil {
			return nil, model.NewFetchError(op, fmt.Errorf("invalid Location %q: %w", location, err))
		}

		c.logger.Debug("following redirect",
			"from", rawURL,
			"to", next.String(),
			"status", resp.StatusCode,
		)

		op = "GET " + next.String()
		resp, err = c.get(ctx, next.String())
		if err != nil {
			return nil, model.NewFetchError(op, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.NewFetchError(op, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, model.NewFetchError(op, fmt.Errorf("failed to read body: %w", err))
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, model.NewFetchError(op, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, c.maxBodySize))
	}

	return body, nil
}

// get issues a single GET request, waiting for the pacing limiter first.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")

	return c.httpClient.Do(req)
}

// isFollowedRedirect reports whether status is one of the redirects the Fetcher follows.
// 303 and 308 are deliberately absent.
func isFollowedRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect:
		return true
	default:
		return false
	}
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // best effort
	_ = resp.Body.Close()                                         //nolint:errcheck // best effort
}
