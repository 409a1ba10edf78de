package fetch

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// TransportOptions configures the HTTP client built by NewHTTPClient.
type TransportOptions struct {
	// Timeout bounds a whole request including the body read. Zero means no timeout.
	Timeout time.Duration

	// ProxyAddress routes connections through a SOCKS5 proxy at "host:port" when set.
	ProxyAddress string

	// Host is the only host ("name" or "name:port") that receives Cookie
	// and Headers. Requests to any other host, including redirect targets,
	// are sent without them. An empty Host disables injection.
	Host string

	// Cookie is a raw cookie string added to requests for Host.
	Cookie string

	// Headers are added to requests for Host.
	Headers map[string]string
}

// NewHTTPClient creates an HTTP client for the Fetcher.
//
// The client never follows redirects by itself; the Fetcher decides how far
// to follow. Cookies set by the server are kept for the lifetime of the client.
func NewHTTPClient(opts TransportOptions) (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport type %T", http.DefaultTransport)
	}
	transport = transport.Clone()

	if opts.ProxyAddress != "" {
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", opts.ProxyAddress)
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer.DialContext
	}

	var rt http.RoundTripper = transport
	if opts.Host != "" && (opts.Cookie != "" || len(opts.Headers) > 0) {
		rt = &headerInjectingTransport{
			base:    transport,
			host:    opts.Host,
			cookie:  opts.Cookie,
			headers: opts.Headers,
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// headerInjectingTransport adds configured headers and cookies to requests
// for one host. Requests for other hosts pass through untouched.
type headerInjectingTransport struct {
	base    http.RoundTripper
	host    string
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !sameHost(req.URL, t.host) {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

// sameHost reports whether u points at host. Names compare case-insensitively
// and a missing port matches the default port of u's scheme.
func sameHost(u *url.URL, host string) bool {
	if u == nil {
		return false
	}
	return strings.EqualFold(hostWithPort(u.Scheme, u.Host), hostWithPort(u.Scheme, host))
}

// hostWithPort appends the scheme's default port to host when it has none.
func hostWithPort(scheme, host string) string {
	h := &url.URL{Host: host}
	if h.Port() != "" {
		return host
	}
	switch strings.ToLower(scheme) {
	case "https":
		return host + ":443"
	case "http":
		return host + ":80"
	default:
		return host
	}
}
