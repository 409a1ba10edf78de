package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/pagemirror/internal/model"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()

	hc, err := NewHTTPClient(TransportOptions{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	return NewClient(append([]Option{WithHTTPClient(hc)}, opts...)...)
}

// TestClientFetch tests status and redirect handling.
func TestClientFetch(t *testing.T) {
	t.Parallel()

	t.Run("200 returns body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>hello</html>")) //nolint:errcheck
		}))
		defer server.Close()

		body, err := newTestClient(t).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != "<html>hello</html>" {
			t.Errorf("expected body %q, got %q", "<html>hello</html>", string(body))
		}
	})

	for _, status := range []int{http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect} {
		t.Run("follows "+http.StatusText(status)+" once", func(t *testing.T) {
			t.Parallel()

			var hits atomic.Int32
			mux := http.NewServeMux()
			mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/new", status)
			})
			mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				_, _ = w.Write([]byte("moved")) //nolint:errcheck
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			body, err := newTestClient(t).Fetch(context.Background(), server.URL+"/old")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(body) != "moved" {
				t.Errorf("expected body %q, got %q", "moved", string(body))
			}
			if hits.Load() != 1 {
				t.Errorf("expected 1 request to /new, got %d", hits.Load())
			}
		})
	}

	t.Run("relative Location is resolved against the request URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/a/page", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Location", "other")
			w.WriteHeader(http.StatusFound)
		})
		mux.HandleFunc("/a/other", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("relative")) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		body, err := newTestClient(t).Fetch(context.Background(), server.URL+"/a/page")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != "relative" {
			t.Errorf("expected body %q, got %q", "relative", string(body))
		}
	})

	t.Run("second redirect is an error", func(t *testing.T) {
		t.Parallel()

		var finalHits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/one", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/two", http.StatusFound)
		})
		mux.HandleFunc("/two", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/three", http.StatusFound)
		})
		mux.HandleFunc("/three", func(w http.ResponseWriter, _ *http.Request) {
			finalHits.Add(1)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		_, err := newTestClient(t).Fetch(context.Background(), server.URL+"/one")
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
		}
		if finalHits.Load() != 0 {
			t.Errorf("expected /three never to be requested, got %d requests", finalHits.Load())
		}
	})

	t.Run("404 is a fetch error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := newTestClient(t).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
		if model.KindOf(err) != model.KindFetch {
			t.Errorf("expected KindFetch, got %v", model.KindOf(err))
		}
		if !strings.Contains(err.Error(), "404") {
			t.Errorf("expected error to mention 404, got %q", err.Error())
		}
	})

	t.Run("303 is not followed", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/see-other" {
				http.Redirect(w, r, "/target", http.StatusSeeOther)
				return
			}
			_, _ = w.Write([]byte("target")) //nolint:errcheck
		}))
		defer server.Close()

		_, err := newTestClient(t).Fetch(context.Background(), server.URL+"/see-other")
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
	})

	t.Run("redirect without Location", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusMovedPermanently)
		}))
		defer server.Close()

		_, err := newTestClient(t).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrRedirectWithoutLocation) {
			t.Errorf("expected ErrRedirectWithoutLocation, got %v", err)
		}
	})

	t.Run("unreachable host is a fetch error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		_, err := newTestClient(t).Fetch(context.Background(), addr)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if model.KindOf(err) != model.KindFetch {
			t.Errorf("expected KindFetch, got %v", model.KindOf(err))
		}
	})

	t.Run("body over the limit is rejected", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 64))) //nolint:errcheck
		}))
		defer server.Close()

		_, err := newTestClient(t, WithMaxBodySize(16)).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Errorf("expected ErrBodyTooLarge, got %v", err)
		}
	})

	t.Run("body at the limit is accepted", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 16))) //nolint:errcheck
		}))
		defer server.Close()

		body, err := newTestClient(t, WithMaxBodySize(16)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(body) != 16 {
			t.Errorf("expected 16 bytes, got %d", len(body))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestClient(t).Fetch(ctx, server.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestClientHeaders tests the headers sent with each request.
func TestClientHeaders(t *testing.T) {
	t.Parallel()

	t.Run("user agent is sent", func(t *testing.T) {
		t.Parallel()

		var got atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got.Store(r.Header.Get("User-Agent"))
		}))
		defer server.Close()

		_, err := newTestClient(t, WithUserAgent("mirror-test/2.0")).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Load() != "mirror-test/2.0" {
			t.Errorf("expected User-Agent %q, got %v", "mirror-test/2.0", got.Load())
		}
	})

	t.Run("empty user agent keeps the default", func(t *testing.T) {
		t.Parallel()

		c := NewClient(WithUserAgent(""))
		if c.userAgent != defaultUserAgent {
			t.Errorf("expected %q, got %q", defaultUserAgent, c.userAgent)
		}
	})

	t.Run("site cookie and headers are injected", func(t *testing.T) {
		t.Parallel()

		type seen struct {
			cookie, custom string
		}
		var got atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got.Store(seen{cookie: r.Header.Get("Cookie"), custom: r.Header.Get("X-Mirror")})
		}))
		defer server.Close()

		hc, err := NewHTTPClient(TransportOptions{
			Timeout: 5 * time.Second,
			Host:    serverHost(t, server),
			Cookie:  "session=abc",
			Headers: map[string]string{"X-Mirror": "yes"},
		})
		if err != nil {
			t.Fatalf("NewHTTPClient() error = %v", err)
		}

		if _, err := NewClient(WithHTTPClient(hc)).Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s, ok := got.Load().(seen)
		if !ok {
			t.Fatal("server saw no request")
		}
		if s.cookie != "session=abc" {
			t.Errorf("expected cookie %q, got %q", "session=abc", s.cookie)
		}
		if s.custom != "yes" {
			t.Errorf("expected X-Mirror %q, got %q", "yes", s.custom)
		}
	})

	t.Run("other hosts receive no site cookie or headers", func(t *testing.T) {
		t.Parallel()

		var siteSeen, otherSeen atomic.Value
		other := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			otherSeen.Store(r.Header.Get("Cookie") + "|" + r.Header.Get("Authorization"))
		}))
		defer other.Close()
		site := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			siteSeen.Store(r.Header.Get("Cookie") + "|" + r.Header.Get("Authorization"))
		}))
		defer site.Close()

		hc, err := NewHTTPClient(TransportOptions{
			Timeout: 5 * time.Second,
			Host:    serverHost(t, site),
			Cookie:  "session=secret",
			Headers: map[string]string{"Authorization": "Bearer sitetoken"},
		})
		if err != nil {
			t.Fatalf("NewHTTPClient() error = %v", err)
		}
		c := NewClient(WithHTTPClient(hc))

		if _, err := c.Fetch(context.Background(), site.URL+"/page"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := c.Fetch(context.Background(), other.URL+"/a.png"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := siteSeen.Load(); got != "session=secret|Bearer sitetoken" {
			t.Errorf("expected site to receive credentials, got %v", got)
		}
		if got := otherSeen.Load(); got != "|" {
			t.Errorf("expected no credentials on other host, got %v", got)
		}
	})

	t.Run("redirect to another host drops site cookie and headers", func(t *testing.T) {
		t.Parallel()

		var otherSeen atomic.Value
		other := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			otherSeen.Store(r.Header.Get("Cookie") + "|" + r.Header.Get("X-Token"))
		}))
		defer other.Close()
		site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, other.URL+"/moved", http.StatusFound)
		}))
		defer site.Close()

		hc, err := NewHTTPClient(TransportOptions{
			Timeout: 5 * time.Second,
			Host:    serverHost(t, site),
			Cookie:  "session=secret",
			Headers: map[string]string{"X-Token": "secret"},
		})
		if err != nil {
			t.Fatalf("NewHTTPClient() error = %v", err)
		}

		if _, err := NewClient(WithHTTPClient(hc)).Fetch(context.Background(), site.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := otherSeen.Load(); got != "|" {
			t.Errorf("expected no credentials after redirect, got %v", got)
		}
	})
}

// serverHost returns the host:port of a test server.
func serverHost(t *testing.T, server *httptest.Server) string {
	t.Helper()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("invalid server URL %q: %v", server.URL, err)
	}
	return u.Host
}

// TestSameHost tests host matching for header injection.
func TestSameHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		host string
		want bool
	}{
		{name: "exact match", raw: "http://example.com/x", host: "example.com", want: true},
		{name: "case-insensitive", raw: "http://Example.COM/x", host: "example.com", want: true},
		{name: "explicit default port", raw: "http://example.com:80/x", host: "example.com", want: true},
		{name: "https default port", raw: "https://example.com/x", host: "example.com:443", want: true},
		{name: "different port", raw: "http://example.com:8080/x", host: "example.com", want: false},
		{name: "different host", raw: "http://cdn.example.com/x", host: "example.com", want: false},
		{name: "suffix is not a match", raw: "http://evilexample.com/x", host: "example.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if got := sameHost(u, tt.host); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestWithLimiter tests request pacing.
func TestWithLimiter(t *testing.T) {
	t.Parallel()

	t.Run("requests are spaced by the delay", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		defer server.Close()

		delay := 100 * time.Millisecond
		c := newTestClient(t, WithLimiter(NewLimiter(delay)))

		start := time.Now()
		for range 3 {
			if _, err := c.Fetch(context.Background(), server.URL); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		// The first request is immediate; the next two each wait one interval.
		if elapsed := time.Since(start); elapsed < 2*delay-10*time.Millisecond {
			t.Errorf("expected at least %v between three requests, got %v", 2*delay, elapsed)
		}
	})

	t.Run("zero delay disables pacing", func(t *testing.T) {
		t.Parallel()

		c := NewClient(WithLimiter(NewLimiter(0)))
		if c.limiter != nil {
			t.Error("expected nil limiter")
		}
		if NewLimiter(-time.Second) != nil {
			t.Error("expected nil limiter for a negative delay")
		}
	})

	t.Run("shared limiter spaces requests across clients", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		defer server.Close()

		delay := 100 * time.Millisecond
		limiter := NewLimiter(delay)

		start := time.Now()
		// A fresh client per page, as the CLI builds them.
		for range 3 {
			c := newTestClient(t, WithLimiter(limiter))
			if _, err := c.Fetch(context.Background(), server.URL); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 2*delay-10*time.Millisecond {
			t.Errorf("expected at least %v across three clients, got %v", 2*delay, elapsed)
		}
	})
}

// TestNewHTTPClient tests HTTP client construction.
func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("redirects are not followed by the client", func(t *testing.T) {
		t.Parallel()

		hc, err := NewHTTPClient(TransportOptions{Timeout: time.Second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hc.CheckRedirect == nil {
			t.Fatal("expected CheckRedirect to be set")
		}
		if err := hc.CheckRedirect(nil, nil); !errors.Is(err, http.ErrUseLastResponse) {
			t.Errorf("expected http.ErrUseLastResponse, got %v", err)
		}
		if hc.Timeout != time.Second {
			t.Errorf("expected timeout %v, got %v", time.Second, hc.Timeout)
		}
	})

	t.Run("SOCKS5 proxy installs a dialer", func(t *testing.T) {
		t.Parallel()

		hc, err := NewHTTPClient(TransportOptions{ProxyAddress: "127.0.0.1:1080"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		transport, ok := hc.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("expected *http.Transport, got %T", hc.Transport)
		}
		if transport.Proxy != nil {
			t.Error("expected environment proxy to be disabled")
		}
		if transport.DialContext == nil {
			t.Error("expected DialContext to be set")
		}
	})

	t.Run("headers wrap the transport", func(t *testing.T) {
		t.Parallel()

		hc, err := NewHTTPClient(TransportOptions{Host: "example.com", Cookie: "a=b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := hc.Transport.(*headerInjectingTransport); !ok {
			t.Errorf("expected *headerInjectingTransport, got %T", hc.Transport)
		}
	})

	t.Run("headers without a host are never sent", func(t *testing.T) {
		t.Parallel()

		hc, err := NewHTTPClient(TransportOptions{Cookie: "a=b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := hc.Transport.(*http.Transport); !ok {
			t.Errorf("expected *http.Transport, got %T", hc.Transport)
		}
	})
}
