// Package fetcher performs bounded, timeout-guarded retrieval of event
// pages. It is the only component that touches the network; retry policy
// belongs to the decision engine, not here.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/caching"
	"github.com/AlexTo8319/ukraine-event-intelligence/pkg/policy"
)

// FailureKind classifies a fetch failure.
type FailureKind string

const (
	FailTimeout    FailureKind = "timeout"
	FailConnection FailureKind = "connection_error"
	FailHTTPStatus FailureKind = "http_error"
	FailBlocked    FailureKind = "blocked"
	FailMalformed  FailureKind = "malformed_url"
)

// Failure is a typed fetch error. HTTP failures carry the numeric status.
type Failure struct {
	Kind   FailureKind
	Status int
	URL    string
	Msg    string
}

func (f *Failure) Error() string {
	if f.Kind == FailHTTPStatus {
		return fmt.Sprintf("fetch %s: HTTP %d", f.URL, f.Status)
	}
	return fmt.Sprintf("fetch %s: %s (%s)", f.URL, f.Msg, f.Kind)
}

// AsFailure unwraps a typed fetch failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Response is a successful retrieval. FinalURL reflects any redirects.
type Response struct {
	Status   int
	FinalURL string
	Body     string
}

// Client fetches pages with a finite timeout, a redirect cap, and a
// per-host rate limit so third-party sites are never hammered.
type Client struct {
	http    *http.Client
	policy  *policy.Policy
	ua      string
	hostRPS rate.Limit
	cache   *caching.Cache

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the descriptive client identifier.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.ua = ua }
}

// WithHostRPS sets the per-host request rate. Zero disables limiting.
func WithHostRPS(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.hostRPS = rate.Limit(rps)
		}
	}
}

// WithCache serves repeat fetches of the same URL from a file cache while
// entries are fresh.
func WithCache(cache *caching.Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// New creates a fetch client. A nil policy disables the pre-network
// blocklist gate.
func New(p *policy.Policy, timeout time.Duration, maxRedirects int, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	c := &Client{
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		policy:   p,
		ua:       "Mozilla/5.0 (compatible; EventIntelligenceBot/1.0)",
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.hostRPS, 1)
		c.limiters[host] = l
	}
	return l
}

func (c *Client) validate(rawURL string) (*url.URL, *Failure) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Failure{Kind: FailMalformed, URL: rawURL, Msg: "URL must be absolute http(s)"}
	}
	if c.policy != nil && c.policy.IsBlocked(rawURL) {
		return nil, &Failure{Kind: FailBlocked, URL: rawURL, Msg: "blocked by spam/news policy"}
	}
	return u, nil
}

func classifyTransportError(rawURL string, err error) *Failure {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &Failure{Kind: FailTimeout, URL: rawURL, Msg: "request timed out"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailTimeout, URL: rawURL, Msg: "request timed out"}
	}
	return &Failure{Kind: FailConnection, URL: rawURL, Msg: err.Error()}
}

// Fetch retrieves a URL, following redirects, and returns the final URL
// and raw body. Known spam/news domains are rejected before any network
// call is made.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, fail := c.validate(rawURL)
	if fail != nil {
		return nil, fail
	}
	if c.cache != nil {
		if entry, ok := c.cache.Get(rawURL); ok {
			return &Response{Status: entry.Status, FinalURL: entry.FinalURL, Body: entry.Body}, nil
		}
	}
	if c.hostRPS > 0 {
		if err := c.limiter(u.Host).Wait(ctx); err != nil {
			return nil, classifyTransportError(rawURL, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Failure{Kind: FailMalformed, URL: rawURL, Msg: err.Error()}
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,uk;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, &Failure{Kind: FailHTTPStatus, Status: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	out := &Response{Status: resp.StatusCode, FinalURL: finalURL, Body: string(body)}
	if c.cache != nil {
		_ = c.cache.Set(rawURL, &caching.Entry{FinalURL: out.FinalURL, Status: out.Status, Body: out.Body})
	}
	return out, nil
}

// CheckReachable probes a URL with HEAD, falling back to GET when the
// server rejects HEAD. No body is retained.
func (c *Client) CheckReachable(ctx context.Context, rawURL string) error {
	u, fail := c.validate(rawURL)
	if fail != nil {
		return fail
	}
	if c.hostRPS > 0 {
		if err := c.limiter(u.Host).Wait(ctx); err != nil {
			return classifyTransportError(rawURL, err)
		}
	}

	do := func(method string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, &Failure{Kind: FailMalformed, URL: rawURL, Msg: err.Error()}
		}
		req.Header.Set("User-Agent", c.ua)
		return c.http.Do(req)
	}

	resp, err := do(http.MethodHead)
	if err != nil {
		if _, ok := AsFailure(err); ok {
			return err
		}
		return classifyTransportError(rawURL, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		resp, err = do(http.MethodGet)
		if err != nil {
			if _, ok := AsFailure(err); ok {
				return err
			}
			return classifyTransportError(rawURL, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return &Failure{Kind: FailHTTPStatus, Status: resp.StatusCode, URL: rawURL}
	}
	return nil
}

// IsHTML is a cheap gate before handing a body to the HTML parser.
func IsHTML(body string) bool {
	head := strings.ToLower(body)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype") ||
		strings.Contains(head, "<body") || strings.Contains(head, "<div")
}
