package fetcher

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/sha3"
	"golang.org/x/net/html/charset"
)

// ErrUnexpectedStatus is wrapped by the error returned for non-200 responses.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// ErrBodyTooLarge is returned when a body exceeds the configured size limit.
// Bodies are never truncated.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Default settings used when no option overrides them.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBodySize = 5 * 1024 * 1024
	DefaultUserAgent   = "mdscrape/1.0 (+https://github.com/nao1215/mdscrape)"
)

// Fetcher returns the page for one code.
type Fetcher interface {
	Fetch(ctx context.Context, code string) (*Page, error)
}

// Page is a successfully fetched code page.
type Page struct {
	Code        string
	URL         string
	StatusCode  int
	ContentType string

	// Body is the response body decoded to UTF-8.
	Body []byte

	// Digest is the hex SHA3-256 of the raw, undecoded body.
	Digest string
}

// StatusError carries the status of a non-200 response.
type StatusError struct {
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.StatusCode)
}

// Unwrap makes errors.Is(err, ErrUnexpectedStatus) hold.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// HTTPFetcher fetches code pages over HTTP.
type HTTPFetcher struct {
	client      *http.Client
	baseURL     string
	userAgent   string
	headers     map[string]string
	timeout     time.Duration
	maxBodySize int64
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient sets the HTTP client. The default is a fresh http.Client.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(h map[string]string) Option {
	return func(f *HTTPFetcher) {
		for k, v := range h {
			f.headers[k] = v
		}
	}
}

// WithTimeout sets the deadline applied to each fetch. Non-positive values
// are ignored.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize sets the largest body accepted. Larger bodies fail with
// ErrBodyTooLarge. Non-positive values are ignored.
func WithMaxBodySize(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// New creates an HTTPFetcher for pages at baseURL+code.
func New(baseURL string, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      &http.Client{},
		baseURL:     baseURL,
		userAgent:   DefaultUserAgent,
		headers:     make(map[string]string),
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the page URL for code.
func (f *HTTPFetcher) URL(code string) string {
	return f.baseURL + code
}

// Fetch issues one GET for the code's page.
func (f *HTTPFetcher) Fetch(ctx context.Context, code string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	pageURL := f.URL(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096) //nolint:errcheck // best effort
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(raw)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := decode(raw, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}

	return &Page{
		Code:        code,
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
		Digest:      Digest(raw),
	}, nil
}

// Digest returns the hex SHA3-256 of b.
func Digest(b []byte) string {
	sum := sha3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// decode converts raw to UTF-8 using the declared or sniffed charset.
func decode(raw []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		// Unknown charset labels fall back to the raw bytes.
		return raw, nil //nolint:nilerr // undecodable pages are still parsed as-is
	}
	return io.ReadAll(r)
}
