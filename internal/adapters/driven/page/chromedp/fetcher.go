// Package chromedp fetches rendered page markup through headless Chrome.
package chromedp

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
)

// Verify interface compliance.
var _ driven.PageFetcher = (*Fetcher)(nil)

const (
	// DefaultTimeout bounds a single page load.
	DefaultTimeout = 30 * time.Second

	// DefaultReadySelector is waited for before the markup is captured.
	DefaultReadySelector = "body"
)

var log = logger.For("chromedp")

// Fetcher loads pages in a fresh headless browser per call.
type Fetcher struct {
	timeout  time.Duration
	selector string
	settle   time.Duration
	execPath string
	closed   atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-page timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithReadySelector sets the CSS selector that must be ready before capture.
func WithReadySelector(sel string) Option {
	return func(f *Fetcher) {
		if sel != "" {
			f.selector = sel
		}
	}
}

// WithSettle waits an extra d after the page is ready, for client-side rendering.
func WithSettle(d time.Duration) Option {
	return func(f *Fetcher) {
		f.settle = d
	}
}

// WithExecPath uses a specific Chrome binary instead of searching PATH.
func WithExecPath(path string) Option {
	return func(f *Fetcher) {
		f.execPath = path
	}
}

// NewFetcher creates a new Fetcher. No browser is started until Fetch.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:  DefaultTimeout,
		selector: DefaultReadySelector,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch navigates to rawURL and returns the document's outer HTML.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.closed.Load() {
		return "", fmt.Errorf("fetch %s: fetcher closed", rawURL)
	}
	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, f.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	actions := []chromedp.Action{
		chromedp.Navigate(rawURL),
		chromedp.WaitReady(f.selector, chromedp.ByQuery),
	}
	if f.settle > 0 {
		actions = append(actions, chromedp.Sleep(f.settle))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	start := time.Now()
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	log.Debug("fetched %s (%d bytes) in %s", rawURL, len(html), time.Since(start).Round(time.Millisecond))

	return html, nil
}

// Close prevents further fetches. Browsers are already released per call.
func (f *Fetcher) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *Fetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}
	return opts
}

// ValidateURL accepts absolute http, https and file URLs.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: page url: %v", domain.ErrInvalidInput, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("%w: page url %q has no host", domain.ErrInvalidInput, rawURL)
		}
	case "file":
		if u.Path == "" {
			return fmt.Errorf("%w: page url %q has no path", domain.ErrInvalidInput, rawURL)
		}
	default:
		return fmt.Errorf("%w: unsupported page url scheme %q", domain.ErrInvalidInput, u.Scheme)
	}
	return nil
}
