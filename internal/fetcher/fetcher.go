// Package fetcher implements rate-limited HTTP retrieval with retry and
// backoff on top of the Colly collector.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/rfarchive/rfarchive/internal/archive"
)

// Limiter enforces per-site politeness before each request attempt.
type Limiter interface {
	Wait(ctx context.Context, site archive.Site) error
}

// Config controls fetcher behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	ProxyURL    string
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Fetcher implements archive.Fetcher. It is stateless between calls and safe
// for concurrent use.
type Fetcher struct {
	cfg           Config
	limiter       Limiter
	retry         *RetryPolicy
	transport     http.RoundTripper
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher. An empty proxy URL means direct connections, with the
// environment proxy honored.
func New(cfg Config, limiter Limiter, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport, err := newHTTPTransport(cfg.ProxyURL)
	if err != nil {
		return nil, err
	}
	// Revisits must stay allowed: retries and refresh crawls hit the same
	// URL again, and the scheduler's visited set already dedups discovery.
	c := colly.NewCollector(colly.Async(false), colly.IgnoreRobotsTxt(), colly.AllowURLRevisit())
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		retry:         NewRetryPolicy(cfg.MaxAttempts, cfg.BackoffBase, cfg.BackoffMax),
		transport:     transport,
		baseCollector: c,
		logger:        logger,
	}, nil
}

// Fetch retrieves one URL. Transient failures are retried with backoff up to
// the attempt budget; 404/410 return archive.ErrNotFound without retry; a
// content type incompatible with the expected kind is an error.
func (f *Fetcher) Fetch(ctx context.Context, req archive.FetchRequest) (archive.FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < f.retry.MaxAttempts(); attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, req.Site); err != nil {
				return archive.FetchResult{}, fmt.Errorf("politeness wait: %w", err)
			}
		}

		res, err := f.attempt(ctx, req.URL)
		if err == nil {
			if !compatibleContentType(req.Kind, res.ContentType) {
				return archive.FetchResult{}, &archive.ContentTypeError{
					URL: req.URL, Expected: req.Kind, Got: res.ContentType,
				}
			}
			return res, nil
		}

		var httpErr *httpStatusError
		if errors.As(err, &httpErr) && httpErr.NotFound() {
			return archive.FetchResult{}, fmt.Errorf("fetch %s: %w", req.URL, archive.ErrNotFound)
		}

		lastErr = err
		if !f.retry.ShouldRetry(err, attempt) {
			return archive.FetchResult{}, &archive.FetchError{URL: req.URL, Attempts: attempt + 1, Err: err}
		}
		delay := f.retry.Backoff(attempt)
		f.logger.Debug("retrying fetch",
			zap.String("url", req.URL),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		pause(ctx, delay)
	}
	return archive.FetchResult{}, &archive.FetchError{URL: req.URL, Attempts: f.retry.MaxAttempts(), Err: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string) (archive.FetchResult, error) {
	var (
		result   archive.FetchResult
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(f.transport)

	collector.OnResponse(func(r *colly.Response) {
		result = archive.FetchResult{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			Body:        append([]byte(nil), r.Body...),
			ContentType: r.Headers.Get("Content-Type"),
			Duration:    time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		code := 0
		if r != nil {
			code = r.StatusCode
		}
		fetchErr = &httpStatusError{StatusCode: code, Err: err}
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return archive.FetchResult{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return archive.FetchResult{}, fetchErr
		}
		if err != nil {
			return archive.FetchResult{}, fmt.Errorf("visit %s: %w", rawURL, err)
		}
		return result, nil
	}
}

// httpStatusError carries the response status alongside the transport error.
// StatusCode 0 means the request never produced a response.
type httpStatusError struct {
	StatusCode int
	Err        error
}

func (e *httpStatusError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("http status %d: %v", e.StatusCode, e.Err)
	}
	return e.Err.Error()
}

func (e *httpStatusError) Unwrap() error { return e.Err }

// NotFound reports a permanently missing resource.
func (e *httpStatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// Transient reports whether the failure is worth retrying: a 5xx, a 429 or a
// transport-level failure with no response at all.
func (e *httpStatusError) Transient() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

func compatibleContentType(kind archive.MediaKind, contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch kind {
	case archive.MediaImage:
		return strings.HasPrefix(ct, "image/") || ct == "application/octet-stream"
	default:
		return strings.HasPrefix(ct, "text/") ||
			strings.Contains(ct, "json") ||
			strings.Contains(ct, "xml")
	}
}

func newHTTPTransport(proxyURL string) (*http.Transport, error) {
	proxy := http.ProxyFromEnvironment
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		proxy = http.ProxyURL(u)
	}
	return &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}, nil
}
