package scrapers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/yair/merchpulse/pkg/ratelimit"
)

const maxBodyBytes = 10 << 20

type ScrapingConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

func (c ScrapingConfig) withDefaults() ScrapingConfig {
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; MerchPulse-Bot/1.0)"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	return c
}

// BaseScraper is the shared fetcher behind every adapter. Each HTTP call
// waits on the platform's limiter slot first.
type BaseScraper struct {
	httpClient *http.Client
	config     ScrapingConfig
	limiter    ratelimit.Limiter
	platform   string
}

func NewBaseScraper(platform string, config ScrapingConfig, limiter ratelimit.Limiter) *BaseScraper {
	config = config.withDefaults()
	return &BaseScraper{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		limiter:    limiter,
		platform:   platform,
	}
}

func (b *BaseScraper) Platform() string {
	return b.platform
}

// Fetch GETs rawURL and returns the status code and body. Redirects are
// followed. 429 and 5xx responses are retried with backoff; any other
// non-2xx status is returned as an error together with its code.
func (b *BaseScraper) Fetch(ctx context.Context, rawURL string, headers map[string]string) (int, []byte, error) {
	var (
		status  int
		lastErr error
	)

	for attempt := 0; attempt <= b.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * b.config.RetryBackoff
			select {
			case <-ctx.Done():
				return status, nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if b.limiter != nil {
			if err := b.limiter.Acquire(ctx, b.platform); err != nil {
				return status, nil, err
			}
		}

		var body []byte
		status, body, lastErr = b.do(ctx, rawURL, headers)
		if lastErr != nil {
			if ctx.Err() != nil {
				return status, nil, ctx.Err()
			}
			continue
		}

		if status == http.StatusTooManyRequests || status >= 500 {
			lastErr = fmt.Errorf("unexpected status %d from %s", status, rawURL)
			continue
		}
		if status < 200 || status > 299 {
			return status, body, fmt.Errorf("unexpected status %d from %s", status, rawURL)
		}
		return status, body, nil
	}

	log.Printf("[%s] giving up on %s after %d attempts: %v", b.platform, rawURL, b.config.MaxRetries+1, lastErr)
	return status, nil, fmt.Errorf("request failed after %d attempts: %w", b.config.MaxRetries+1, lastErr)
}

func (b *BaseScraper) do(ctx context.Context, rawURL string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", b.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// ResolveURL resolves href against base. Only http(s) results are returned.
func ResolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// PageErrors reports the pages (or search terms) of one scrape that could
// not be fetched or parsed. Whatever was collected from the rest is still
// returned alongside it.
type PageErrors struct {
	Failed int
	Total  int
	Last   error
}

func (e *PageErrors) Error() string {
	return fmt.Sprintf("%d of %d pages failed: %v", e.Failed, e.Total, e.Last)
}

func (e *PageErrors) Unwrap() error {
	return e.Last
}

// Partial reports whether at least one page succeeded.
func (e *PageErrors) Partial() bool {
	return e.Failed < e.Total
}

type pageTally struct {
	failed, total int
	last          error
}

func (p *pageTally) ok() {
	p.total++
}

func (p *pageTally) fail(err error) {
	p.total++
	p.failed++
	p.last = err
}

func (p *pageTally) err() error {
	if p.failed == 0 {
		return nil
	}
	return &PageErrors{Failed: p.failed, Total: p.total, Last: p.last}
}
