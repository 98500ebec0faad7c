// Package fetch implements the robust GET used by every crawl worker: a
// shared rate limiter gate, retry/backoff on throttling and transport
// errors, and a realistic browser-like header set.
package fetch

import (
	"context"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/hasan-ston/catalogx/internal/ratelimit"
)

const (
	maxAttempts    = 6
	initialBackoff = 400 * time.Millisecond
	backoffFactor  = 1.9
	maxBackoff     = 6 * time.Second
	maxRetryAfter  = 10 * time.Second
	requestTimeout = 30 * time.Second
)

var logger = log.New(log.Writer(), "[backoff] ", log.LstdFlags)

// Fetcher issues rate-limited, retry-aware GET requests.
type Fetcher struct {
	Limiter *ratelimit.Limiter
	Client  *http.Client
	BaseURL string // used as the Referer header
}

// New creates a Fetcher bound to the given shared limiter and base URL.
func New(limiter *ratelimit.Limiter, baseURL string) *Fetcher {
	return &Fetcher{
		Limiter: limiter,
		Client: &http.Client{
			Timeout: requestTimeout,
		},
		BaseURL: baseURL,
	}
}

// GetText performs a rate-limited GET and returns the response body on a
// 200 with non-empty content. It retries on throttling and transport
// errors up to maxAttempts, then makes one final best-effort try. It
// never returns an error: total failure is reported as ("", false) so the
// crawler can record the code with empty fields and move on.
func (f *Fetcher) GetText(ctx context.Context, url string) (string, bool) {
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts+1; attempt++ {
		if err := f.Limiter.Acquire(ctx, 1); err != nil {
			return "", false
		}

		body, status, retryAfter, err := f.doRequest(ctx, url)
		if err == nil && status == http.StatusOK && body != "" {
			return body, true
		}

		if attempt > maxAttempts {
			break
		}

		switch {
		case status == 429 || status == 403 || status == 503:
			wait := throttleWait(retryAfterSeconds(retryAfter), backoff)
			logger.Printf("throttled (status=%d) on %s, cooling off %s", status, url, wait)
			f.Limiter.Cooloff(wait.Seconds())
			sleepWithJitter(ctx, wait)
		default:
			logger.Printf("attempt %d/%d failed for %s: status=%d err=%v", attempt, maxAttempts, url, status, err)
			sleepWithJitter(ctx, backoff)
		}

		backoff = nextBackoff(backoff)
	}

	return "", false
}

func (f *Fetcher) doRequest(ctx context.Context, url string) (body string, status int, retryAfter string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-AU,en;q=0.9")
	req.Header.Set("Referer", f.BaseURL)

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", 0, "", err
	}
	defer resp.Body.Close()

	retryAfter = resp.Header.Get("Retry-After")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, retryAfter, err
	}
	return string(data), resp.StatusCode, retryAfter, nil
}

// retryAfterSeconds parses a Retry-After header value, if numeric, else
// -1 to signal "use the growing backoff".
func retryAfterSeconds(header string) float64 {
	if header == "" {
		return -1
	}
	n, err := strconv.Atoi(header)
	if err != nil || n < 0 {
		return -1
	}
	return float64(n)
}

// throttleWait returns the Retry-After duration when the header was
// numeric, capped at maxRetryAfter; otherwise it falls back to the
// caller's current growing backoff, so repeated throttling without a
// Retry-After header still escalates.
func throttleWait(retryAfter float64, backoff time.Duration) time.Duration {
	if retryAfter >= 0 {
		d := time.Duration(retryAfter * float64(time.Second))
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d
	}
	return backoff
}

func nextBackoff(cur time.Duration) time.Duration {
	next := time.Duration(float64(cur) * backoffFactor)
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) {
	jitter := time.Duration(rand.Float64()*0.15*float64(time.Second)) + 50*time.Millisecond
	t := time.NewTimer(base + jitter)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
