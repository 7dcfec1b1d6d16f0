// Package fetch retrieves job posting pages and reduces them to bounded plain
// text for the model.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amishk599/jobenricher/internal/model"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultMaxBodyBytes = 5 << 20
)

var _ model.PageFetcher = (*HTTPFetcher)(nil)

// HTTPFetcher performs one GET per posting. It never retries.
type HTTPFetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxChars     int
	maxBodyBytes int64
}

// NewHTTPFetcher returns a fetcher using httpClient, which should carry the
// per-request timeout.
func NewHTTPFetcher(httpClient *http.Client, userAgent string, maxChars int, maxBodyBytes int64) *HTTPFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &HTTPFetcher{
		httpClient:   httpClient,
		userAgent:    userAgent,
		maxChars:     maxChars,
		maxBodyBytes: maxBodyBytes,
	}
}

// Fetch downloads url and returns its reduced text. Any transport failure or
// non-2xx status is returned wrapped in model.ErrNetwork.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request for %s: %w", model.ErrNetwork, url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: GET %s: %w", model.ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("%w: GET %s: %w", model.ErrNetwork, url, &model.HTTPError{StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body of %s: %w", model.ErrNetwork, url, err)
	}

	text, err := ReduceText(string(body), f.maxChars)
	if err != nil {
		return "", fmt.Errorf("%w: reduce %s: %w", model.ErrNetwork, url, err)
	}
	return text, nil
}
