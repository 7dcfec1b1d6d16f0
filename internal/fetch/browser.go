package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chromedp/chromedp"

	"github.com/amishk599/jobenricher/internal/model"
)

var (
	_ model.PageFetcher = (*BrowserFetcher)(nil)
	_ model.PageFetcher = (*AutoFetcher)(nil)
)

// BrowserFetcher renders a page in headless Chrome before reducing it, for
// boards that only build their content in JavaScript. Chrome or Chromium
// must be installed.
type BrowserFetcher struct {
	timeout   time.Duration
	settle    time.Duration // extra wait after body is ready
	userAgent string
	maxChars  int
	logger    *slog.Logger
}

// NewBrowserFetcher creates a headless browser fetcher.
func NewBrowserFetcher(timeout, settle time.Duration, userAgent string, maxChars int, logger *slog.Logger) *BrowserFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &BrowserFetcher{
		timeout:   timeout,
		settle:    settle,
		userAgent: userAgent,
		maxChars:  maxChars,
		logger:    logger,
	}
}

// Fetch navigates to url, waits for the body and returns the reduced text.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(f.userAgent),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.timeout)
	defer cancelTimeout()

	var rendered string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(f.settle),
		chromedp.OuterHTML("html", &rendered),
	)
	if err != nil {
		return "", fmt.Errorf("%w: render %s: %w", model.ErrNetwork, url, err)
	}
	f.logger.Debug("browser rendered page", "url", url, "bytes", len(rendered))

	text, err := ReduceText(rendered, f.maxChars)
	if err != nil {
		return "", fmt.Errorf("%w: reduce %s: %w", model.ErrNetwork, url, err)
	}
	return text, nil
}

// AutoFetcher tries a plain GET first and falls back to the browser only when
// the page came back nearly empty. Failed GETs are returned as-is.
type AutoFetcher struct {
	primary  model.PageFetcher
	fallback model.PageFetcher
	minChars int
	logger   *slog.Logger
}

// NewAutoFetcher combines a plain and a rendering fetcher.
func NewAutoFetcher(primary, fallback model.PageFetcher, minChars int, logger *slog.Logger) *AutoFetcher {
	return &AutoFetcher{
		primary:  primary,
		fallback: fallback,
		minChars: minChars,
		logger:   logger,
	}
}

// Fetch returns the primary text unless it holds fewer than minChars runes.
func (f *AutoFetcher) Fetch(ctx context.Context, url string) (string, error) {
	text, err := f.primary.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	chars := utf8.RuneCountInString(strings.TrimSpace(text))
	if chars >= f.minChars {
		return text, nil
	}

	f.logger.Info("page text too short, rendering with browser", "url", url, "chars", chars)
	rendered, err := f.fallback.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(strings.TrimSpace(rendered)) < chars {
		return text, nil
	}
	return rendered, nil
}
