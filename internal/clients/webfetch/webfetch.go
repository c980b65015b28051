package webfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/studyloop/studyloop-backend/internal/pkg/httpx"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// Fetcher retrieves raw page bytes for webpage ingestion. When
// WEBFETCH_PROXY_URL is set, requests are routed through that intermediary
// (the target URL is appended as a query parameter), which lets the backend
// reach pages that block direct server-side fetches.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

type fetcher struct {
	log        *logger.Logger
	proxyBase  string
	userAgent  string
	maxBytes   int64
	httpClient *http.Client
}

const defaultMaxPageBytes = 8 << 20

func NewFetcher(log *logger.Logger) (Fetcher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	proxyBase := strings.TrimSpace(os.Getenv("WEBFETCH_PROXY_URL"))
	proxyBase = strings.TrimRight(proxyBase, "/")

	ua := strings.TrimSpace(os.Getenv("WEBFETCH_USER_AGENT"))
	if ua == "" {
		ua = "studyloop-ingest/1.0"
	}

	return &fetcher{
		log:        log.With("service", "WebFetcher"),
		proxyBase:  proxyBase,
		userAgent:  ua,
		maxBytes:   defaultMaxPageBytes,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (f *fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	target := parsed.String()
	if f.proxyBase != "" {
		target = f.proxyBase + "?url=" + url.QueryEscape(parsed.String())
	}

	var body []byte
	err = httpx.Retry(ctx, httpx.RetryOptions{MaxAttempts: 3}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &statusError{host: parsed.Host, code: resp.StatusCode}
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
		if err != nil {
			return err
		}
		if len(b) == 0 {
			return fmt.Errorf("fetch %s: empty body", parsed.Host)
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

type statusError struct {
	host string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("fetch %s: http %d", e.host, e.code)
}

func (e *statusError) HTTPStatusCode() int { return e.code }
