package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/platelog/backend/internal/domain"
)

const userAgent = "PlateLog/1.0"

var pdfMagic = []byte("%PDF")

// Client fetches menu pages, vendor APIs, and receipt PDFs. All fetches
// share one rate limiter so scrape runs stay polite to the upstreams.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxRetries  int
	log         *zap.SugaredLogger
}

// NewClient builds a fetch client. requestInterval is the minimum gap
// between outbound requests; zero disables pacing.
func NewClient(timeout, requestInterval time.Duration, log *zap.SugaredLogger) *Client {
	var limiter *rate.Limiter
	if requestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(requestInterval), 1)
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: limiter,
		maxRetries:  3,
		log:         log,
	}
}

// FetchJSON retrieves a URL and decodes the response body as JSON.
func (c *Client) FetchJSON(ctx context.Context, url string) (interface{}, error) {
	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %s is not json: %v", domain.ErrMalformedDocument, url, err)
	}
	return decoded, nil
}

// FetchText retrieves a URL as text (HTML or plain).
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url, "text/html,application/xhtml+xml,*/*")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchBytes retrieves a URL as raw bytes. A response that should be a
// PDF but lacks the magic header is rejected here, before the PDF
// reader trips over an HTML error page.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	body, err := c.get(ctx, url, "application/pdf,*/*")
	if err != nil {
		return nil, err
	}
	if looksLikePDFURL(url) && !bytes.HasPrefix(body, pdfMagic) {
		return nil, fmt.Errorf("%w: %s did not return a pdf", domain.ErrMalformedDocument, url)
	}
	return body, nil
}

// get executes a paced GET with retries for transient failures.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		body, retryable, err := c.doRequest(ctx, url, accept)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		if c.log != nil {
			c.log.Warnw("fetch retry", "url", url, "attempt", attempt, "error", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt*500) * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, url, accept string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", domain.ErrSourceFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading body: %v", domain.ErrSourceFetch, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %s returned 404", domain.ErrSourceFetch, url)
	default:
		return nil, true, fmt.Errorf("%w: %s returned status %d", domain.ErrSourceFetch, url, resp.StatusCode)
	}
}

func looksLikePDFURL(url string) bool {
	url, _, _ = strings.Cut(url, "?")
	url, _, _ = strings.Cut(url, "#")
	return strings.HasSuffix(strings.ToLower(url), ".pdf")
}
