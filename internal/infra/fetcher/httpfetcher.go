package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

// userAgents mirrors the original scraper's switch_headers rotation pool:
// six real-world UA strings chosen uniformly at random per request.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 6.1; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36",
	"Mozilla/5.0 (Windows NT 6.1; WOW64; Trident/7.0; AS; rv:11.0) like Gecko",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:55.0) Gecko/20100101 Firefox/55.0",
	"Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Edge/40.15063.0.0",
	"Mozilla/5.0 (Windows NT 6.1; WOW64; rv:54.0) Gecko/20100101 Firefox/54.0",
}

// switchHeaders picks a random User-Agent and attaches the fixed header set
// the original scraper sends with every request.
func switchHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Referer", "https://www.google.com")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Cache-Control", "max-age=0")
	req.Header.Set("Accept", "*/*")
}

// HTTPFetcher issues direct GET requests with a rotating User-Agent and a
// size/redirect/SSRF-guarded transport. It is the fallback path ProxyClient
// calls once its error threshold is crossed, and the follow-fetch HTMLExtractor
// uses to pull a read-more target.
type HTTPFetcher struct {
	client *http.Client
	config Config
}

// NewHTTPFetcher builds an HTTPFetcher whose transport enforces TLS 1.2+ and
// validates every redirect target against the SSRF guard.
func NewHTTPFetcher(config Config) *HTTPFetcher {
	f := &HTTPFetcher{config: config}
	f.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
	return f
}

// Fetch issues a GET against urlStr and returns the response body as a
// string, capped at config.MaxBodySize. Non-2xx responses and transport
// failures are reported as RequestError.
func (f *HTTPFetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	return f.FetchWithHeader(ctx, urlStr, "", "")
}

// FetchWithHeader behaves like Fetch but additionally sets a single extra
// header (headerKey/headerVal) on the outgoing request. It exists so
// ProxyClient can attach its edge-auth header without HTTPFetcher knowing
// anything about Cloudflare. Pass an empty headerKey to skip it.
func (f *HTTPFetcher) FetchWithHeader(ctx context.Context, urlStr, headerKey, headerVal string) (string, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request: %v", ErrInvalidURL, err)
	}
	switchHeaders(req)
	if headerKey != "" {
		req.Header.Set(headerKey, headerVal)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %w: exceeded %v", RequestError, ErrTimeout, f.config.Timeout)
		}
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return "", fmt.Errorf("%w: %w", RequestError, urlErr.Err)
		}
		return "", fmt.Errorf("%w: %v", RequestError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d", RequestError, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read body: %v", RequestError, err)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return "", fmt.Errorf("%w: response size exceeds %d bytes", ErrBodyTooLarge, f.config.MaxBodySize)
	}

	return string(body), nil
}
