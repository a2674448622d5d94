package entity

import (
	"fmt"
	"net/url"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// NormalizeURL validates rawURL's format and upgrades a bare http:// link to
// https://, matching the ingress invariant that every Article.Link begins
// with https://. Any other scheme, an unparsable URL, or a missing host is
// rejected. SSRF protection against private/loopback hosts lives at the
// transport layer (internal/infra/fetcher's DenyPrivateIPs guard), which
// runs on every outbound request rather than once at ingestion.
func NormalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", &ValidationError{Field: "url", Message: "URL is required"}
	}

	// DoS protection: enforce maximum URL length
	if len(rawURL) > maxURLLength {
		return "", &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "https":
	case "http":
		parsedURL.Scheme = "https"
	default:
		return "", &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return "", &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	return parsedURL.String(), nil
}

// ValidateURL reports whether rawURL would pass NormalizeURL, for callers
// that only need a pass/fail check and don't consume the normalized form.
func ValidateURL(rawURL string) error {
	_, err := NormalizeURL(rawURL)
	return err
}
