// Package scraper fetches raw items from watched sources: RSS/Atom feeds
// through gofeed and public channel previews through goquery.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"feedwatch/internal/resilience/retry"
)

const (
	maxBodySize  = 10 * 1024 * 1024 // 10MB
	maxRedirects = 5
	userAgent    = "Mozilla/5.0 (compatible; feedwatch/1.0)"
)

// ErrPrivateAddress is returned when a source resolves to a private network.
var ErrPrivateAddress = errors.New("private address")

// NewHTTPClient returns the client shared by the fetchers. It keeps cookies
// between requests, which the channel preview host expects from a session.
func NewHTTPClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil) // only fails on a non-nil options value
	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// get issues a GET and returns the response of a 200 answer. Any other
// status becomes a *retry.HTTPError. The body is capped at maxBodySize.
func get(ctx context.Context, client *http.Client, rawURL, accept string) (*http.Response, io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, nil, retry.NewHTTPError(resp)
	}

	body := struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxBodySize), resp.Body}
	return resp, body, nil
}

// validateURL rejects non-http(s) URLs and hosts that resolve to private,
// loopback or link-local addresses.
func validateURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s (only http/https allowed)", u.Scheme)
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, u.Hostname())
	if err != nil {
		return fmt.Errorf("DNS lookup failed: %w", err)
	}
	for _, addr := range addrs {
		if isPrivateIP(addr.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateAddress, u.Hostname(), addr.IP)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
