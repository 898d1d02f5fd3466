package entity

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// maxURLLength caps feed URLs accepted from administrators.
const maxURLLength = 2048

// channelHandlePattern matches a public channel username without the leading @.
var channelHandlePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{4,31}$`)

// ValidateURL checks that a feed URL is absolute http(s) with a public host.
// Hosts resolving to loopback, link-local or private ranges are rejected.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}
	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	host := parsedURL.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return &ValidationError{Field: "url", Message: "url cannot point to private network"}
		}
		return nil
	}
	if host == "localhost" {
		return &ValidationError{Field: "url", Message: "url cannot point to private network"}
	}

	ips, err := net.LookupIP(host)
	if err == nil {
		for _, ip := range ips {
			if isPrivateIP(ip) {
				return &ValidationError{Field: "url", Message: "url cannot point to private network"}
			}
		}
	}

	return nil
}

// NormalizeChannelHandle accepts "@name", "name", "t.me/name" or
// "https://t.me/name" and returns "@name".
func NormalizeChannelHandle(raw string) (string, error) {
	h := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	h = strings.TrimPrefix(h, "www.")
	h = strings.TrimPrefix(h, "t.me/s/")
	h = strings.TrimPrefix(h, "t.me/")
	h = strings.TrimPrefix(h, "@")
	h = strings.TrimSuffix(h, "/")

	if h == "" {
		return "", &ValidationError{Field: "address", Message: "channel handle is required"}
	}
	if !channelHandlePattern.MatchString(h) {
		return "", &ValidationError{
			Field:   "address",
			Message: fmt.Sprintf("invalid channel handle %q", raw),
		}
	}
	return "@" + h, nil
}

// isPrivateIP reports loopback, link-local and RFC 1918 addresses.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return true
	}

	privateIPv4Ranges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16", // includes cloud metadata
	}

	for _, cidr := range privateIPv4Ranges {
		_, subnet, _ := net.ParseCIDR(cidr)
		if subnet.Contains(ip) {
			return true
		}
	}

	return false
}
