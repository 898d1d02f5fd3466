package entity

import (
	"errors"
	"net"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "valid https URL", url: "https://93.184.216.34/feed", wantErr: false},
		{name: "valid URL with port", url: "https://93.184.216.34:8080/feed", wantErr: false},
		{name: "empty URL", url: "", wantErr: true},
		{name: "invalid scheme - ftp", url: "ftp://example.com/feed", wantErr: true},
		{name: "invalid scheme - file", url: "file:///etc/passwd", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
		{name: "malformed URL", url: "ht!tp://example.com", wantErr: true},
		{name: "no scheme", url: "example.com", wantErr: true},
		{name: "URL exceeding maximum length", url: "https://example.com/" + string(make([]byte, 2050)), wantErr: true},
		{name: "localhost", url: "http://localhost/feed", wantErr: true},
		{name: "loopback", url: "http://127.0.0.1/feed", wantErr: true},
		{name: "private 10.x", url: "http://10.0.0.1/feed", wantErr: true},
		{name: "cloud metadata", url: "http://169.254.169.254/latest/meta-data", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL_ErrorTypes(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "https://", "http://127.0.0.1"} {
		err := ValidateURL(raw)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("ValidateURL(%q): expected ValidationError, got %T", raw, err)
		}
	}
}

func TestNormalizeChannelHandle(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "@durov", want: "@durov"},
		{in: "durov", want: "@durov"},
		{in: "t.me/durov", want: "@durov"},
		{in: "https://t.me/durov/", want: "@durov"},
		{in: "https://t.me/s/tonblockchain", want: "@tonblockchain"},
		{in: "  @news_channel  ", want: "@news_channel"},
		{in: "", wantErr: true},
		{in: "@abc", wantErr: true},
		{in: "@1channel", wantErr: true},
		{in: "@bad-name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeChannelHandle(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeChannelHandle(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeChannelHandle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip        string
		isPrivate bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"169.254.169.254", true},
		{"fe80::1", true},
		{"10.123.45.67", true},
		{"172.20.10.5", true},
		{"192.168.1.1", true},
		{"0.0.0.0", true},
		{"8.8.8.8", false},
		{"172.32.0.0", false},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if got := isPrivateIP(ip); got != tt.isPrivate {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.isPrivate)
			}
		})
	}
}
