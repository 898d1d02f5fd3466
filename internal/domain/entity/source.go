package entity

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind is the category of an origin. It selects the fetcher adapter
// and namespaces the dedup key.
type SourceKind string

const (
	// SourceKindFeed is a syndicated RSS/Atom feed addressed by URL.
	SourceKindFeed SourceKind = "feed"
	// SourceKindChannel is a public chat channel addressed by @handle.
	SourceKindChannel SourceKind = "channel"
)

// ParseSourceKind converts a stored or user supplied kind into a SourceKind.
// "rss" and "telegram" are accepted as aliases.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "feed", "rss":
		return SourceKindFeed, nil
	case "channel", "telegram":
		return SourceKindChannel, nil
	default:
		return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown source kind %q", s)}
	}
}

// Source is one origin to monitor.
// Sources are deactivated instead of deleted so their checkpoint survives.
type Source struct {
	ID        int64
	Kind      SourceKind
	Address   string // feed URL or @handle
	Name      string // display name, defaults to Address
	Active    bool
	CreatedAt time.Time
}

// DisplayName returns Name, or Address when no name was given.
func (s *Source) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Address
}

// CheckpointKey is the settings key holding this source's watermark.
func (s *Source) CheckpointKey() string {
	return "checkpoint:" + string(s.Kind) + ":" + s.Address
}

// Validate checks the kind and address of the source.
// Channel addresses are normalized to the @handle form.
func (s *Source) Validate() error {
	switch s.Kind {
	case SourceKindFeed:
		return ValidateURL(s.Address)
	case SourceKindChannel:
		handle, err := NormalizeChannelHandle(s.Address)
		if err != nil {
			return err
		}
		s.Address = handle
		return nil
	default:
		return &ValidationError{Field: "kind", Message: "kind must be feed or channel"}
	}
}
