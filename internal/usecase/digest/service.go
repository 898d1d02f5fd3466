// Package digest sends the daily summary of drafts still awaiting review.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/repository"
	"feedwatch/internal/utils/text"
)

const (
	// LastSentKey is the settings key holding the time of the last digest.
	LastSentKey = "digest_last_sent"
	// MaxDrafts caps the drafts one digest lists.
	MaxDrafts = 5
	// Window is how far back a digest looks for new drafts.
	Window = 24 * time.Hour

	previewRunes = 150
)

// ErrAlreadySent is returned by SendDaily when a digest already went out
// today in the service's location.
var ErrAlreadySent = errors.New("digest already sent today")

// Sender delivers a plain text message to the operators.
type Sender interface {
	Send(ctx context.Context, body string) error
}

// Result describes one sent digest.
type Result struct {
	Drafts int       `json:"drafts"`
	SentAt time.Time `json:"sent_at"`
}

// Service builds and sends digests. Location decides what "today" means for
// SendDaily and defaults to UTC.
type Service struct {
	Drafts   repository.DraftRepository
	Settings repository.SettingRepository
	Sender   Sender
	Location *time.Location
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// SendDaily sends the digest unless one was already sent today.
func (s *Service) SendDaily(ctx context.Context) (*Result, error) {
	last, err := s.LastSent(ctx)
	if err != nil {
		return nil, err
	}
	if last != nil && sameDay(*last, s.now(), s.location()) {
		return nil, ErrAlreadySent
	}
	return s.Send(ctx)
}

// Send builds the digest from the newest drafts with status new staged within
// Window, delivers it and records the send time. An empty digest is still
// sent so operators know monitoring ran.
func (s *Service) Send(ctx context.Context) (*Result, error) {
	now := s.now()
	drafts, err := s.recent(ctx, now)
	if err != nil {
		return nil, err
	}

	if err := s.Sender.Send(ctx, Format(drafts, now.In(s.location()))); err != nil {
		return nil, fmt.Errorf("send digest: %w", err)
	}
	if err := s.Settings.Set(ctx, LastSentKey, now.UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("record digest: %w", err)
	}

	slog.Info("digest sent", slog.Int("drafts", len(drafts)))
	return &Result{Drafts: len(drafts), SentAt: now.UTC()}, nil
}

// LastSent returns when the previous digest went out, or nil if never.
func (s *Service) LastSent(ctx context.Context) (*time.Time, error) {
	raw, ok, err := s.Settings.Get(ctx, LastSentKey)
	if err != nil {
		return nil, fmt.Errorf("read digest state: %w", err)
	}
	if !ok {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		slog.Warn("ignoring malformed digest state", slog.String("value", raw))
		return nil, nil
	}
	return &t, nil
}

func (s *Service) recent(ctx context.Context, now time.Time) ([]*entity.Draft, error) {
	status := entity.DraftStatusNew
	drafts, err := s.Drafts.List(ctx, repository.DraftFilter{Status: &status, Limit: MaxDrafts})
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	cutoff := now.Add(-Window)
	out := make([]*entity.Draft, 0, len(drafts))
	for _, d := range drafts {
		if d.CreatedAt.After(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Format renders the digest message for drafts as of day.
func Format(drafts []*entity.Draft, day time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily digest %s\n\n", day.Format("2006-01-02"))
	if len(drafts) == 0 {
		b.WriteString("No new drafts in the last 24 hours.")
		return b.String()
	}

	fmt.Fprintf(&b, "%d new drafts:\n", len(drafts))
	for i, d := range drafts {
		fmt.Fprintf(&b, "\n%d. #%d %s\n", i+1, d.ID, d.SourceName)
		if len(d.Keywords) > 0 {
			fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(d.Keywords, ", "))
		}
		b.WriteString(text.Truncate(d.Text, previewRunes))
		b.WriteString("\n")
		b.WriteString(d.SourceURL)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
