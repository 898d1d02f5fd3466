package entity

import (
	"fmt"
	"time"
)

// DraftStatus is the review state of a staged draft.
type DraftStatus string

const (
	DraftStatusNew       DraftStatus = "new"
	DraftStatusProcessed DraftStatus = "processed"
	DraftStatusDeleted   DraftStatus = "deleted"
	DraftStatusSkipped   DraftStatus = "skipped"
)

// ParseDraftStatus validates a status string.
func ParseDraftStatus(s string) (DraftStatus, error) {
	switch st := DraftStatus(s); st {
	case DraftStatusNew, DraftStatusProcessed, DraftStatusDeleted, DraftStatusSkipped:
		return st, nil
	default:
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown draft status %q", s)}
	}
}

// draftTransitions lists the allowed moves out of each status.
// processed and deleted are terminal.
var draftTransitions = map[DraftStatus][]DraftStatus{
	DraftStatusNew:     {DraftStatusProcessed, DraftStatusDeleted, DraftStatusSkipped},
	DraftStatusSkipped: {DraftStatusNew, DraftStatusDeleted},
}

// CanTransition reports whether a draft may move from one status to another.
func (s DraftStatus) CanTransition(to DraftStatus) bool {
	for _, next := range draftTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Draft is an item staged for human review.
// Text and Keywords are immutable once stored; only Status changes.
type Draft struct {
	ID          int64
	SourceKind  SourceKind
	SourceName  string
	Text        string
	SourceURL   string
	PublishedAt *time.Time
	Keywords    []string
	Status      DraftStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// Validate checks the fields required to stage a draft.
func (d *Draft) Validate() error {
	if d.SourceKind != SourceKindFeed && d.SourceKind != SourceKindChannel {
		return &ValidationError{Field: "source_kind", Message: "kind must be feed or channel"}
	}
	if d.SourceURL == "" {
		return &ValidationError{Field: "source_url", Message: "source URL is required"}
	}
	if d.Text == "" {
		return &ValidationError{Field: "text", Message: "text is required"}
	}
	if len(d.Keywords) == 0 {
		return &ValidationError{Field: "keywords", Message: "at least one matched keyword is required"}
	}
	return nil
}
