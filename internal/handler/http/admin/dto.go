package admin

import (
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/usecase/monitor"
)

type SourceDTO struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toSourceDTO(s *entity.Source) SourceDTO {
	return SourceDTO{
		ID:        s.ID,
		Kind:      string(s.Kind),
		Address:   s.Address,
		Name:      s.DisplayName(),
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
	}
}

type DraftDTO struct {
	ID          int64      `json:"id"`
	SourceKind  string     `json:"source_kind"`
	SourceName  string     `json:"source_name"`
	Text        string     `json:"text"`
	SourceURL   string     `json:"source_url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Keywords    []string   `json:"keywords"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func toDraftDTO(d *entity.Draft) DraftDTO {
	keywords := d.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return DraftDTO{
		ID:          d.ID,
		SourceKind:  string(d.SourceKind),
		SourceName:  d.SourceName,
		Text:        d.Text,
		SourceURL:   d.SourceURL,
		PublishedAt: d.PublishedAt,
		Keywords:    keywords,
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
		ProcessedAt: d.ProcessedAt,
	}
}

type CycleStatsDTO struct {
	Sources      int     `json:"sources"`
	Failed       int     `json:"failed"`
	Fetched      int     `json:"fetched"`
	Stale        int     `json:"stale"`
	Empty        int     `json:"empty"`
	Matched      int     `json:"matched"`
	Duplicates   int     `json:"duplicates"`
	Staged       int     `json:"staged"`
	NotifyErrors int     `json:"notify_errors"`
	DurationSec  float64 `json:"duration_seconds"`
}

func toCycleStatsDTO(s *monitor.CycleStats) *CycleStatsDTO {
	if s == nil {
		return nil
	}
	return &CycleStatsDTO{
		Sources:      s.Sources,
		Failed:       s.Failed,
		Fetched:      s.Fetched,
		Stale:        s.Stale,
		Empty:        s.Empty,
		Matched:      s.Matched,
		Duplicates:   s.Duplicates,
		Staged:       s.Staged,
		NotifyErrors: s.NotifyErrors,
		DurationSec:  s.Duration.Seconds(),
	}
}

type runResponse struct {
	Status string         `json:"status"`
	Stats  *CycleStatsDTO `json:"stats,omitempty"`
}
