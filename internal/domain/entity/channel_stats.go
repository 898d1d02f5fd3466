package entity

import "time"

// KeywordCount is a keyword and the number of posts it matched.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// ChannelStats summarizes recent activity of one source.
type ChannelStats struct {
	SourceKind     SourceKind     `json:"source_kind"`
	SourceURL      string         `json:"source_url"`
	Days           int            `json:"days"`
	TotalPosts     int            `json:"total_posts"`
	MatchedPosts   int            `json:"matched_posts"`
	LastPostAt     *time.Time     `json:"last_post_at,omitempty"`
	AvgPostsPerDay float64        `json:"avg_posts_per_day"`
	TopKeywords    []KeywordCount `json:"top_keywords"`
	ActivityHours  [24]int        `json:"activity_hours"`
	AnalyzedAt     time.Time      `json:"analyzed_at"`
}
