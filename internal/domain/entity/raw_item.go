package entity

import "time"

// RawItem is an item as returned by a fetcher, before filtering.
type RawItem struct {
	Title       string
	Body        string
	PublishedAt *time.Time // nil when the source did not provide a usable timestamp
	URL         string     // canonical URL, used as the dedup key
	ID          int64      // originating id for ordered sources, 0 when unknown
}

// Content joins the title and body the way they are matched and staged.
func (r RawItem) Content() string {
	switch {
	case r.Title == "":
		return r.Body
	case r.Body == "":
		return r.Title
	default:
		return r.Title + "\n\n" + r.Body
	}
}
