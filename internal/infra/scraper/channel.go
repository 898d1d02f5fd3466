package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/resilience/circuitbreaker"
	"feedwatch/internal/resilience/retry"
)

const (
	// DefaultChannelBaseURL serves the public web preview of channels.
	DefaultChannelBaseURL = "https://t.me"
	defaultMaxPages       = 5
)

// ErrPreviewUnavailable is returned for channels that are private, missing,
// or have the web preview disabled.
var ErrPreviewUnavailable = errors.New("channel preview unavailable")

// ChannelFetcher reads public channels through their web preview at
// <base>/s/<handle>, paging backwards with ?before=<id>.
type ChannelFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config

	BaseURL  string
	MaxPages int
}

func NewChannelFetcher(client *http.Client) *ChannelFetcher {
	return &ChannelFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.ChannelFetchConfig()),
		retryConfig:    retry.ChannelFetchConfig(),
		BaseURL:        DefaultChannelBaseURL,
		MaxPages:       defaultMaxPages,
	}
}

// channelPage is one parsed preview page.
type channelPage struct {
	items []entity.RawItem
	minID int64
}

// FetchSince returns the newest posts of the channel, newest first, up to
// limit. Paging stops once a page reaches back to since, the limit is met
// or MaxPages pages were read. Item URLs always use the canonical
// https://t.me/<handle>/<id> form.
func (c *ChannelFetcher) FetchSince(ctx context.Context, src *entity.Source, since time.Time, limit int) ([]entity.RawItem, error) {
	handle := strings.TrimPrefix(src.Address, "@")
	if handle == "" {
		return nil, fmt.Errorf("%w: empty handle", entity.ErrInvalidInput)
	}

	var (
		items  []entity.RawItem
		seen   = make(map[int64]bool)
		before int64
	)
	for page := 0; page < c.maxPages(); page++ {
		p, err := c.fetchPage(ctx, handle, before)
		if err != nil {
			if page > 0 {
				// keep what earlier pages returned
				slog.Warn("channel paging stopped early",
					slog.String("handle", handle),
					slog.Int("page", page),
					slog.Any("error", err))
				break
			}
			return nil, err
		}

		reachedSince := false
		for _, it := range p.items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			items = append(items, it)
			if it.PublishedAt != nil && !it.PublishedAt.After(since) {
				reachedSince = true
			}
		}

		if len(p.items) == 0 || reachedSince || (limit > 0 && len(items) >= limit) || p.minID <= 1 {
			break
		}
		before = p.minID
	}

	slices.SortFunc(items, func(a, b entity.RawItem) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *ChannelFetcher) maxPages() int {
	if c.MaxPages <= 0 {
		return defaultMaxPages
	}
	return c.MaxPages
}

func (c *ChannelFetcher) fetchPage(ctx context.Context, handle string, before int64) (channelPage, error) {
	var page channelPage
	err := retry.WithBackoff(ctx, c.retryConfig, func() error {
		res, err := circuitbreaker.Do(c.circuitBreaker, func() (channelPage, error) {
			return c.doFetchPage(ctx, handle, before)
		})
		if circuitbreaker.IsOpenErr(err) {
			slog.Warn("channel fetch circuit breaker open, request rejected",
				slog.String("handle", handle),
				slog.String("state", c.circuitBreaker.State().String()))
		}
		page = res
		return err
	})
	return page, err
}

// doFetchPage performs one page request without retry or circuit breaker.
func (c *ChannelFetcher) doFetchPage(ctx context.Context, handle string, before int64) (channelPage, error) {
	pageURL := strings.TrimRight(c.BaseURL, "/") + "/s/" + url.PathEscape(handle)
	if before > 0 {
		pageURL += "?before=" + strconv.FormatInt(before, 10)
	}

	resp, body, err := get(ctx, c.client, pageURL, "text/html")
	if err != nil {
		return channelPage{}, err
	}
	defer func() { _ = body.Close() }()

	// private or missing channels redirect away from the /s/ preview
	if !strings.HasPrefix(resp.Request.URL.Path, "/s/") {
		return channelPage{}, fmt.Errorf("%w: @%s", ErrPreviewUnavailable, handle)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return channelPage{}, fmt.Errorf("parse HTML: %w", err)
	}
	return parseChannelPage(doc, handle), nil
}

// messageText returns the decoded plain text of a post body, one line per <br>.
func messageText(sel *goquery.Selection) string {
	sel.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(sel.Text())
}

// parseChannelPage extracts posts from a preview document. Posts whose
// data-post attribute does not belong to handle (forwards rendered inline)
// or has no numeric id are skipped.
func parseChannelPage(doc *goquery.Document, handle string) channelPage {
	var page channelPage
	doc.Find(".tgme_widget_message[data-post]").Each(func(_ int, msg *goquery.Selection) {
		post, _ := msg.Attr("data-post")
		owner, idStr, ok := strings.Cut(post, "/")
		if !ok || !strings.EqualFold(owner, handle) {
			return
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			return
		}

		item := entity.RawItem{
			Body: messageText(msg.Find(".tgme_widget_message_text").First()),
			URL:  fmt.Sprintf("%s/%s/%d", DefaultChannelBaseURL, owner, id),
			ID:   id,
		}
		if dt, ok := msg.Find(".tgme_widget_message_date time").Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, dt); err == nil {
				utc := t.UTC()
				item.PublishedAt = &utc
			}
		}

		page.items = append(page.items, item)
		if page.minID == 0 || id < page.minID {
			page.minID = id
		}
	})
	return page
}
