package text

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ErrInvalidEncoding is returned when the input is not valid UTF-8.
var ErrInvalidEncoding = errors.New("text is not valid UTF-8")

var (
	htmlTagPattern   = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	htmlBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|blockquote|pre|h[1-6])>`)

	mdLinkPattern   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	urlPattern      = regexp.MustCompile(`https?://\S+`)
	tmePattern      = regexp.MustCompile(`(?:^|\s)(?:www\.)?t\.me/\S+`)
	mentionPattern  = regexp.MustCompile(`(^|[^\p{L}\p{N}_.+\-])@[\p{L}\p{N}_]+`)
	hashtagPattern  = regexp.MustCompile(`(^|[^\p{L}\p{N}_&/])#[\p{L}\p{N}_]+`)
	boldPattern     = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	underPattern    = regexp.MustCompile(`_{2,3}([^_]+)_{2,3}`)
	codePattern     = regexp.MustCompile("`{1,3}([^`]*)`{1,3}")
	strikePattern   = regexp.MustCompile(`~~([^~]+)~~`)
	spoilerPattern  = regexp.MustCompile(`\|\|([^|]+)\|\|`)
	quotePattern    = regexp.MustCompile(`(?m)^>[ \t]?`)
	ellipsisPattern = regexp.MustCompile(`\.{4,}`)
	bangPattern     = regexp.MustCompile(`!{2,}`)
	questionPattern = regexp.MustCompile(`\?{2,}`)
	spacePattern    = regexp.MustCompile(`[ \t\x{00A0}\x{2009}\x{202F}]+`)
	blankPattern    = regexp.MustCompile(`\n{3,}`)
)

// CleanForMatching reduces a raw post to legible plain text.
// Links keep their label, while URLs, mentions, hashtags, markdown markers and
// decorative symbols are removed. Entities are decoded whether or not the
// input carries markup, and e-mail addresses survive. An empty result is
// "", nil; only invalid input produces an error.
func CleanForMatching(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", ErrInvalidEncoding
	}
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	s := raw
	if htmlTagPattern.MatchString(s) {
		plain, err := stripHTML(s)
		if err != nil {
			return "", fmt.Errorf("strip html: %w", err)
		}
		s = plain
	} else {
		s = html.UnescapeString(s)
	}

	s = mdLinkPattern.ReplaceAllString(s, "$1")
	s = urlPattern.ReplaceAllString(s, "")
	s = tmePattern.ReplaceAllString(s, " ")
	s = mentionPattern.ReplaceAllString(s, "$1")
	s = hashtagPattern.ReplaceAllString(s, "$1")

	s = codePattern.ReplaceAllString(s, "$1")
	s = boldPattern.ReplaceAllString(s, "$1")
	s = underPattern.ReplaceAllString(s, "$1")
	s = strikePattern.ReplaceAllString(s, "$1")
	s = spoilerPattern.ReplaceAllString(s, "$1")
	s = quotePattern.ReplaceAllString(s, "")

	s = strings.Map(dropDecorative, s)

	s = ellipsisPattern.ReplaceAllString(s, "...")
	s = bangPattern.ReplaceAllString(s, "!")
	s = questionPattern.ReplaceAllString(s, "?")

	return collapseWhitespace(s), nil
}

// stripHTML converts line-level tags to newlines and returns the document text.
func stripHTML(s string) (string, error) {
	s = htmlBreakPattern.ReplaceAllString(s, "\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spacePattern.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// dropDecorative removes emoji, pictographs, dingbats, box drawing,
// geometric shapes, list bullets and the joiners used to build emoji sequences.
func dropDecorative(r rune) rune {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF, // emoji, pictographs, regional indicators
		r >= 0x2600 && r <= 0x27BF,   // misc symbols, dingbats
		r >= 0x2B00 && r <= 0x2BFF,   // misc symbols and arrows
		r >= 0x2500 && r <= 0x25FF,   // box drawing, block elements, geometric shapes
		r >= 0xE0020 && r <= 0xE007F, // tag sequences
		r == 0xFE0E, r == 0xFE0F, r == 0x200D, r == 0x20E3,
		r == 0x2022, r == 0x2023, r == 0x2043, r == 0x00B7,
		r == '|':
		return -1
	}
	return r
}
