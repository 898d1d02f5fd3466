// Package config loads the watchlist: the keyword vocabulary and the
// sources seeded into the database at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeywordsEnv overrides the keywords of the watchlist file when set.
const KeywordsEnv = "KEYWORDS"

// Watchlist represents the watchlist YAML file.
//
//	keywords: [TON, wallet, "tg premium"]
//	feeds:    [https://example.com/rss]
//	channels: ["@durov"]
type Watchlist struct {
	Keywords []string `yaml:"keywords"`
	Feeds    []string `yaml:"feeds"`
	Channels []string `yaml:"channels"`
}

// LoadWatchlist reads path and applies the KEYWORDS override. An empty
// path or a missing file yields an empty watchlist so the vocabulary can
// come from the environment alone.
func LoadWatchlist(path string) (*Watchlist, error) {
	var wl Watchlist

	if path != "" {
		// #nosec G304 -- path comes from the operator's environment
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read watchlist: %w", err)
		default:
			if err := yaml.Unmarshal(data, &wl); err != nil {
				return nil, fmt.Errorf("failed to parse watchlist: %w", err)
			}
		}
	}

	if env := os.Getenv(KeywordsEnv); strings.TrimSpace(env) != "" {
		wl.Keywords = SplitList(env)
	}

	wl.Keywords = compact(wl.Keywords)
	wl.Feeds = compact(wl.Feeds)
	wl.Channels = compact(wl.Channels)

	if len(wl.Keywords) == 0 {
		return nil, errors.New("watchlist has no keywords")
	}
	return &wl, nil
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(s string) []string {
	return compact(strings.Split(s, ","))
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
