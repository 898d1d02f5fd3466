// Package source manages the monitored origins: adding, deactivating,
// listing and seeding them from the watchlist.
package source

import "errors"

var (
	// ErrSourceNotFound indicates that the requested source does not exist.
	ErrSourceNotFound = errors.New("source not found")
)
