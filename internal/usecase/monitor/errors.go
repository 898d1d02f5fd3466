// Package monitor implements the content monitoring cycle: it fetches new
// items from every active source, keeps those matching the keyword vocabulary,
// drops anything already staged and stores the rest as drafts.
package monitor

import "errors"

// Sentinel errors for monitoring operations.
var (
	// ErrPersistence indicates that a storage call failed mid-cycle.
	// The cycle stops early and the failing source's checkpoint is not advanced.
	ErrPersistence = errors.New("persistence failure")

	// ErrSourcesFailed indicates that the cycle completed but at least one
	// source could not be fetched.
	ErrSourcesFailed = errors.New("one or more sources failed")

	// ErrNoFetcher indicates that no fetcher is registered for a source kind.
	ErrNoFetcher = errors.New("no fetcher for source kind")
)
