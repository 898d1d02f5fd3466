// Package repository declares the persistence contracts used by the use cases.
package repository

import "errors"

// ErrDuplicate is returned by inserts that hit a unique key, such as a second
// draft for the same (source kind, source URL).
var ErrDuplicate = errors.New("row already exists for unique key")
