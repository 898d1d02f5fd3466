package repository

import "context"

// SettingRepository is a keyed string store.
type SettingRepository interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
