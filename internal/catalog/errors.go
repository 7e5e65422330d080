package catalog

import "errors"

var (
	// ErrProviderUnavailable indicates the catalog provider is not configured.
	ErrProviderUnavailable = errors.New("catalog provider unavailable")
	// ErrNotFound indicates the upstream API reported no matching record.
	ErrNotFound = errors.New("catalog record not found")
)
