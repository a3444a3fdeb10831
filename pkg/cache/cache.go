// Package cache provides byte-level caching for migrated documents and
// validation reports.
//
// Backends:
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: disables caching
//
// Keys are produced by a [Keyer] so that every backend sees the same key
// layout. Values are opaque bytes; callers encode them (usually as JSON).
package cache

import (
	"context"
	"time"
)

// Default entry lifetimes.
const (
	// MigrationTTL bounds how long a migrated document is reused. Migration
	// is a pure function of the input bytes and migrator settings.
	MigrationTTL = 7 * 24 * time.Hour

	// ReportTTL bounds how long a validation report is reused. Reports also
	// depend on the catalog, which is part of the key.
	ReportTTL = 24 * time.Hour
)

// Cache stores opaque values by key.
type Cache interface {
	// Get returns the value for key. A miss is reported with ok == false and
	// a nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
