// Package cache stores build artifacts between runs.
//
// The builder caches tiled solvent patches: tiling a large membrane patch
// and serializing it is the most expensive step of a build, and the result
// depends only on the patch file contents and the tile factors.
//
// # Backends
//
//   - [FileCache]: one file per entry under a directory (CLI default)
//   - [RedisCache]: a shared cache for clusters building many systems
//   - [NullCache]: caching disabled
//
// # Keys
//
// Keys are produced by a [Keyer] and never depend on file paths, only on
// content hashes, so moving a patch file does not invalidate its entries.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
// Get reports a miss with ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultPatchTTL bounds how long a tiled patch stays cached.
const DefaultPatchTTL = 30 * 24 * time.Hour
