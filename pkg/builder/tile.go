package builder

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/matzehuels/dabble/pkg/cache"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/observability"
	"github.com/matzehuels/dabble/pkg/structure"
)

// TileFactors returns how often a patch of size patch must be repeated
// along each axis to cover target. The z factor is 1 unless allowZ is set.
// An axis with a non-positive patch size is not tiled.
func TileFactors(patch, target geom.Vec3, allowZ bool) [3]int {
	var n [3]int
	for i := range n {
		n[i] = 1
		if patch[i] > 0 && target[i] > patch[i] {
			n[i] = int(math.Ceil(target[i] / patch[i]))
		}
	}
	if !allowZ {
		n[geom.Z] = 1
	}
	return n
}

// Tile replicates the patch h until it covers target. When no replication
// is needed h itself is returned. Otherwise the result is a new handle the
// caller owns.
//
// When source names the file h was loaded from, tiled patches are stored
// in and restored from the builder cache, keyed by the file contents and
// the factors.
func (b *Builder) Tile(ctx context.Context, c *Context, h structure.Handle, source string, target geom.Vec3, allowZ bool) (structure.Handle, [3]int, error) {
	dims, err := b.Analytics.Dimensions(h)
	if err != nil {
		return 0, [3]int{}, err
	}
	n := TileFactors(dims, target, allowZ)
	if n == [3]int{1, 1, 1} {
		return h, n, nil
	}

	var key string
	if source != "" {
		if sum, err := cache.HashFile(source); err == nil {
			key = b.Keyer.PatchKey(sum, cache.PatchKeyOpts{Factors: n, Format: "json.zst"})
		}
	}
	path := c.scratchPath(fmt.Sprintf("tiled-%dx%dx%d-%d.json.zst", n[0], n[1], n[2], h))

	if key != "" {
		if tiled, ok := b.restoreTile(ctx, key, path); ok {
			return tiled, n, nil
		}
	}

	tiled, err := b.Analytics.Replicate(h, n)
	if err != nil {
		return 0, [3]int{}, err
	}
	if key != "" {
		b.storeTile(ctx, key, tiled, path)
	}
	return tiled, n, nil
}

func (b *Builder) restoreTile(ctx context.Context, key, path string) (structure.Handle, bool) {
	data, hit, err := b.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "patch")
		return 0, false
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, false
	}
	h, err := b.Engine.Load(path)
	if err != nil {
		b.Logger.Warn("discarding unreadable cached patch", "error", err)
		_ = b.Cache.Delete(ctx, key)
		return 0, false
	}
	observability.Cache().OnCacheHit(ctx, "patch")
	b.Logger.Debug("restored tiled patch from cache", "key", key)
	return h, true
}

func (b *Builder) storeTile(ctx context.Context, key string, h structure.Handle, path string) {
	if err := b.Engine.Save(h, path); err != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if err := b.Cache.Set(ctx, key, data, cache.DefaultPatchTTL); err == nil {
		observability.Cache().OnCacheSet(ctx, "patch", len(data))
	}
}
