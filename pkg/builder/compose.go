package builder

import (
	"context"

	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// seamOverlap is how far added water slabs reach into the existing
// solvent so no vacuum layer forms at the seam.
const seamOverlap = 0.5

// WaterFill reports the water slabs added around the solute.
type WaterFill struct {
	Above, Below float64 // slab heights; 0 when no slab was needed
	Overlap      int     // slab atoms removed for touching the solute
}

// compose merges the solute with the centered patch into "inserted".
// Patch atoms that match the solute selection are moved to an unused chain
// first, so nothing added later can be mistaken for solute.
func (b *Builder) compose(c *Context) error {
	sol, err := c.mustHandle("solute")
	if err != nil {
		return err
	}
	patch, err := c.mustHandle("tiled_membrane")
	if err != nil {
		return err
	}

	ids, err := b.Engine.Select(patch, c.Solute())
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		chain, err := c.freeChain(patch)
		if err != nil {
			return err
		}
		if err := b.Engine.SetChain(patch, ids, chain); err != nil {
			return err
		}
		b.Logger.Debug("moved patch atoms off solute chains", "atoms", len(ids), "chain", chain)
	}

	inserted, err := b.Engine.Combine(sol, patch)
	if err != nil {
		return err
	}
	c.put("inserted", inserted)
	c.release("tiled_membrane")
	c.release("solute")
	return nil
}

// addWater fills the space above and below the solute with water when the
// patch does not reach the configured buffer, and stores the result as
// "combined".
//
// Each slab is tiled from the water patch to cover the box footprint and
// the missing height, placed flush against the existing solvent with a
// small overlap, and centered in the plane. Slab residues touching the
// solute are removed after the merge.
func (b *Builder) addWater(ctx context.Context, c *Context, cfg Config) (WaterFill, error) {
	var fill WaterFill
	if cfg.WaterBuffer <= 0 {
		return fill, derrors.New(derrors.ErrCodeMissingBuffer, "water buffer must be set to add solvent")
	}
	h, err := c.mustHandle("inserted")
	if err != nil {
		return fill, err
	}
	solute := c.Solute()

	solExt, _, err := b.extent(h, solute)
	if err != nil {
		return fill, err
	}
	solvent, ok, err := b.extent(h, sel.And(sel.Not(solute), sel.Not(cfg.LipidSel)))
	if err != nil {
		return fill, err
	}
	if !ok {
		solvent = solExt
	}
	others, ok, err := b.extent(h, sel.Not(solute))
	if err != nil {
		return fill, err
	}
	if !ok {
		others = solExt
	}

	up := cfg.WaterBuffer + solExt.Max[geom.Z] - solvent.Max[geom.Z]
	down := cfg.WaterBuffer + solvent.Min[geom.Z] - solExt.Min[geom.Z]
	if up <= 0 && down <= 0 {
		c.put("combined", h)
		c.release("inserted")
		return fill, nil
	}
	if cfg.Water == "" {
		return fill, derrors.New(derrors.ErrCodeInvalidInput, "a water patch is needed to add %.1f Å of solvent", max(up, down))
	}

	water, err := b.Engine.Load(cfg.Water)
	if err != nil {
		return fill, err
	}
	c.put("water", water)
	chain, err := c.freeChain(h)
	if err != nil {
		return fill, err
	}

	pieces := []structure.Handle{h}
	if up > 0 {
		slab, err := b.slab(ctx, c, cfg, "water_up", chain, up, others.Max[geom.Z]-seamOverlap, true)
		if err != nil {
			return fill, err
		}
		pieces = append(pieces, slab)
		fill.Above = up
		b.Logger.Info("added water above solute", "height", up)
	}
	if down > 0 {
		slab, err := b.slab(ctx, c, cfg, "water_down", chain, down, others.Min[geom.Z]+seamOverlap, false)
		if err != nil {
			return fill, err
		}
		pieces = append(pieces, slab)
		fill.Below = down
		b.Logger.Info("added water below solute", "height", down)
	}

	combined, err := b.Engine.Combine(pieces...)
	if err != nil {
		return fill, err
	}
	c.put("combined", combined)
	for _, name := range []string{"water_up", "water_down", "water", "inserted"} {
		c.release(name)
	}

	fill.Overlap, err = b.removeResidues(combined, sel.And(
		sel.Is(sel.Chain, chain),
		sel.Heavy(),
		sel.WithinOf(ClashDistance, sel.And(solute, sel.Heavy())),
	))
	if err != nil {
		return fill, err
	}
	return fill, nil
}

// slab tiles the water patch to the box footprint and the given height and
// places it with its lower face (above) or upper face (below) at z. The
// slab is registered under name.
//
// The atoms of a periodic patch span less than its cell, so the tiled
// height is padded by that difference and the seam overlap. The atoms of
// the slab then cover height measured from z.
func (b *Builder) slab(ctx context.Context, c *Context, cfg Config, name, chain string, height, z float64, above bool) (structure.Handle, error) {
	water, err := c.mustHandle("water")
	if err != nil {
		return 0, err
	}
	need, err := b.slabHeight(water, height)
	if err != nil {
		return 0, err
	}
	tiled, _, err := b.Tile(ctx, c, water, cfg.Water, geom.Vec3{c.Box[0], c.Box[1], need}, true)
	if err != nil {
		return 0, err
	}
	if tiled == water {
		if tiled, err = b.Engine.Combine(water); err != nil {
			return 0, err
		}
	}
	c.put(name, tiled)

	ext, _, err := b.extent(tiled, sel.All())
	if err != nil {
		return 0, err
	}
	move := z - ext.Min[geom.Z]
	if !above {
		move = z - ext.Max[geom.Z]
	}
	if err := b.Engine.Translate(tiled, nil, geom.Vec3{0, 0, move}); err != nil {
		return 0, err
	}
	if err := b.Engine.Center(tiled, false); err != nil {
		return 0, err
	}
	ids, err := b.Engine.Select(tiled, sel.All())
	if err != nil {
		return 0, err
	}
	return tiled, b.Engine.SetChain(tiled, ids, chain)
}

// slabHeight returns the tile target along z for a slab whose atoms must
// span height.
func (b *Builder) slabHeight(water structure.Handle, height float64) (float64, error) {
	dims, err := b.Analytics.Dimensions(water)
	if err != nil {
		return 0, err
	}
	atoms, ok, err := b.extent(water, sel.All())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, derrors.New(derrors.ErrCodeMalformedInput, "water patch has no atoms")
	}
	pad := max(dims[geom.Z]-atoms.Diameter(geom.Z), 0)
	return height + seamOverlap + pad, nil
}
