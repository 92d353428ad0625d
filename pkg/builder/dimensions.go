package builder

import (
	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Membrane thickness constants in Ångström.
const (
	HydrophobicThickness = 30.0
	FullThickness        = 50.0
)

// Extents are the solute diameters that determine the box.
type Extents struct {
	SoluteX, SoluteY float64 // whole solute
	TMX, TMY         float64 // solute atoms inside the hydrophobic band
	FullZ            float64 // solute plus membrane along the normal
}

// BoxSize derives the periodic box from e. Each in-plane side is the larger
// of the transmembrane and whole-solute diameters plus xyBuf. The normal
// side is FullZ plus zBuf.
func BoxSize(e Extents, xyBuf, zBuf float64) geom.Vec3 {
	return geom.Vec3{
		max(e.TMX+xyBuf, e.SoluteX+xyBuf),
		max(e.TMY+xyBuf, e.SoluteY+xyBuf),
		e.FullZ + zBuf,
	}
}

// CellSize measures the solute in either the loaded structure h or the file
// filename. Exactly one must be given.
//
// For membrane systems the normal extent includes the full membrane
// thickness so peripheral solutes still get a whole bilayer, and the
// transmembrane diameters come from solute atoms inside the hydrophobic
// band. For solvent-only systems the transmembrane diameters are zero.
func (b *Builder) CellSize(c *Context, h structure.Handle, filename string) (Extents, error) {
	switch {
	case h != 0 && filename != "":
		return Extents{}, derrors.New(derrors.ErrCodeAmbiguousInput,
			"cell size requested for both handle %d and file %s", h, filename)
	case filename != "":
		loaded, err := b.Engine.Load(filename)
		if err != nil {
			return Extents{}, err
		}
		defer b.Engine.Release(loaded)
		h = loaded
	case h == 0:
		return Extents{}, derrors.New(derrors.ErrCodeInvalidInput, "cell size needs a structure")
	}
	solute := c.Solute()
	if solute == nil {
		return Extents{}, derrors.New(derrors.ErrCodeInternal, "solute selection is not set")
	}

	all, _, err := b.extent(h, solute)
	if err != nil {
		return Extents{}, err
	}
	e := Extents{
		SoluteX: all.Diameter(geom.X),
		SoluteY: all.Diameter(geom.Y),
		FullZ:   all.Diameter(geom.Z),
	}
	if c.WaterOnly {
		return e, nil
	}

	half := FullThickness / 2
	e.FullZ = max(all.Max[geom.Z], half) - min(all.Min[geom.Z], -half)

	hyd := HydrophobicThickness / 2
	tm, _, err := b.extent(h, sel.And(solute,
		sel.Cmp(geom.Z, sel.Greater, -hyd),
		sel.Cmp(geom.Z, sel.Less, hyd),
	))
	if err != nil {
		return Extents{}, err
	}
	e.TMX = tm.Diameter(geom.X)
	e.TMY = tm.Diameter(geom.Y)
	return e, nil
}

// extent returns the bounding box of the atoms matching x and whether
// any atom matched. An empty selection has a zero extent.
func (b *Builder) extent(h structure.Handle, x sel.Expr) (geom.Extent, bool, error) {
	ids, err := b.Engine.Select(h, x)
	if err != nil {
		return geom.Extent{}, false, err
	}
	pts, err := b.Engine.Positions(h, ids)
	if err != nil {
		return geom.Extent{}, false, err
	}
	ext, ok := geom.Bounds(pts)
	return ext, ok, nil
}
