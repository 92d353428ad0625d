package builder

import (
	"context"
	"math"

	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/observability"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// removeResidues clears the keep mark of every residue with a kept atom
// matching x and returns the number of atoms newly marked.
func (b *Builder) removeResidues(h structure.Handle, x sel.Expr) (int, error) {
	ids, err := b.Engine.Select(h, sel.SameResidueAs(sel.And(sel.IsKept(), x)))
	if err != nil {
		return 0, err
	}
	return b.Engine.SetKeep(h, ids, false)
}

// Trim removes non-solute residues with a heavy atom farther than buf from
// the solute along the membrane normal. Solvent-only systems are trimmed
// along x and y as well. It returns the number of atoms marked for
// removal. Trimming an already trimmed structure marks nothing.
func (b *Builder) Trim(ctx context.Context, c *Context, h structure.Handle, buf float64) (int, error) {
	if buf <= 0 {
		return 0, derrors.New(derrors.ErrCodeMissingBuffer, "water buffer must be set to trim solvent")
	}
	solute := c.Solute()
	ext, ok, err := b.extent(h, sel.And(sel.IsKept(), solute))
	if err != nil || !ok {
		return 0, err
	}

	axes := []geom.Axis{geom.Z}
	if c.WaterOnly {
		axes = append(axes, geom.X, geom.Y)
	}
	var outside []sel.Expr
	for _, a := range axes {
		outside = append(outside,
			sel.Cmp(a, sel.Greater, ext.Max[a]+buf),
			sel.Cmp(a, sel.Less, ext.Min[a]-buf),
		)
	}
	n, err := b.removeResidues(h, sel.And(sel.Not(solute), sel.Heavy(), sel.Or(outside...)))
	if err != nil {
		return 0, err
	}
	observability.Build().OnAtomsRemoved(ctx, "trim", n)
	return n, nil
}

// trimBoundary removes residues sticking out of the box in the plane of a
// membrane system. Non-lipid residues go when any heavy atom is outside.
// Lipids go only when the centroid of their heavy atoms is outside, so
// lipids straddling the boundary are kept for the periodic image.
func (b *Builder) trimBoundary(ctx context.Context, c *Context, h structure.Handle, lipid sel.Expr) (int, error) {
	hx, hy := c.Box[0]/2, c.Box[1]/2
	outside := sel.Or(
		sel.AbsCmp(geom.X, sel.Greater, hx),
		sel.AbsCmp(geom.Y, sel.Greater, hy),
	)

	suspects, err := b.Engine.Select(h, sel.And(sel.IsKept(), lipid, outside))
	if err != nil {
		return 0, err
	}
	atoms, err := b.Engine.Atoms(h, suspects)
	if err != nil {
		return 0, err
	}
	straddling := make(map[int]bool)
	for i := range atoms {
		straddling[atoms[i].Residue] = true
	}

	heavy, err := b.Engine.Select(h, sel.And(sel.Heavy(), sel.SameResidueAs(sel.And(sel.IsKept(), lipid, outside))))
	if err != nil {
		return 0, err
	}
	heavyAtoms, err := b.Engine.Atoms(h, heavy)
	if err != nil {
		return 0, err
	}
	byResidue := make(map[int][]geom.Vec3)
	for i := range heavyAtoms {
		r := heavyAtoms[i].Residue
		byResidue[r] = append(byResidue[r], heavyAtoms[i].Pos)
	}

	var bad []int
	for r := range straddling {
		pts := byResidue[r]
		if len(pts) == 0 {
			return 0, derrors.New(derrors.ErrCodeMalformedInput, "lipid residue %d outside the box has no heavy atoms", r)
		}
		center := geom.Centroid(pts)
		if math.Abs(center[geom.X]) > hx || math.Abs(center[geom.Y]) > hy {
			bad = append(bad, r)
		}
	}

	n, err := b.removeResidues(h, sel.And(
		sel.Heavy(),
		outside,
		sel.Or(sel.IsInt(sel.Residue, bad...), sel.Not(lipid)),
		sel.Not(c.Solute()),
	))
	if err != nil {
		return 0, err
	}
	observability.Build().OnAtomsRemoved(ctx, "trim.boundary", n)
	return n, nil
}
