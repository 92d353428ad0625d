package builder

import (
	"math"

	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Orientation positions the solute before the box is sized. It is one of
// [Align], [Offset] or [AutoCenter].
type Orientation interface {
	// Name is a short label for logs and reports.
	Name() string

	orient(b *Builder, c *Context, h structure.Handle) (structure.Handle, error)
}

// Align superimposes the solute onto a reference structure, usually an
// entry from the OPM database that is already placed in a membrane.
type Align struct {
	Reference    string
	SoluteSel    sel.Expr // nil means protein backbone
	ReferenceSel sel.Expr // nil means protein backbone
}

// Offset moves the solute along the membrane normal by Z and then rotates
// it about the normal by -Rotation degrees. Rotations are quoted relative
// to the membrane, so the solute turns the other way.
type Offset struct {
	Z        float64
	Rotation float64
}

// AutoCenter centers the solute and makes its in-plane bounding box
// symmetric about the origin.
type AutoCenter struct{}

// OrientOptions holds the orientation settings as they appear in
// configuration.
type OrientOptions struct {
	ZMove        float64
	ZRotation    float64
	Reference    string
	ReferenceSel sel.Expr
}

// NewOrientation picks the orientation variant for o. A reference
// structure cannot be combined with a manual offset or rotation.
func NewOrientation(o OrientOptions) (Orientation, error) {
	manual := o.ZMove != 0 || o.ZRotation != 0
	switch {
	case o.Reference != "" && manual:
		return nil, derrors.New(derrors.ErrCodeConflictingOrientation,
			"cannot combine reference structure %s with a manual offset or rotation", o.Reference)
	case o.Reference != "":
		return Align{Reference: o.Reference, ReferenceSel: o.ReferenceSel}, nil
	case manual:
		return Offset{Z: o.ZMove, Rotation: o.ZRotation}, nil
	}
	return AutoCenter{}, nil
}

func (Align) Name() string      { return "align" }
func (Offset) Name() string     { return "offset" }
func (AutoCenter) Name() string { return "center" }

func (a Align) orient(b *Builder, c *Context, h structure.Handle) (structure.Handle, error) {
	ref, err := b.Engine.Load(a.Reference)
	if err != nil {
		return 0, err
	}
	defer b.Engine.Release(ref)

	soluteSel, refSel := a.SoluteSel, a.ReferenceSel
	if soluteSel == nil {
		soluteSel = sel.Backbone()
	}
	if refSel == nil {
		refSel = sel.Backbone()
	}
	ids, err := b.Engine.Select(h, soluteSel)
	if err != nil {
		return 0, err
	}
	refIDs, err := b.Engine.Select(ref, refSel)
	if err != nil {
		return 0, err
	}
	if len(ids) != len(refIDs) {
		return 0, derrors.New(derrors.ErrCodeInvalidSelection,
			"alignment selects %d solute atoms but %d reference atoms", len(ids), len(refIDs))
	}
	t, err := b.Engine.Fit(h, ids, ref, refIDs)
	if err != nil {
		return 0, err
	}
	b.Logger.Info("aligned solute to reference", "reference", a.Reference, "atoms", len(ids))
	return h, b.Engine.Transform(h, nil, t)
}

func (o Offset) orient(b *Builder, c *Context, h structure.Handle) (structure.Handle, error) {
	if o.Z != 0 {
		if err := b.Engine.Translate(h, nil, geom.Vec3{0, 0, o.Z}); err != nil {
			return 0, err
		}
	}
	if o.Rotation != 0 {
		theta := -o.Rotation * math.Pi / 180
		if err := b.Engine.Transform(h, nil, geom.RotationAbout(geom.Z, theta)); err != nil {
			return 0, err
		}
	}
	b.Logger.Info("moved solute", "z", o.Z, "rotation", o.Rotation)
	return h, nil
}

// orient centers h, evens out the in-plane padding and reloads the result
// into a fresh handle. The caller releases h.
func (AutoCenter) orient(b *Builder, c *Context, h structure.Handle) (structure.Handle, error) {
	if err := b.Engine.Center(h, false); err != nil {
		return 0, err
	}
	ids, err := b.Engine.Select(h, sel.All())
	if err != nil {
		return 0, err
	}
	pts, err := b.Engine.Positions(h, ids)
	if err != nil {
		return 0, err
	}
	ext, ok := geom.Bounds(pts)
	if !ok {
		return h, nil
	}
	shift := ext.Center().Scale(-1)
	shift[geom.Z] = 0
	if err := b.Engine.Translate(h, nil, shift); err != nil {
		return 0, err
	}

	path := c.scratchPath("centered_solute.json")
	if err := b.Engine.Save(h, path); err != nil {
		return 0, err
	}
	fresh, err := b.Engine.Load(path)
	if err != nil {
		return 0, err
	}
	b.Logger.Debug("centered solute", "shift_x", shift[0], "shift_y", shift[1])
	return fresh, nil
}
