package engine

import (
	"math"

	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Dimensions returns the periodic cell of h when it has one, and the
// extent of its kept atoms otherwise.
func (e *Engine) Dimensions(h structure.Handle) (geom.Vec3, error) {
	s, err := e.get(h)
	if err != nil {
		return geom.Vec3{}, err
	}
	if s.Periodic() {
		return s.Cell, nil
	}
	var pts []geom.Vec3
	for i := range s.Atoms {
		if s.Atoms[i].Keep {
			pts = append(pts, s.Atoms[i].Pos)
		}
	}
	ext, ok := geom.Bounds(pts)
	if !ok {
		return geom.Vec3{}, nil
	}
	return ext.Size(), nil
}

// Replicate tiles h n[0]×n[1]×n[2] times along the axes, offsetting each
// copy by whole multiples of its dimensions, and returns the result as a
// new handle whose cell is the tiled size.
func (e *Engine) Replicate(h structure.Handle, n [3]int) (structure.Handle, error) {
	for i, f := range n {
		if f < 1 {
			return 0, derrors.New(derrors.ErrCodeInvalidInput, "replication factor %d along %s", f, geom.Axis(i))
		}
	}
	dims, err := e.Dimensions(h)
	if err != nil {
		return 0, err
	}
	src, err := e.get(h)
	if err != nil {
		return 0, err
	}

	out := &structure.Structure{Title: src.Title}
	for i := range n[0] {
		for j := range n[1] {
			for k := range n[2] {
				shift := geom.Vec3{float64(i) * dims[0], float64(j) * dims[1], float64(k) * dims[2]}
				tile := src.Clone()
				for a := range tile.Atoms {
					tile.Atoms[a].Pos = tile.Atoms[a].Pos.Add(shift)
				}
				out.Append(tile)
			}
		}
	}
	out.Cell = geom.Vec3{dims[0] * float64(n[0]), dims[1] * float64(n[1]), dims[2] * float64(n[2])}
	return e.Adopt(out), nil
}

// NetCharge sums the charges of atoms matching x.
func (e *Engine) NetCharge(h structure.Handle, x sel.Expr) (float64, error) {
	ids, err := e.Select(h, x)
	if err != nil {
		return 0, err
	}
	atoms, err := e.Atoms(h, ids)
	if err != nil {
		return 0, err
	}
	q := 0.0
	for i := range atoms {
		q += atoms[i].Charge
	}
	return q, nil
}

// SystemNetCharge sums the charges of all kept atoms.
func (e *Engine) SystemNetCharge(h structure.Handle) (float64, error) {
	return e.NetCharge(h, sel.IsKept())
}

// IonsNeeded counts kept waters and loose ions of h and computes how many
// cations and anions must still be placed to reach req.
func (e *Engine) IonsNeeded(h structure.Handle, req structure.IonRequest) (structure.IonCounts, error) {
	waters, err := e.Count(h, sel.And(
		sel.IsKept(),
		sel.Is(sel.ResName, req.WaterResName),
		sel.Is(sel.Element, "O"),
	))
	if err != nil {
		return structure.IonCounts{}, err
	}
	cations, err := e.looseIons(h, req.Cation)
	if err != nil {
		return structure.IonCounts{}, err
	}
	anions, err := e.looseIons(h, req.Anion)
	if err != nil {
		return structure.IonCounts{}, err
	}
	q, err := e.SystemNetCharge(h)
	if err != nil {
		return structure.IonCounts{}, err
	}
	return structure.Salt(req, waters, cations, anions, int(math.Round(q))), nil
}

// looseIons counts kept single-atom residues of the given element.
func (e *Engine) looseIons(h structure.Handle, element string) (int, error) {
	s, err := e.get(h)
	if err != nil {
		return 0, err
	}
	size := make(map[int]int)
	for i := range s.Atoms {
		if s.Atoms[i].Keep {
			size[s.Atoms[i].Residue]++
		}
	}
	n := 0
	for i := range s.Atoms {
		a := &s.Atoms[i]
		if a.Keep && size[a.Residue] == 1 && a.Element == structure.CanonicalElement(element) {
			n++
		}
	}
	return n, nil
}
