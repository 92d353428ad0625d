package engine

import (
	"math"
	"slices"
	"strings"

	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

type evaluator struct {
	s *structure.Structure
}

func newEvaluator(s *structure.Structure) *evaluator {
	return &evaluator{s: s}
}

// eval returns one flag per atom.
func (ev *evaluator) eval(x sel.Expr) ([]bool, error) {
	atoms := ev.s.Atoms
	mask := make([]bool, len(atoms))

	switch x := x.(type) {
	case sel.Const:
		if x {
			for i := range mask {
				mask[i] = true
			}
		}

	case sel.Kept:
		for i := range atoms {
			mask[i] = atoms[i].Keep
		}

	case sel.Match:
		get, fold, err := stringField(x.Field)
		if err != nil {
			return nil, err
		}
		for i := range atoms {
			v := get(&atoms[i])
			mask[i] = slices.ContainsFunc(x.Values, func(want string) bool {
				if fold {
					return strings.EqualFold(v, want)
				}
				return v == want
			})
		}

	case sel.Ints:
		get, err := intField(x.Field)
		if err != nil {
			return nil, err
		}
		for i := range atoms {
			mask[i] = slices.Contains(x.Values, get(&atoms[i]))
		}

	case sel.Range:
		get, err := intField(x.Field)
		if err != nil {
			return nil, err
		}
		for i := range atoms {
			v := get(&atoms[i])
			mask[i] = v >= x.Lo && v <= x.Hi
		}

	case sel.Coord:
		if x.Axis < 0 || x.Axis > 2 {
			return nil, derrors.New(derrors.ErrCodeInvalidSelection, "invalid axis %d", x.Axis)
		}
		for i := range atoms {
			v := atoms[i].Pos[x.Axis]
			if x.Abs {
				v = math.Abs(v)
			}
			mask[i] = x.Op.Eval(v, x.Value)
		}

	case sel.Within:
		target, err := ev.eval(x.Of)
		if err != nil {
			return nil, err
		}
		ev.within(mask, target, x.Dist)

	case sel.SameResidue:
		inner, err := ev.eval(x.Of)
		if err != nil {
			return nil, err
		}
		residues := make(map[int]bool)
		for i, ok := range inner {
			if ok {
				residues[atoms[i].Residue] = true
			}
		}
		for i := range atoms {
			mask[i] = residues[atoms[i].Residue]
		}

	case sel.Conj:
		for i := range mask {
			mask[i] = true
		}
		for _, term := range x {
			m, err := ev.eval(term)
			if err != nil {
				return nil, err
			}
			for i := range mask {
				mask[i] = mask[i] && m[i]
			}
		}

	case sel.Disj:
		for _, term := range x {
			m, err := ev.eval(term)
			if err != nil {
				return nil, err
			}
			for i := range mask {
				mask[i] = mask[i] || m[i]
			}
		}

	case sel.Neg:
		m, err := ev.eval(x.X)
		if err != nil {
			return nil, err
		}
		for i := range mask {
			mask[i] = !m[i]
		}

	default:
		return nil, derrors.New(derrors.ErrCodeInvalidSelection, "unsupported selection node %T", x)
	}
	return mask, nil
}

// within sets mask for atoms no farther than d from any target atom.
// Target atoms always select themselves.
func (ev *evaluator) within(mask, target []bool, d float64) {
	atoms := ev.s.Atoms
	var ids []int
	for i, ok := range target {
		if ok {
			ids = append(ids, i)
			mask[i] = true
		}
	}
	if len(ids) == 0 || d <= 0 {
		return
	}

	cell := ev.s.Cell
	if !ev.s.Periodic() {
		cell = geom.Vec3{}
	}
	g := newGrid(d, cell)
	for _, id := range ids {
		g.insert(id, atoms[id].Pos)
	}
	for i := range atoms {
		if !mask[i] {
			mask[i] = g.near(atoms[i].Pos, d, func(id int) geom.Vec3 { return atoms[id].Pos })
		}
	}
}

func stringField(f sel.Field) (get func(*structure.Atom) string, fold bool, err error) {
	switch f {
	case sel.Name:
		return func(a *structure.Atom) string { return a.Name }, false, nil
	case sel.ResName:
		return func(a *structure.Atom) string { return a.ResName }, false, nil
	case sel.Element:
		return func(a *structure.Atom) string { return a.Element }, true, nil
	case sel.Chain:
		return func(a *structure.Atom) string { return a.Chain }, false, nil
	case sel.Segment:
		return func(a *structure.Atom) string { return a.Segment }, false, nil
	}
	return nil, false, derrors.New(derrors.ErrCodeInvalidSelection, "field %s is not a text attribute", f)
}

func intField(f sel.Field) (func(*structure.Atom) int, error) {
	switch f {
	case sel.ResID:
		return func(a *structure.Atom) int { return a.ResID }, nil
	case sel.Index:
		return func(a *structure.Atom) int { return a.Index }, nil
	case sel.Residue:
		return func(a *structure.Atom) int { return a.Residue }, nil
	}
	return nil, derrors.New(derrors.ErrCodeInvalidSelection, "field %s is not a numeric attribute", f)
}
