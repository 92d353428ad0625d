package structure

import (
	"strings"

	"github.com/matzehuels/dabble/pkg/geom"
)

// Handle is an opaque reference to a structure owned by an engine.
type Handle uint64

// Atom is a single atom record.
type Atom struct {
	Index   int
	Serial  int
	Name    string
	ResName string
	ResID   int
	Chain   string
	Segment string
	Element string
	Residue int
	Pos     geom.Vec3
	Charge  float64
	HetAtm  bool
	Keep    bool
}

// IsHydrogen reports whether the atom is a hydrogen.
func (a *Atom) IsHydrogen() bool { return a.Element == "H" }

// Identity is the part of an atom that names what it is.
type Identity struct {
	Element string
	Name    string
	ResName string
}

// Structure is a set of atoms with an optional orthorhombic periodic cell.
type Structure struct {
	Title string
	Atoms []Atom
	Cell  geom.Vec3
}

// Periodic reports whether all three cell lengths are set.
func (s *Structure) Periodic() bool {
	return s.Cell[0] > 0 && s.Cell[1] > 0 && s.Cell[2] > 0
}

// Len returns the number of atoms, kept or not.
func (s *Structure) Len() int { return len(s.Atoms) }

// Kept returns the number of atoms with the keep mark set.
func (s *Structure) Kept() int {
	n := 0
	for i := range s.Atoms {
		if s.Atoms[i].Keep {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (s *Structure) Clone() *Structure {
	out := &Structure{Title: s.Title, Cell: s.Cell, Atoms: make([]Atom, len(s.Atoms))}
	copy(out.Atoms, s.Atoms)
	return out
}

// Compact returns a copy holding only kept atoms, reindexed from zero.
func (s *Structure) Compact() *Structure {
	out := &Structure{Title: s.Title, Cell: s.Cell, Atoms: make([]Atom, 0, s.Kept())}
	for _, a := range s.Atoms {
		if !a.Keep {
			continue
		}
		a.Index = len(out.Atoms)
		out.Atoms = append(out.Atoms, a)
	}
	return out
}

// Append adds copies of other's atoms, shifting their residue serials past
// the ones already present and reindexing them.
func (s *Structure) Append(other *Structure) {
	offset := s.MaxResidue() + 1
	for _, a := range other.Atoms {
		a.Index = len(s.Atoms)
		a.Residue += offset
		s.Atoms = append(s.Atoms, a)
	}
}

// MaxResidue returns the largest residue serial, or -1 when empty.
func (s *Structure) MaxResidue() int {
	m := -1
	for i := range s.Atoms {
		m = max(m, s.Atoms[i].Residue)
	}
	return m
}

// Finalize reindexes atoms, marks all of them kept and assigns residue
// serials. A new residue starts whenever chain, segment, resid or residue
// name changes from one atom to the next.
func (s *Structure) Finalize() {
	res := -1
	var prev *Atom
	for i := range s.Atoms {
		a := &s.Atoms[i]
		a.Index = i
		a.Keep = true
		if prev == nil || a.Chain != prev.Chain || a.Segment != prev.Segment ||
			a.ResID != prev.ResID || a.ResName != prev.ResName {
			res++
		}
		a.Residue = res
		prev = a
	}
}

// Positions returns the coordinates of all atoms.
func (s *Structure) Positions() []geom.Vec3 {
	out := make([]geom.Vec3, len(s.Atoms))
	for i := range s.Atoms {
		out[i] = s.Atoms[i].Pos
	}
	return out
}

// CanonicalElement normalizes an element symbol to "Na", "Cl", "C" style.
func CanonicalElement(e string) string {
	e = strings.TrimSpace(e)
	if e == "" {
		return ""
	}
	return strings.ToUpper(e[:1]) + strings.ToLower(e[1:])
}
