package sel

import "github.com/matzehuels/dabble/pkg/geom"

// Residue-name vocabularies behind the named keywords.
var (
	WaterNames = []string{"TIP3", "HOH", "WAT", "SOL", "TIP4", "TIP5", "SPC", "T3P", "OPC"}

	ProteinNames = []string{
		"ALA", "ARG", "ASN", "ASP", "CYS", "GLN", "GLU", "GLY", "HIS", "ILE",
		"LEU", "LYS", "MET", "PHE", "PRO", "SER", "THR", "TRP", "TYR", "VAL",
		"HID", "HIE", "HIP", "HSD", "HSE", "HSP", "CYX", "CYM", "ASH", "GLH",
		"LYN", "ACE", "NME",
	}

	LipidNames = []string{
		"POPC", "POPE", "POPG", "POPS", "DPPC", "DOPC", "DMPC", "DLPC", "DOPE",
		"DOPS", "CHL1", "CHOL", "PA", "PC", "PE", "PS", "PGR", "OL", "ST", "MY", "LA",
	}

	IonNames = []string{"NA", "SOD", "K", "POT", "CL", "CLA", "MG", "CAL", "ZN"}

	BackboneNames = []string{"N", "CA", "C", "O"}

	// RingNames are residues whose side chains carry aromatic rings.
	RingNames = []string{"HID", "HIE", "HIP", "HIS", "HSD", "HSE", "HSP", "PHE", "TRP", "TYR"}
)

// All selects every atom.
func All() Expr { return Const(true) }

// None selects nothing.
func None() Expr { return Const(false) }

// And returns the conjunction of terms. Nested conjunctions are flattened.
func And(terms ...Expr) Expr {
	out := make(Conj, 0, len(terms))
	for _, t := range terms {
		switch v := t.(type) {
		case Conj:
			out = append(out, v...)
		case Const:
			if !v {
				return None()
			}
		default:
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return All()
	case 1:
		return out[0]
	}
	return out
}

// Or returns the disjunction of terms. Nested disjunctions are flattened.
func Or(terms ...Expr) Expr {
	out := make(Disj, 0, len(terms))
	for _, t := range terms {
		switch v := t.(type) {
		case Disj:
			out = append(out, v...)
		case Const:
			if v {
				return All()
			}
		default:
			out = append(out, t)
		}
	}
	switch len(out) {
	case 0:
		return None()
	case 1:
		return out[0]
	}
	return out
}

// Not negates e.
func Not(e Expr) Expr {
	switch v := e.(type) {
	case Const:
		return !v
	case Neg:
		return v.X
	}
	return Neg{X: e}
}

// Is matches a string attribute against any of values.
func Is(f Field, values ...string) Expr { return Match{Field: f, Values: values} }

// IsInt matches an integer attribute against any of values.
func IsInt(f Field, values ...int) Expr { return Ints{Field: f, Values: values} }

// Between matches an integer attribute in the closed range [lo, hi].
func Between(f Field, lo, hi int) Expr { return Range{Field: f, Lo: lo, Hi: hi} }

// Cmp compares a coordinate against v.
func Cmp(a geom.Axis, op Op, v float64) Expr { return Coord{Axis: a, Op: op, Value: v} }

// AbsCmp compares the absolute value of a coordinate against v.
func AbsCmp(a geom.Axis, op Op, v float64) Expr {
	return Coord{Axis: a, Abs: true, Op: op, Value: v}
}

// WithinOf selects atoms within d of any atom in of.
func WithinOf(d float64, of Expr) Expr { return Within{Dist: d, Of: of} }

// SameResidueAs expands e to whole residues.
func SameResidueAs(e Expr) Expr { return SameResidue{Of: e} }

// IsKept selects atoms still marked for output.
func IsKept() Expr { return Kept{} }

// Hydrogen selects hydrogen atoms.
func Hydrogen() Expr { return Is(Element, "H") }

// Heavy selects non-hydrogen atoms ("noh").
func Heavy() Expr { return Not(Hydrogen()) }

// Water selects common water residue names.
func Water() Expr { return Is(ResName, WaterNames...) }

// Protein selects standard amino-acid residues.
func Protein() Expr { return Is(ResName, ProteinNames...) }

// Lipid selects common lipid residue names.
func Lipid() Expr { return Is(ResName, LipidNames...) }

// Ion selects common monatomic ion residue names.
func Ion() Expr { return Is(ResName, IonNames...) }

// Backbone selects protein backbone heavy atoms.
func Backbone() Expr { return And(Protein(), Is(Name, BackboneNames...)) }
