package io

import "github.com/matzehuels/dabble/pkg/structure"

// formalCharges holds residue-template formal charges keyed by residue name
// and atom name. An empty residue name matches any residue.
var formalCharges = map[[2]string]float64{
	{"ARG", "CZ"}:  1,
	{"LYS", "NZ"}:  1,
	{"HIP", "NE2"}: 1,
	{"HSP", "NE2"}: 1,
	{"ASP", "CG"}:  -1,
	{"GLU", "CD"}:  -1,
	{"", "OXT"}:    -1,
}

var ionCharges = map[string]float64{
	"Na": 1,
	"K":  1,
	"Cl": -1,
	"Ca": 2,
	"Mg": 2,
	"Zn": 2,
}

// AssignFormalCharges sets one integer charge per charged group for files
// that carry no charge columns. Single-atom ion residues take the charge of
// their element; every other atom is neutral unless it is the
// representative atom of a charged side chain or a C-terminus.
func AssignFormalCharges(s *structure.Structure) {
	size := make(map[int]int)
	for i := range s.Atoms {
		size[s.Atoms[i].Residue]++
	}
	for i := range s.Atoms {
		a := &s.Atoms[i]
		a.Charge = 0
		if q, ok := ionCharges[a.Element]; ok && size[a.Residue] == 1 {
			a.Charge = q
			continue
		}
		if q, ok := formalCharges[[2]string{a.ResName, a.Name}]; ok {
			a.Charge = q
			continue
		}
		if q, ok := formalCharges[[2]string{"", a.Name}]; ok {
			a.Charge = q
		}
	}
}
