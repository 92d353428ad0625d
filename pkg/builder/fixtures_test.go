package builder

import (
	"path/filepath"
	"testing"

	"github.com/matzehuels/dabble/pkg/geom"
	sio "github.com/matzehuels/dabble/pkg/io"
	"github.com/matzehuels/dabble/pkg/structure"
)

// waters appends a lattice of TIP3 molecules with oxygens at
// origin + spacing*(i,j,k).
func waters(s *structure.Structure, n [3]int, spacing float64, origin geom.Vec3) {
	resid := 1
	for i := range n[0] {
		for j := range n[1] {
			for k := range n[2] {
				o := origin.Add(geom.Vec3{float64(i), float64(j), float64(k)}.Scale(spacing))
				for _, a := range []struct {
					name, elem string
					off        geom.Vec3
				}{
					{"OH2", "O", geom.Vec3{}},
					{"H1", "H", geom.Vec3{0, 0.76, 0.59}},
					{"H2", "H", geom.Vec3{0, -0.76, 0.59}},
				} {
					s.Atoms = append(s.Atoms, structure.Atom{
						Name: a.name, ResName: "TIP3", ResID: resid, Chain: "W",
						Element: a.elem, Pos: o.Add(a.off),
					})
				}
				resid++
			}
		}
	}
}

// waterBox returns an n×n×n periodic water lattice with 3.1 Å spacing.
func waterBox(n int) *structure.Structure {
	const spacing = 3.1
	s := &structure.Structure{Title: "water box"}
	waters(s, [3]int{n, n, n}, spacing, geom.Vec3{spacing / 2, spacing / 2, spacing / 2})
	l := float64(n) * spacing
	s.Cell = geom.Vec3{l, l, l}
	s.Finalize()
	return s
}

// membranePatch returns a 32×32×70 bilayer patch: 4×4 lipids per leaflet
// on an 8 Å grid with four water layers on each side. Lipids use chain A
// with residue ids 1-9, colliding with the test solute on purpose.
func membranePatch() *structure.Structure {
	s := &structure.Structure{Title: "bilayer"}
	resid := 0
	for _, side := range []float64{1, -1} {
		for i := range 4 {
			for j := range 4 {
				x, y := 4+8*float64(i), 4+8*float64(j)
				resid++
				for _, a := range []struct {
					name, elem string
					z          float64
					dx         float64
				}{
					{"P", "P", 20, 0},
					{"C1", "C", 16, 0},
					{"H1", "H", 14, 1},
					{"C2", "C", 12, 0},
					{"C3", "C", 8, 0},
					{"C4", "C", 4, 0},
				} {
					s.Atoms = append(s.Atoms, structure.Atom{
						Name: a.name, ResName: "POPC", ResID: resid%9 + 1, Chain: "A",
						Segment: "MEMB", Element: a.elem,
						Pos: geom.Vec3{x + a.dx, y, side * a.z},
					})
				}
			}
		}
	}
	waters(s, [3]int{10, 10, 4}, 3.2, geom.Vec3{1.6, 1.6, 23})
	waters(s, [3]int{10, 10, 4}, 3.2, geom.Vec3{1.6, 1.6, -32.6})
	s.Cell = geom.Vec3{32, 32, 70}
	s.Finalize()
	return s
}

type fixtureAtom struct {
	name, elem string
	pos        geom.Vec3
}

// transmembraneSolute returns a chain A column of nine residues along z
// with side chains reaching into the membrane grid. Its formal charge is
// +1 (ASP, LYS, ARG).
func transmembraneSolute() *structure.Structure {
	s := &structure.Structure{Title: "solute"}
	side := map[int]struct {
		resname string
		atoms   []fixtureAtom
	}{
		1: {"ASP", []fixtureAtom{{"CG", "C", geom.Vec3{0, -1.5, -16}}}},
		3: {"LYS", []fixtureAtom{{"NZ", "N", geom.Vec3{-4, -4, -8}}}},
		6: {"TYR", []fixtureAtom{{"CZ", "C", geom.Vec3{3, -3, 4.5}}, {"OH", "O", geom.Vec3{4, -4, 4.5}}}},
		8: {"PHE", []fixtureAtom{{"CG", "C", geom.Vec3{2, 2, 12}}, {"CZ", "C", geom.Vec3{4, 4, 12}}}},
		9: {"ARG", []fixtureAtom{{"CZ", "C", geom.Vec3{0, 1.5, 16}}}},
	}
	for r := 1; r <= 9; r++ {
		z := -16 + 4*float64(r-1)
		resname := "ALA"
		atoms := []fixtureAtom{
			{"N", "N", geom.Vec3{0, 0, z - 1.2}},
			{"CA", "C", geom.Vec3{0, 0, z}},
			{"C", "C", geom.Vec3{0, 0, z + 1.2}},
			{"O", "O", geom.Vec3{0.8, 0, z + 1.2}},
		}
		if sc, ok := side[r]; ok {
			resname = sc.resname
			atoms = append(atoms, sc.atoms...)
		}
		for _, a := range atoms {
			s.Atoms = append(s.Atoms, structure.Atom{
				Name: a.name, ResName: resname, ResID: r, Chain: "A", Element: a.elem, Pos: a.pos,
			})
		}
	}
	s.Finalize()
	return s
}

// globularSolute returns a small +1 charged chain A solute around the
// origin, about 8 Å across.
func globularSolute() *structure.Structure {
	s := &structure.Structure{Title: "solute"}
	for r := 1; r <= 3; r++ {
		z := -4 + 4*float64(r-1)
		resname := "ALA"
		if r == 2 {
			resname = "LYS"
		}
		for _, a := range []fixtureAtom{
			{"N", "N", geom.Vec3{-4, 0, z}},
			{"CA", "C", geom.Vec3{0, -4, z}},
			{"C", "C", geom.Vec3{4, 0, z}},
			{"O", "O", geom.Vec3{0, 4, z}},
		} {
			s.Atoms = append(s.Atoms, structure.Atom{
				Name: a.name, ResName: resname, ResID: r, Chain: "A", Element: a.elem, Pos: a.pos,
			})
		}
		if r == 2 {
			s.Atoms = append(s.Atoms, structure.Atom{
				Name: "NZ", ResName: "LYS", ResID: 2, Chain: "A", Element: "N", Pos: geom.Vec3{0, 0, 0},
			})
		}
	}
	s.Finalize()
	return s
}

// writeFixture exports s into dir and returns the path.
func writeFixture(t *testing.T, dir, name string, s *structure.Structure) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := sio.Export(s, path); err != nil {
		t.Fatalf("export %s: %v", name, err)
	}
	return path
}
