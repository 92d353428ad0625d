package engine

import (
	"math"

	"github.com/matzehuels/dabble/pkg/geom"
)

// grid is a cell list for fixed-radius neighbour queries. In a periodic
// cell the bins wrap around and distances use the minimum image; otherwise
// bins extend without bound.
type grid struct {
	cell geom.Vec3 // zero when not periodic
	n    [3]int    // bins per axis when periodic
	size geom.Vec3 // bin edge length per axis
	bins map[[3]int][]int
}

func newGrid(d float64, cell geom.Vec3) *grid {
	g := &grid{cell: cell, bins: make(map[[3]int][]int)}
	for i := range 3 {
		g.size[i] = d
		if cell[i] > 0 {
			g.n[i] = max(1, int(math.Floor(cell[i]/d)))
			g.size[i] = cell[i] / float64(g.n[i])
		}
	}
	return g
}

func (g *grid) periodic() bool { return g.cell[0] > 0 }

func (g *grid) key(p geom.Vec3) [3]int {
	var k [3]int
	for i := range 3 {
		v := p[i]
		if g.periodic() {
			v -= g.cell[i] * math.Floor(v/g.cell[i])
		}
		k[i] = int(math.Floor(v / g.size[i]))
		if g.periodic() {
			k[i] = ((k[i] % g.n[i]) + g.n[i]) % g.n[i]
		}
	}
	return k
}

func (g *grid) insert(id int, p geom.Vec3) {
	k := g.key(p)
	g.bins[k] = append(g.bins[k], id)
}

// near reports whether any inserted point lies within d of p.
func (g *grid) near(p geom.Vec3, d float64, pos func(int) geom.Vec3) bool {
	k := g.key(p)
	d2 := d * d
	var seen map[[3]int]bool
	if g.periodic() && min(g.n[0], g.n[1], g.n[2]) < 3 {
		seen = make(map[[3]int]bool, 27)
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				nk := [3]int{k[0] + dx, k[1] + dy, k[2] + dz}
				if g.periodic() {
					for i := range 3 {
						nk[i] = ((nk[i] % g.n[i]) + g.n[i]) % g.n[i]
					}
				}
				if seen != nil {
					if seen[nk] {
						continue
					}
					seen[nk] = true
				}
				for _, id := range g.bins[nk] {
					delta := pos(id).Sub(p)
					if g.periodic() {
						delta = geom.MinImage(delta, g.cell)
					}
					if delta.Dot(delta) <= d2 {
						return true
					}
				}
			}
		}
	}
	return false
}
