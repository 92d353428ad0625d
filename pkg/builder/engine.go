package builder

import (
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Engine owns structures and evaluates selections over them.
//
// Atom id slices refer to atom indices within one handle. A nil id slice
// passed to Translate or Transform means every atom.
type Engine interface {
	Load(path string) (structure.Handle, error)
	Save(h structure.Handle, path string) error
	Release(h structure.Handle)

	Select(h structure.Handle, x sel.Expr) ([]int, error)
	Atoms(h structure.Handle, ids []int) ([]structure.Atom, error)
	Positions(h structure.Handle, ids []int) ([]geom.Vec3, error)
	Centroid(h structure.Handle, ids []int) (geom.Vec3, error)

	SetKeep(h structure.Handle, ids []int, keep bool) (int, error)
	SetIdentity(h structure.Handle, id int, ident structure.Identity, charge float64) error
	SetChain(h structure.Handle, ids []int, chain string) error
	Chains(h structure.Handle) ([]string, error)

	Translate(h structure.Handle, ids []int, v geom.Vec3) error
	Transform(h structure.Handle, ids []int, t geom.Transform) error
	Fit(h structure.Handle, ids []int, ref structure.Handle, refIDs []int) (geom.Transform, error)
	Center(h structure.Handle, centerZ bool) error

	Combine(hs ...structure.Handle) (structure.Handle, error)
	SetCell(h structure.Handle, cell geom.Vec3) error
}

// Analytics computes aggregate properties of structures.
type Analytics interface {
	Dimensions(h structure.Handle) (geom.Vec3, error)
	Replicate(h structure.Handle, n [3]int) (structure.Handle, error)
	NetCharge(h structure.Handle, x sel.Expr) (float64, error)
	SystemNetCharge(h structure.Handle) (float64, error)
	IonsNeeded(h structure.Handle, req structure.IonRequest) (structure.IonCounts, error)
}
