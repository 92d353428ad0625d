package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Transform is a row-major 4×4 homogeneous matrix.
type Transform [4][4]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation returns a pure translation by v.
func Translation(v Vec3) Transform {
	t := Identity()
	t[0][3], t[1][3], t[2][3] = v[0], v[1], v[2]
	return t
}

// RotationAbout returns a rotation by theta radians about the given axis.
// The 2-D rotation block is embedded in an otherwise identity matrix.
func RotationAbout(a Axis, theta float64) Transform {
	c, s := math.Cos(theta), math.Sin(theta)
	t := Identity()
	i, j := (a+1)%3, (a+2)%3
	t[i][i], t[i][j] = c, -s
	t[j][i], t[j][j] = s, c
	return t
}

// Apply transforms a point.
func (t Transform) Apply(p Vec3) Vec3 {
	var out Vec3
	for i := range 3 {
		out[i] = t[i][0]*p[0] + t[i][1]*p[1] + t[i][2]*p[2] + t[i][3]
	}
	return out
}

// Compose returns t∘o, the transform that applies o first and then t.
func (t Transform) Compose(o Transform) Transform {
	var out Transform
	for i := range 4 {
		for j := range 4 {
			for k := range 4 {
				out[i][j] += t[i][k] * o[k][j]
			}
		}
	}
	return out
}

// Fit computes the rigid transform that superimposes mobile onto target in
// the least-squares sense (Kabsch). Both slices must pair up atom by atom.
func Fit(mobile, target []Vec3) (Transform, error) {
	if len(mobile) != len(target) {
		return Transform{}, fmt.Errorf("point count mismatch: %d vs %d", len(mobile), len(target))
	}
	if len(mobile) < 3 {
		return Transform{}, fmt.Errorf("need at least 3 points, got %d", len(mobile))
	}

	cm, ct := Centroid(mobile), Centroid(target)

	h := mat.NewDense(3, 3, nil)
	for n := range mobile {
		p, q := mobile[n].Sub(cm), target[n].Sub(ct)
		for i := range 3 {
			for j := range 3 {
				h.Set(i, j, h.At(i, j)+p[i]*q[j])
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return Transform{}, fmt.Errorf("svd failed to converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := mat.NewDiagDense(3, []float64{1, 1, math.Copysign(1, mat.Det(&vut))})

	var r, vd mat.Dense
	vd.Mul(&v, d)
	r.Mul(&vd, u.T())

	t := Identity()
	for i := range 3 {
		for j := range 3 {
			t[i][j] = r.At(i, j)
		}
	}
	rc := t.Apply(cm)
	shift := ct.Sub(rc)
	t[0][3], t[1][3], t[2][3] = shift[0], shift[1], shift[2]
	return t, nil
}
