package geom

import "math"

// Axis names a Cartesian axis.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// String returns the lowercase axis letter.
func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return "?"
}

// Vec3 is a point or displacement in Ångström.
type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v[0] * f, v[1] * f, v[2] * f}
}

// Dot returns the scalar product.
func (v Vec3) Dot(o Vec3) float64 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Extent is an axis-aligned bounding box.
type Extent struct {
	Min, Max Vec3
}

// Bounds returns the extent of pts. ok is false when pts is empty.
func Bounds(pts []Vec3) (e Extent, ok bool) {
	if len(pts) == 0 {
		return Extent{}, false
	}
	e.Min, e.Max = pts[0], pts[0]
	for _, p := range pts[1:] {
		for i := range 3 {
			e.Min[i] = min(e.Min[i], p[i])
			e.Max[i] = max(e.Max[i], p[i])
		}
	}
	return e, true
}

// Size returns max - min on every axis.
func (e Extent) Size() Vec3 { return e.Max.Sub(e.Min) }

// Diameter returns the extent along one axis.
func (e Extent) Diameter(a Axis) float64 { return e.Max[a] - e.Min[a] }

// Center returns the midpoint of the box.
func (e Extent) Center() Vec3 { return e.Min.Add(e.Max).Scale(0.5) }

// Centroid returns the unweighted mean of pts, or the zero vector.
func Centroid(pts []Vec3) Vec3 {
	var c Vec3
	if len(pts) == 0 {
		return c
	}
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(pts)))
}

// MinImage wraps d into [-cell/2, cell/2] on every axis with a positive
// cell length. Axes with a zero cell length are left untouched.
func MinImage(d, cell Vec3) Vec3 {
	for i := range 3 {
		if cell[i] <= 0 {
			continue
		}
		d[i] -= cell[i] * math.Round(d[i]/cell[i])
	}
	return d
}
