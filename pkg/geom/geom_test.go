package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b Vec3, tol float64) bool {
	return a.Sub(b).Norm() <= tol
}

func TestBounds(t *testing.T) {
	if _, ok := Bounds(nil); ok {
		t.Fatal("Bounds(nil) should report !ok")
	}
	e, ok := Bounds([]Vec3{{1, -2, 3}, {-4, 5, 0}, {2, 2, 9}})
	if !ok {
		t.Fatal("Bounds should report ok")
	}
	if e.Min != (Vec3{-4, -2, 0}) || e.Max != (Vec3{2, 5, 9}) {
		t.Errorf("Bounds = %+v", e)
	}
	if got := e.Diameter(Z); got != 9 {
		t.Errorf("Diameter(Z) = %v, want 9", got)
	}
	if got := e.Center(); got != (Vec3{-1, 1.5, 4.5}) {
		t.Errorf("Center = %v", got)
	}
}

func TestRotationAbout(t *testing.T) {
	tests := []struct {
		axis Axis
		in   Vec3
		want Vec3
	}{
		{Z, Vec3{1, 0, 0}, Vec3{0, 1, 0}},
		{X, Vec3{0, 1, 0}, Vec3{0, 0, 1}},
		{Y, Vec3{0, 0, 1}, Vec3{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.axis.String(), func(t *testing.T) {
			got := RotationAbout(tt.axis, math.Pi/2).Apply(tt.in)
			if !near(got, tt.want, eps) {
				t.Errorf("Apply = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotationKeepsNormalAxis(t *testing.T) {
	r := RotationAbout(Z, 0.7)
	got := r.Apply(Vec3{3, 4, 5})
	if math.Abs(got[2]-5) > eps {
		t.Errorf("z changed: %v", got[2])
	}
	if math.Abs(math.Hypot(got[0], got[1])-5) > eps {
		t.Errorf("in-plane radius changed: %v", got)
	}
}

func TestCompose(t *testing.T) {
	tr := Translation(Vec3{1, 2, 3})
	rot := RotationAbout(Z, math.Pi/2)
	got := tr.Compose(rot).Apply(Vec3{1, 0, 0})
	if !near(got, Vec3{1, 3, 3}, eps) {
		t.Errorf("Compose = %v", got)
	}
}

func TestFitRecoversRigidMotion(t *testing.T) {
	mobile := []Vec3{
		{0, 0, 0}, {1.5, 0, 0}, {0, 2, 0}, {0, 0, 3}, {1, 1, 1}, {-2, 0.5, 0.25},
	}
	want := Translation(Vec3{4, -1, 2}).Compose(RotationAbout(X, 0.4).Compose(RotationAbout(Z, 1.1)))

	target := make([]Vec3, len(mobile))
	for i, p := range mobile {
		target[i] = want.Apply(p)
	}

	got, err := Fit(mobile, target)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	for i, p := range mobile {
		if q := got.Apply(p); !near(q, target[i], 1e-6) {
			t.Errorf("point %d: got %v, want %v", i, q, target[i])
		}
	}
}

func TestFitErrors(t *testing.T) {
	if _, err := Fit([]Vec3{{}, {}}, []Vec3{{}}); err == nil {
		t.Error("mismatched lengths should fail")
	}
	if _, err := Fit([]Vec3{{}, {}}, []Vec3{{}, {}}); err == nil {
		t.Error("fewer than 3 points should fail")
	}
}

func TestMinImage(t *testing.T) {
	cell := Vec3{10, 10, 0}
	got := MinImage(Vec3{9, -6, 40}, cell)
	if !near(got, Vec3{-1, 4, 40}, eps) {
		t.Errorf("MinImage = %v", got)
	}
}

func TestCentroid(t *testing.T) {
	if got := Centroid(nil); got != (Vec3{}) {
		t.Errorf("Centroid(nil) = %v", got)
	}
	if got := Centroid([]Vec3{{0, 0, 0}, {2, 4, 6}}); got != (Vec3{1, 2, 3}) {
		t.Errorf("Centroid = %v", got)
	}
}
