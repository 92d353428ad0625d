// Package geom provides the small amount of 3-D geometry the builder needs:
// vectors, rigid transforms, bounding extents and rigid-body superposition.
//
// Transforms are 4×4 row-major matrices acting on column vectors, so a
// translation lives in the last column. Rotations are always proper
// (determinant +1); [Fit] never returns a reflection.
package geom
