package common

import (
	"github.com/chewxy/math32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix
// using the Gribb/Hartmann method. Depth is assumed to be in [0, 1] (WebGPU clip space).
//
// Parameters:
//   - viewProj: the combined projection * view matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj Mat4) Frustum {
	// row r of the matrix is (m[r], m[4+r], m[8+r], m[12+r])
	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	combine := func(a [4]float32, b [4]float32, sign float32) Plane {
		return Plane{
			Normal:   Vec3{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2]},
			Distance: a[3] + sign*b[3],
		}
	}

	var f Frustum
	f.Planes[FrustumLeft] = combine(r3, r0, 1)
	f.Planes[FrustumRight] = combine(r3, r0, -1)
	f.Planes[FrustumBottom] = combine(r3, r1, 1)
	f.Planes[FrustumTop] = combine(r3, r1, -1)
	f.Planes[FrustumNear] = Plane{Normal: Vec3{r2[0], r2[1], r2[2]}, Distance: r2[3]}
	f.Planes[FrustumFar] = combine(r3, r2, -1)

	for i := range f.Planes {
		f.Planes[i].normalize()
	}
	return f
}

func (p *Plane) normalize() {
	length := p.Normal.Length()
	if length > 0 {
		inv := 1 / length
		p.Normal = p.Normal.Scale(inv)
		p.Distance *= inv
	}
}

// ContainsBox reports whether the axis aligned box intersects or lies inside the frustum.
// Uses the positive vertex test against every plane.
//
// Parameters:
//   - box: the world-space bounding box
//
// Returns:
//   - bool: false only when the box is fully outside at least one plane
func (f *Frustum) ContainsBox(box BoundingBox) bool {
	for _, p := range f.Planes {
		var v Vec3
		for i := 0; i < 3; i++ {
			if p.Normal[i] >= 0 {
				v[i] = box.Max[i]
			} else {
				v[i] = box.Min[i]
			}
		}
		if p.Normal.Dot(v)+p.Distance < 0 {
			return false
		}
	}
	return true
}

// BoundingBox is an axis aligned box in world space.
type BoundingBox struct {
	Min Vec3
	Max Vec3
}

// BoundingBoxFromSphere returns the box enclosing a sphere.
func BoundingBoxFromSphere(center Vec3, radius float32) BoundingBox {
	r := math32.Abs(radius)
	return BoundingBox{
		Min: Vec3{center[0] - r, center[1] - r, center[2] - r},
		Max: Vec3{center[0] + r, center[1] + r, center[2] + r},
	}
}

// Intersects reports whether b and o overlap. Touching boxes intersect.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Merge returns the smallest box containing both b and o.
func (b BoundingBox) Merge(o BoundingBox) BoundingBox {
	var out BoundingBox
	for i := 0; i < 3; i++ {
		out.Min[i] = math32.Min(b.Min[i], o.Min[i])
		out.Max[i] = math32.Max(b.Max[i], o.Max[i])
	}
	return out
}

// Center returns the center point of b.
func (b BoundingBox) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Corners returns the eight corners of b.
func (b BoundingBox) Corners() [8]Vec3 {
	var out [8]Vec3
	for i := 0; i < 8; i++ {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				out[i][axis] = b.Max[axis]
			} else {
				out[i][axis] = b.Min[axis]
			}
		}
	}
	return out
}
