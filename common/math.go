package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// PoseEpsilon is the per-element tolerance used when comparing pose matrices.
// Differences below this are treated as the same pose so float noise in incoming
// bone data does not register as a default pose change.
const PoseEpsilon float32 = 1e-5

// ComposeMatrix builds a local pose matrix from translation, rotation and scale.
// The result is T * R * S in column-major order, matching the convention used by
// the rest of the engine. A zero rotation quaternion is treated as identity.
//
// Parameters:
//   - translation: the local position
//   - rotation: the local orientation quaternion
//   - scale: the local scale factors
//
// Returns:
//   - mgl32.Mat4: the composed local pose matrix
func ComposeMatrix(translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(translation[0], translation[1], translation[2])
	r := rotation.Normalize().Mat4()
	s := mgl32.Scale3D(scale[0], scale[1], scale[2])
	return t.Mul4(r).Mul4(s)
}

// ComposeWorld returns the world pose of a child given its parent's world pose and
// its own local pose: parent * local.
//
// Parameters:
//   - parentWorld: the parent's world pose matrix
//   - local: the child's local pose matrix
//
// Returns:
//   - mgl32.Mat4: the child's world pose matrix
func ComposeWorld(parentWorld, local mgl32.Mat4) mgl32.Mat4 {
	return parentWorld.Mul4(local)
}

// DecomposeMatrix decomposes a column-major pose matrix into translation, rotation and scale.
// Shear is not supported; matrices with shear decompose to their closest TRS approximation.
//
// Parameters:
//   - m: the pose matrix to decompose
//
// Returns:
//   - Transform: the decomposed transform
func DecomposeMatrix(m mgl32.Mat4) Transform {
	var t Transform

	t.Translation = mgl32.Vec3{m[12], m[13], m[14]}

	sx := vectorLength(m[0], m[1], m[2])
	sy := vectorLength(m[4], m[5], m[6])
	sz := vectorLength(m[8], m[9], m[10])
	t.Scale = mgl32.Vec3{sx, sy, sz}

	if sx < 0.0001 {
		sx = 1
	}
	if sy < 0.0001 {
		sy = 1
	}
	if sz < 0.0001 {
		sz = 1
	}

	// rotation part with scale removed, indexed [row][col]
	r := [3][3]float32{
		{m.At(0, 0) / sx, m.At(0, 1) / sy, m.At(0, 2) / sz},
		{m.At(1, 0) / sx, m.At(1, 1) / sy, m.At(1, 2) / sz},
		{m.At(2, 0) / sx, m.At(2, 1) / sy, m.At(2, 2) / sz},
	}
	t.Rotation = rotationToQuaternion(r)

	return t
}

// MultiplyPoint transforms a point by a pose matrix.
//
// Parameters:
//   - m: the pose matrix
//   - p: the point to transform
//
// Returns:
//   - mgl32.Vec3: the transformed point
func MultiplyPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// PosesEqual reports whether two pose matrices are equal within PoseEpsilon.
func PosesEqual(a, b mgl32.Mat4) bool {
	return a.ApproxEqualThreshold(b, PoseEpsilon)
}

// vectorLength computes the length of a 3D vector.
func vectorLength(x, y, z float32) float32 {
	return float32(math.Sqrt(float64(x*x + y*y + z*z)))
}

// rotationToQuaternion converts an orthonormal 3x3 rotation matrix to a normalized quaternion.
func rotationToQuaternion(r [3][3]float32) mgl32.Quat {
	trace := r[0][0] + r[1][1] + r[2][2]

	var x, y, z, w float32

	switch {
	case trace > 0:
		s := float32(math.Sqrt(float64(trace+1.0))) * 2
		w = 0.25 * s
		x = (r[2][1] - r[1][2]) / s
		y = (r[0][2] - r[2][0]) / s
		z = (r[1][0] - r[0][1]) / s
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		s := float32(math.Sqrt(float64(1.0+r[0][0]-r[1][1]-r[2][2]))) * 2
		w = (r[2][1] - r[1][2]) / s
		x = 0.25 * s
		y = (r[0][1] + r[1][0]) / s
		z = (r[0][2] + r[2][0]) / s
	case r[1][1] > r[2][2]:
		s := float32(math.Sqrt(float64(1.0+r[1][1]-r[0][0]-r[2][2]))) * 2
		w = (r[0][2] - r[2][0]) / s
		x = (r[0][1] + r[1][0]) / s
		y = 0.25 * s
		z = (r[1][2] + r[2][1]) / s
	default:
		s := float32(math.Sqrt(float64(1.0+r[2][2]-r[0][0]-r[1][1]))) * 2
		w = (r[1][0] - r[0][1]) / s
		x = (r[0][2] + r[2][0]) / s
		y = (r[1][2] + r[2][1]) / s
		z = 0.25 * s
	}

	return mgl32.Quat{W: w, V: mgl32.Vec3{x, y, z}}.Normalize()
}
