package humanoid

import (
	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Axis selects the grounding axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// GroundingSettings configures the grounding measurement.
type GroundingSettings struct {
	// Enabled turns grounding on. When off the offset is always zero.
	Enabled bool

	// Axis is the up axis along which the rig is grounded.
	Axis Axis

	// Plane is the position of the reference plane along Axis, relative to the root anchor.
	Plane float32
}

// DefaultGroundingSettings grounds along +Y onto the anchor's origin plane.
func DefaultGroundingSettings() GroundingSettings {
	return GroundingSettings{Enabled: true, Axis: AxisY}
}

func (r *rig) Bounds() (r3.Box, bool) {
	toAnchor := mgl32.Ident4()
	if root := r.skel.Root(); scenegraph.Alive(root) {
		toAnchor = root.WorldMatrix().Inv()
	}

	bones := r.skel.Bones()
	xs := make([]float64, 0, len(bones))
	ys := make([]float64, 0, len(bones))
	zs := make([]float64, 0, len(bones))
	for _, b := range bones {
		n := b.Node()
		if !scenegraph.Alive(n) {
			continue
		}
		p := common.MultiplyPoint(toAnchor.Mul4(n.WorldMatrix()), mgl32.Vec3{})
		xs = append(xs, float64(p[0]))
		ys = append(ys, float64(p[1]))
		zs = append(zs, float64(p[2]))
	}
	if len(xs) == 0 {
		return r3.Box{}, false
	}

	// not r3.Box.Union: it drops zero-volume boxes, and a single bone or a flat rig is one
	return r3.Box{
		Min: r3.Vec{X: floats.Min(xs), Y: floats.Min(ys), Z: floats.Min(zs)},
		Max: r3.Vec{X: floats.Max(xs), Y: floats.Max(ys), Z: floats.Max(zs)},
	}, true
}

func (r *rig) GroundingOffset() mgl32.Vec3 {
	if !r.grounding.Enabled {
		return mgl32.Vec3{}
	}
	box, ok := r.Bounds()
	if !ok {
		return mgl32.Vec3{}
	}

	var lowest float64
	switch r.grounding.Axis {
	case AxisX:
		lowest = box.Min.X
	case AxisZ:
		lowest = box.Min.Z
	default:
		lowest = box.Min.Y
	}

	var offset mgl32.Vec3
	offset[int(r.grounding.Axis)%3] = r.grounding.Plane - float32(lowest)
	return offset
}

func (r *rig) AppliedGroundingOffset() mgl32.Vec3 {
	return r.appliedOffset
}

func (r *rig) GroundingExceeds(threshold float32) (mgl32.Vec3, bool) {
	offset := r.GroundingOffset()
	return offset, offset.Sub(r.appliedOffset).Len() > threshold
}
