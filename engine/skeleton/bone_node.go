package skeleton

import (
	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/go-gl/mathgl/mgl32"
)

// Parent references understood by BoneDescriptor.Parent in addition to bone indices.
const (
	// ParentNone marks a root-level bone.
	ParentNone = -1

	// ParentExternal marks a bone whose parent lives outside the supplied list.
	// Such bones attach directly to the skeleton root.
	ParentExternal = -2
)

// BoneDescriptor describes one bone of an incoming flat bone list.
// Descriptors are transient input; the skeleton copies what it needs.
type BoneDescriptor struct {
	// Name is the unique key of the bone.
	Name string

	// Parent is the index of the parent bone within the same list, ParentNone or ParentExternal.
	Parent int

	// Translation is the local position relative to the parent.
	Translation mgl32.Vec3

	// Rotation is the local orientation. A zero quaternion is treated as identity.
	Rotation mgl32.Quat

	// Scale is the local scale. A zero vector is treated as unit scale.
	Scale mgl32.Vec3
}

// LocalTransform returns the descriptor's local TRS with zero-value defaults resolved.
//
// Returns:
//   - common.Transform: the local transform
func (d BoneDescriptor) LocalTransform() common.Transform {
	t := common.Transform{
		Translation: d.Translation,
		Rotation:    d.Rotation,
		Scale:       d.Scale,
	}
	if t.Rotation == (mgl32.Quat{}) {
		t.Rotation = mgl32.QuatIdent()
	}
	if t.Scale == (mgl32.Vec3{}) {
		t.Scale = mgl32.Vec3{1, 1, 1}
	}
	return t
}

// BoneNode is the registry record for one named bone. It exclusively owns its scene node.
type BoneNode struct {
	name           string
	index          int
	declaredParent int
	parent         *BoneNode

	isHuman   bool
	humanPose *common.Transform

	node scenegraph.Node

	defaultLocal         common.Transform
	defaultLocalMatrix   mgl32.Mat4
	defaultWorld         mgl32.Mat4
	defaultWorldResolved bool

	previousPose *common.Transform

	isNew       bool
	poseChanged bool
}

// Name returns the bone name.
func (b *BoneNode) Name() string {
	return b.name
}

// Index returns the bone's position in the most recently reconciled list.
func (b *BoneNode) Index() int {
	return b.index
}

// ParentIndex returns the resolved parent index, or ParentNone for root-level bones.
func (b *BoneNode) ParentIndex() int {
	if b.parent == nil {
		return ParentNone
	}
	return b.parent.index
}

// Parent returns the parent bone, or nil for root-level bones.
func (b *BoneNode) Parent() *BoneNode {
	return b.parent
}

// IsHuman reports whether the bone participates in the human mapping.
func (b *BoneNode) IsHuman() bool {
	return b.isHuman
}

// HumanPose returns the human rig pose override for the bone, if any.
func (b *BoneNode) HumanPose() (common.Transform, bool) {
	if b.humanPose == nil {
		return common.Transform{}, false
	}
	return *b.humanPose, true
}

// Node returns the scene node owned by the bone.
func (b *BoneNode) Node() scenegraph.Node {
	return b.node
}

// DefaultLocal returns the default local pose from the last reconciliation.
func (b *BoneNode) DefaultLocal() common.Transform {
	return b.defaultLocal
}

// DefaultLocalMatrix returns the default local pose as a matrix.
func (b *BoneNode) DefaultLocalMatrix() mgl32.Mat4 {
	return b.defaultLocalMatrix
}

// DefaultWorldMatrix returns the bind pose computed during the last reconciliation.
// The second value is false if the pose has not been resolved yet.
func (b *BoneNode) DefaultWorldMatrix() (mgl32.Mat4, bool) {
	return b.defaultWorld, b.defaultWorldResolved
}

// HasCachedPose reports whether a temporary pose is applied and can be restored.
func (b *BoneNode) HasCachedPose() bool {
	return b.previousPose != nil
}

// tag sets the human mapping flag and pose override.
func (b *BoneNode) tag(override *common.Transform, isHuman bool) {
	b.isHuman = isHuman
	b.humanPose = nil
	if isHuman && override != nil {
		pose := *override
		b.humanPose = &pose
	}
}

// applyDefaultPose resets the owned node to the default local pose and clears the pass flags.
func (b *BoneNode) applyDefaultPose() {
	b.node.SetLocalTransform(b.defaultLocal)
	b.previousPose = nil
	b.isNew = false
	b.poseChanged = false
}
