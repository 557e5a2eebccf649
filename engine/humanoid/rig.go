package humanoid

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/Carmen-Shannon/oxy-rig/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tiendc/go-deepcopy"
	"gonum.org/v1/gonum/spatial/r3"
)

type rig struct {
	skel       skeleton.Skeleton
	desc       *Description
	hipsJoint  string
	hipsIndex  int
	entryIndex map[string]int
	humanBones map[string]struct{}

	grounding     GroundingSettings
	appliedOffset mgl32.Vec3

	logger *slog.Logger
}

// Rig defines the interface for the human mapping layered over a Skeleton.
//
// The Rig owns the current human rig description, keeps every bone's human tag in sync
// with it, measures the grounding offset and builds the rig asset consumed by the
// animation system. It installs itself as the skeleton's HumanResolver so bones created
// by later reconciliations are tagged as well.
type Rig interface {
	skeleton.HumanResolver

	// SetHumanRig replaces the human rig description. The description is copied.
	// Bones are re-tagged by name and a human change is always reported.
	//
	// Parameters:
	//   - desc: the new description; nil behaves like ClearHumanRig
	//
	// Returns:
	//   - bool: true if the human mapping changed
	SetHumanRig(desc *Description) bool

	// ClearHumanRig removes the description and untags every bone.
	//
	// Returns:
	//   - bool: true if at least one bone had been tagged
	ClearHumanRig() bool

	// Description returns the current description, or nil.
	//
	// Returns:
	//   - *Description: the description
	Description() *Description

	// HipsIndex returns the index of the hips entry within the description's skeleton
	// entries, or -1 if it is absent or ambiguous.
	//
	// Returns:
	//   - int: the hips entry index
	HipsIndex() int

	// HipsNode resolves the scene node of the hips bone, or nil if there is none.
	//
	// Returns:
	//   - scenegraph.Node: the hips node
	HipsNode() scenegraph.Node

	// Bounds returns the box enclosing every live bone position, relative to the root anchor.
	//
	// Returns:
	//   - r3.Box: the bounds
	//   - bool: false if the skeleton has no live bones
	Bounds() (r3.Box, bool)

	// GroundingOffset measures the displacement along the grounding axis that puts the
	// lowest bone on the reference plane. Zero when grounding is disabled.
	//
	// Returns:
	//   - mgl32.Vec3: the offset
	GroundingOffset() mgl32.Vec3

	// AppliedGroundingOffset returns the offset baked into the last built rig asset.
	//
	// Returns:
	//   - mgl32.Vec3: the applied offset
	AppliedGroundingOffset() mgl32.Vec3

	// GroundingExceeds compares the current grounding offset with the applied one.
	//
	// Parameters:
	//   - threshold: the maximum tolerated distance between the two offsets
	//
	// Returns:
	//   - mgl32.Vec3: the current offset
	//   - bool: true if the distance is strictly greater than threshold
	GroundingExceeds(threshold float32) (mgl32.Vec3, bool)

	// BuildAsset builds a rig asset from the description and the live skeleton.
	// Declared bones with no live bone are left out.
	//
	// Returns:
	//   - *RigAsset: the asset
	//   - bool: false if there is no description or no resolved hips bone
	BuildAsset() (*RigAsset, bool)
}

var _ Rig = &rig{}

// NewRig creates a Rig over skel and installs it as the skeleton's human resolver.
//
// Parameters:
//   - skel: the skeleton to tag
//   - options: functional options to configure the rig
//
// Returns:
//   - Rig: the newly created rig
func NewRig(skel skeleton.Skeleton, options ...RigBuilderOption) Rig {
	if skel == nil {
		panic("humanoid: NewRig requires a non-nil Skeleton")
	}
	r := &rig{
		skel:      skel,
		hipsJoint: DefaultHipsJoint,
		hipsIndex: -1,
		grounding: DefaultGroundingSettings(),
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(r)
	}
	r.skel.SetHumanResolver(r)
	return r
}

func (r *rig) SetHumanRig(desc *Description) bool {
	if desc == nil {
		return r.ClearHumanRig()
	}
	if err := desc.Validate(); err != nil {
		r.logger.Warn("humanoid: applying description with problems", "error", err)
	}

	var copied Description
	if err := deepcopy.Copy(&copied, desc); err != nil {
		r.logger.Warn("humanoid: failed to copy description, keeping caller's value", "error", err)
		copied = *desc
	}

	r.desc = &copied
	r.hipsIndex = copied.HipsIndex(r.hipsJoint)
	r.entryIndex = make(map[string]int, len(copied.Skeleton))
	for i, s := range copied.Skeleton {
		if _, dup := r.entryIndex[s.Name]; !dup {
			r.entryIndex[s.Name] = i
		}
	}
	r.humanBones = make(map[string]struct{}, len(copied.Human))
	for _, h := range copied.Human {
		r.humanBones[h.BoneName] = struct{}{}
	}
	if r.hipsIndex < 0 {
		r.logger.Debug("humanoid: no unambiguous hips entry", "joint", r.hipsJoint)
	}

	r.skel.SetHumanResolver(r)
	return true
}

func (r *rig) ClearHumanRig() bool {
	r.desc = nil
	r.hipsIndex = -1
	r.entryIndex = nil
	r.humanBones = nil
	return r.skel.SetHumanResolver(r) > 0
}

func (r *rig) Description() *Description {
	return r.desc
}

func (r *rig) HipsIndex() int {
	return r.hipsIndex
}

func (r *rig) HipsNode() scenegraph.Node {
	if r.desc == nil || r.hipsIndex < 0 {
		return nil
	}
	b, ok := r.skel.Bone(r.desc.Skeleton[r.hipsIndex].Name)
	if !ok || !scenegraph.Alive(b.Node()) {
		return nil
	}
	return b.Node()
}

func (r *rig) HumanPose(boneName string) (*common.Transform, bool) {
	if _, ok := r.humanBones[boneName]; !ok {
		return nil, false
	}
	if i, ok := r.entryIndex[boneName]; ok {
		pose := r.desc.Skeleton[i].Pose
		return &pose, true
	}
	return nil, true
}
