package animator

import (
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
	"github.com/google/uuid"
)

// animator is the implementation of the Animator interface.
type animator struct {
	mu sync.RWMutex

	asset      *humanoid.RigAsset
	jointBone  map[string]int
	palette    [][16]float32
	generation uint64
	logger     *slog.Logger
}

// Animator is the consumer side of the humanoid rig. It keeps the most recently applied rig
// asset and resolves human joints to their bind poses so clips authored against human joints
// can be retargeted onto the avatar's bones.
//
// Safe for concurrent use: assets may be applied while other goroutines sample poses.
type Animator interface {
	// ApplyRigAsset replaces the current rig asset. A nil asset withdraws the current one.
	//
	// Parameters:
	//   - asset: the rebuilt rig asset, or nil
	ApplyRigAsset(asset *humanoid.RigAsset)

	// Asset returns the current rig asset, or nil if none is applied.
	Asset() *humanoid.RigAsset

	// AssetID returns the ID of the current rig asset, or uuid.Nil.
	AssetID() uuid.UUID

	// Ready reports whether a rig asset is applied.
	Ready() bool

	// Generation returns how many times ApplyRigAsset has been called.
	//
	// Returns:
	//   - uint64: the number of applications, withdrawals included
	Generation() uint64

	// Joints returns the mapped human joint names in ascending order.
	Joints() []string

	// BindPose returns the bind pose of the bone driving joint. The hips pose carries the
	// grounding offset baked into the asset.
	//
	// Parameters:
	//   - joint: the human joint name
	//
	// Returns:
	//   - common.Transform: the bone's local bind pose
	//   - bool: false if no asset is applied or the joint is not mapped
	BindPose(joint string) (common.Transform, bool)

	// BoneCount returns the number of skeleton bones in the current asset.
	BoneCount() int

	// Palette returns the bind pose of every skeleton bone as a column-major matrix, in asset
	// order. The returned slice is a copy.
	//
	// Returns:
	//   - [][16]float32: one matrix per bone
	Palette() [][16]float32
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator with the given options applied.
//
// Parameters:
//   - options: functional options to configure the animator
//
// Returns:
//   - Animator: the animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{logger: slog.Default()}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *animator) ApplyRigAsset(asset *humanoid.RigAsset) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.generation++
	if asset == nil {
		a.asset, a.jointBone, a.palette = nil, nil, nil
		a.logger.Debug("animator: rig asset withdrawn", "generation", a.generation)
		return
	}

	boneIndex := make(map[string]int, len(asset.SkeletonBones))
	palette := make([][16]float32, len(asset.SkeletonBones))
	for i, b := range asset.SkeletonBones {
		if _, dup := boneIndex[b.Name]; !dup {
			boneIndex[b.Name] = i
		}
		palette[i] = [16]float32(b.Pose.Matrix())
	}

	jointBone := make(map[string]int, len(asset.HumanBones))
	for _, h := range asset.HumanBones {
		idx, ok := boneIndex[h.BoneName]
		if !ok {
			a.logger.Warn("animator: human joint maps to an undeclared bone", "joint", h.HumanName, "bone", h.BoneName)
			continue
		}
		if _, dup := jointBone[h.HumanName]; !dup {
			jointBone[h.HumanName] = idx
		}
	}

	a.asset, a.jointBone, a.palette = asset, jointBone, palette
	a.logger.Debug("animator: rig asset applied", "id", asset.ID, "joints", len(jointBone), "bones", len(palette), "generation", a.generation)
}

func (a *animator) Asset() *humanoid.RigAsset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.asset
}

func (a *animator) AssetID() uuid.UUID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.asset == nil {
		return uuid.Nil
	}
	return a.asset.ID
}

func (a *animator) Ready() bool {
	return a.Asset() != nil
}

func (a *animator) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}

func (a *animator) Joints() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return common.SortedKeys(a.jointBone)
}

func (a *animator) BindPose(joint string) (common.Transform, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	idx, ok := a.jointBone[joint]
	if !ok {
		return common.Transform{}, false
	}
	return a.asset.SkeletonBones[idx].Pose, true
}

func (a *animator) BoneCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.palette)
}

func (a *animator) Palette() [][16]float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([][16]float32, len(a.palette))
	copy(out, a.palette)
	return out
}
