package humanoid

import (
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// RigAsset is the humanoid rig consumed by the animation system.
type RigAsset struct {
	// ID uniquely identifies this build of the asset.
	ID uuid.UUID

	// HumanBones is the joint mapping restricted to live bones.
	HumanBones []HumanBone

	// SkeletonBones is the declared bone list restricted to live bones.
	SkeletonBones []SkeletonBone

	// HipsBone is the name of the hips bone.
	HipsBone string

	// GroundingOffset is the offset baked into the hips entry.
	GroundingOffset mgl32.Vec3
}

func (r *rig) BuildAsset() (*RigAsset, bool) {
	if r.desc == nil || r.hipsIndex < 0 {
		return nil, false
	}
	hipsName := r.desc.Skeleton[r.hipsIndex].Name
	if r.HipsNode() == nil {
		r.logger.Debug("humanoid: hips bone is not live", "bone", hipsName)
		return nil, false
	}

	live := func(name string) bool {
		b, ok := r.skel.Bone(name)
		return ok && scenegraph.Alive(b.Node())
	}

	offset := r.GroundingOffset()
	asset := &RigAsset{
		ID:              uuid.New(),
		HipsBone:        hipsName,
		GroundingOffset: offset,
	}

	dropped := 0
	for i, s := range r.desc.Skeleton {
		if !live(s.Name) {
			dropped++
			continue
		}
		if i == r.hipsIndex {
			s.Pose.Translation = s.Pose.Translation.Add(offset)
		}
		asset.SkeletonBones = append(asset.SkeletonBones, s)
	}
	for _, h := range r.desc.Human {
		if live(h.BoneName) {
			asset.HumanBones = append(asset.HumanBones, h)
		}
	}
	if dropped > 0 {
		r.logger.Debug("humanoid: declared bones missing from skeleton", "count", dropped)
	}

	r.appliedOffset = offset
	return asset, true
}
