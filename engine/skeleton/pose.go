package skeleton

import (
	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/go-gl/mathgl/mgl32"
)

// resolveDefaultWorldPoses computes the bind pose of every bone for the current pass.
// Each bone is computed once from its parent's already computed pose.
func (s *skeleton) resolveDefaultWorldPoses() {
	rootWorld := mgl32.Ident4()
	if s.anchorBindPose && scenegraph.Alive(s.root) {
		rootWorld = s.root.WorldMatrix()
	}

	for _, b := range s.bones {
		b.defaultWorldResolved = false
	}
	resolving := make(map[*BoneNode]bool, len(s.bones))
	for _, b := range s.bones {
		s.resolveDefaultWorld(b, rootWorld, resolving)
	}
}

func (s *skeleton) resolveDefaultWorld(b *BoneNode, rootWorld mgl32.Mat4, resolving map[*BoneNode]bool) mgl32.Mat4 {
	if b.defaultWorldResolved {
		return b.defaultWorld
	}

	parentWorld := rootWorld
	if b.parent != nil && !resolving[b.parent] {
		resolving[b] = true
		parentWorld = s.resolveDefaultWorld(b.parent, rootWorld, resolving)
		delete(resolving, b)
	}

	b.defaultWorld = common.ComposeWorld(parentWorld, b.defaultLocalMatrix)
	b.defaultWorldResolved = true
	return b.defaultWorld
}

func (s *skeleton) DefaultWorldMatrix(name string) (mgl32.Mat4, bool) {
	b, ok := s.byName[name]
	if !ok {
		return mgl32.Mat4{}, false
	}
	return b.DefaultWorldMatrix()
}

func (s *skeleton) InverseBindMatrices() []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(s.byInput))
	for i, b := range s.byInput {
		if b == nil {
			out[i] = mgl32.Ident4()
			continue
		}
		world, ok := b.DefaultWorldMatrix()
		if !ok {
			out[i] = mgl32.Ident4()
			continue
		}
		out[i] = world.Inv()
	}
	return out
}

func (s *skeleton) ApplyPose(poses map[string]common.Transform) int {
	applied := 0
	for _, name := range common.SortedKeys(poses) {
		b, ok := s.byName[name]
		if !ok || !scenegraph.Alive(b.node) {
			s.logger.Warn("skeleton: pose references missing bone, skipping", "bone", name)
			continue
		}
		s.applyTemporaryPose(b, poses[name])
		applied++
	}
	return applied
}

func (s *skeleton) ApplyHumanPose() int {
	applied := 0
	for _, b := range s.bones {
		if !b.isHuman || b.humanPose == nil || !scenegraph.Alive(b.node) {
			continue
		}
		s.applyTemporaryPose(b, *b.humanPose)
		applied++
	}
	return applied
}

func (s *skeleton) RestorePose() int {
	restored := 0
	for _, b := range s.bones {
		if b.previousPose == nil {
			continue
		}
		if scenegraph.Alive(b.node) {
			b.node.SetLocalTransform(*b.previousPose)
			restored++
		}
		b.previousPose = nil
	}
	return restored
}

// applyTemporaryPose sets a pose on the bone's node, caching the pose it replaces.
// Only the first temporary pose is cached so RestorePose returns to the original state.
func (s *skeleton) applyTemporaryPose(b *BoneNode, pose common.Transform) {
	if b.previousPose == nil {
		prev := b.node.LocalTransform()
		b.previousPose = &prev
	}
	b.node.SetLocalTransform(pose)
}
