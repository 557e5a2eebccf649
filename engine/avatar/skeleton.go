package avatar

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/Carmen-Shannon/oxy-rig/engine/skeleton"
)

func (a *avatar) SetBones(bones []skeleton.BoneDescriptor) {
	if a.rejectDisposed("SetBones") {
		return
	}
	a.bones = slices.Clone(bones)
	a.reconcile()
}

func (a *avatar) SetSkeletonOffset(bone string, offset common.Transform) {
	if a.rejectDisposed("SetSkeletonOffset") {
		return
	}
	if b, ok := a.skel.Bone(bone); !ok || !scenegraph.Alive(b.Node()) {
		a.logger.Warn("avatar: skeleton offset references missing bone", "bone", bone)
		return
	}
	a.offsets[bone] = offset
	a.reconcile()
}

func (a *avatar) ClearSkeletonOffsets() {
	if a.rejectDisposed("ClearSkeletonOffsets") {
		return
	}
	if len(a.offsets) == 0 {
		return
	}
	clear(a.offsets)
	a.reconcile()
}

func (a *avatar) SetPose(poses map[string]common.Transform) {
	if a.rejectDisposed("SetPose") {
		return
	}
	applied := a.skel.ApplyPose(poses)
	if applied < len(poses) {
		a.logger.Warn("avatar: pose references missing bones", "requested", len(poses), "applied", applied)
	}
	if applied > 0 {
		a.NotifyBoundsDirty()
	}
}

func (a *avatar) RestorePose() {
	if a.rejectDisposed("RestorePose") {
		return
	}
	if a.skel.RestorePose() > 0 {
		a.NotifyBoundsDirty()
	}
}

// reconcile diffs the last supplied bone list, with offsets applied, against the skeleton
// and raises the notifications the diff calls for.
func (a *avatar) reconcile() {
	bones := a.offsetBones()
	a.detachComponentsLosingBones(bones)
	structural, human := a.skel.Reconcile(bones)
	posed, _ := a.skel.LastPoseChanges()

	switch {
	case structural:
		a.metrics.Reconcile("structural")
	case posed:
		a.metrics.Reconcile("pose")
	default:
		a.metrics.Reconcile("noop")
	}

	if structural {
		a.NotifyRebuild()
	}
	if human {
		a.NotifyHumanSkeletonChanged()
	}
	if structural || posed {
		a.NotifyBoundsDirty()
	}
}

// detachComponentsLosingBones detaches components whose bone is missing from bones. It runs
// before the reconcile destroys the bone's node along with everything beneath it.
func (a *avatar) detachComponentsLosingBones(bones []skeleton.BoneDescriptor) {
	if len(a.slotOrder) == 0 {
		return
	}
	listed := make(map[string]struct{}, len(bones))
	for _, b := range bones {
		listed[b.Name] = struct{}{}
	}
	for _, slot := range slices.Clone(a.slotOrder) {
		c := a.components[slot]
		bone := c.Bone()
		if bone == "" {
			continue
		}
		if _, ok := listed[bone]; ok {
			continue
		}
		a.logger.Warn("avatar: detaching component whose bone was removed", "slot", slot, "bone", bone)
		c.Detach()
		a.removeComponent(slot)
		a.NotifyRebuild()
	}
}

func (a *avatar) offsetBones() []skeleton.BoneDescriptor {
	if len(a.offsets) == 0 {
		return a.bones
	}
	out := slices.Clone(a.bones)
	for i, b := range out {
		offset, ok := a.offsets[b.Name]
		if !ok {
			continue
		}
		t := b.LocalTransform().Add(offset)
		out[i].Translation, out[i].Rotation, out[i].Scale = t.Translation, t.Rotation, t.Scale
	}
	return out
}
