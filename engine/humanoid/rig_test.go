package humanoid

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/Carmen-Shannon/oxy-rig/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bonesAt(footY float32) []skeleton.BoneDescriptor {
	return []skeleton.BoneDescriptor{
		{Name: "hips", Parent: skeleton.ParentNone, Translation: mgl32.Vec3{0, 1, 0}},
		{Name: "spine", Parent: 0, Translation: mgl32.Vec3{0, 0.5, 0}},
		{Name: "foot", Parent: 0, Translation: mgl32.Vec3{0, footY, 0}},
	}
}

func testDescription() *Description {
	pose := common.IdentityTransform()
	pose.Translation = mgl32.Vec3{0, 1, 0}
	return &Description{
		Human: []HumanBone{
			{HumanName: "Hips", BoneName: "hips"},
			{HumanName: "Spine", BoneName: "spine"},
			{HumanName: "LeftFoot", BoneName: "foot"},
		},
		Skeleton: []SkeletonBone{
			{Name: "hips", Pose: pose},
			{Name: "spine", Pose: common.IdentityTransform()},
			{Name: "foot", Pose: common.IdentityTransform()},
			{Name: "tail", Pose: common.IdentityTransform()},
		},
	}
}

func newTestRig(t *testing.T, options ...RigBuilderOption) (Rig, skeleton.Skeleton) {
	t.Helper()
	root := scenegraph.NewNode(scenegraph.WithName("anchor"))
	skel := skeleton.NewSkeleton(root, skeleton.WithLogger(quietLogger()))
	skel.Reconcile(bonesAt(-0.9))
	return NewRig(skel, append([]RigBuilderOption{WithLogger(quietLogger())}, options...)...), skel
}

func TestHipsIndex(t *testing.T) {
	cases := []struct {
		name string
		desc *Description
		want int
	}{
		{"resolved", testDescription(), 0},
		{"absent", &Description{Skeleton: []SkeletonBone{{Name: "hips"}}}, -1},
		{"undeclared bone", &Description{Human: []HumanBone{{HumanName: "Hips", BoneName: "pelvis"}}}, -1},
		{"conflicting mapping", &Description{
			Human:    []HumanBone{{HumanName: "Hips", BoneName: "a"}, {HumanName: "Hips", BoneName: "b"}},
			Skeleton: []SkeletonBone{{Name: "a"}, {Name: "b"}},
		}, -1},
		{"declared twice", &Description{
			Human:    []HumanBone{{HumanName: "Hips", BoneName: "a"}},
			Skeleton: []SkeletonBone{{Name: "a"}, {Name: "a"}},
		}, -1},
		{"nil", nil, -1},
	}
	for _, c := range cases {
		if got := c.desc.HipsIndex(DefaultHipsJoint); got != c.want {
			t.Errorf("%s: HipsIndex = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestValidateReportsDuplicateJoints(t *testing.T) {
	desc := &Description{Human: []HumanBone{{HumanName: "Hips", BoneName: "a"}, {HumanName: "Hips", BoneName: "b"}}}
	if err := desc.Validate(); err == nil {
		t.Fatal("expected duplicate joint error")
	}
	if err := testDescription().Validate(); err != nil {
		t.Fatalf("valid description rejected: %v", err)
	}
}

func TestSetHumanRigTagsBones(t *testing.T) {
	r, skel := newTestRig(t)
	if !r.SetHumanRig(testDescription()) {
		t.Fatal("SetHumanRig must always report a human change")
	}
	if skel.HumanBoneCount() != 3 {
		t.Fatalf("tagged %d bones, want 3", skel.HumanBoneCount())
	}
	hips, _ := skel.Bone("hips")
	pose, ok := hips.HumanPose()
	if !ok || !pose.Translation.ApproxEqual(mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("hips pose override = %v, %v", pose, ok)
	}
	if r.HipsIndex() != 0 || r.HipsNode() != hips.Node() {
		t.Fatal("hips not resolved")
	}

	// bones added later pick up the mapping
	skel.Reconcile(append(bonesAt(-0.9), skeleton.BoneDescriptor{Name: "tail", Parent: 0}))
	if tail, _ := skel.Bone("tail"); tail.IsHuman() {
		t.Fatal("tail is declared but not mapped, must not be human")
	}
	if skel.HumanBoneCount() != 3 {
		t.Fatalf("tagged %d bones after reconcile, want 3", skel.HumanBoneCount())
	}
}

func TestSetHumanRigCopiesDescription(t *testing.T) {
	r, _ := newTestRig(t)
	desc := testDescription()
	r.SetHumanRig(desc)
	desc.Skeleton[0].Name = "changed"
	if r.Description().Skeleton[0].Name != "hips" {
		t.Fatal("rig must hold its own copy of the description")
	}
}

func TestClearHumanRig(t *testing.T) {
	r, skel := newTestRig(t)
	if r.ClearHumanRig() {
		t.Fatal("clearing an untagged skeleton must not report a change")
	}
	r.SetHumanRig(testDescription())
	if !r.ClearHumanRig() {
		t.Fatal("clearing tagged bones must report a change")
	}
	if skel.HumanBoneCount() != 0 || r.Description() != nil || r.HipsNode() != nil {
		t.Fatal("rig not cleared")
	}
}

func TestGroundingOffset(t *testing.T) {
	r, skel := newTestRig(t)

	box, ok := r.Bounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	if box.Min.Y < 0.099 || box.Min.Y > 0.101 || box.Max.Y < 1.499 || box.Max.Y > 1.501 {
		t.Fatalf("bounds = %+v", box)
	}

	offset := r.GroundingOffset()
	if !offset.ApproxEqualThreshold(mgl32.Vec3{0, -0.1, 0}, 1e-5) {
		t.Fatalf("offset = %v, want {0 -0.1 0}", offset)
	}

	// the anchor's own placement does not move the measurement
	skel.Root().SetLocalTransform(common.Transform{Translation: mgl32.Vec3{5, 5, 5}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}})
	if got := r.GroundingOffset(); !got.ApproxEqualThreshold(offset, 1e-5) {
		t.Fatalf("offset moved with anchor: %v", got)
	}

	disabled, _ := newTestRig(t, WithGrounding(GroundingSettings{Enabled: false, Axis: AxisY}))
	if disabled.GroundingOffset() != (mgl32.Vec3{}) {
		t.Fatal("disabled grounding must report zero offset")
	}
}

func TestBoundsOfDegenerateBoneSets(t *testing.T) {
	r, skel := newTestRig(t)

	skel.Reconcile([]skeleton.BoneDescriptor{{Name: "hips", Parent: skeleton.ParentNone, Translation: mgl32.Vec3{1, 2, 3}}})
	box, ok := r.Bounds()
	if !ok || box.Min != box.Max || box.Min.X != 1 || box.Min.Y != 2 || box.Min.Z != 3 {
		t.Fatalf("single bone bounds = %+v, %v", box, ok)
	}

	skel.Reconcile([]skeleton.BoneDescriptor{
		{Name: "hips", Parent: skeleton.ParentNone, Translation: mgl32.Vec3{0, 1, 0}},
		{Name: "left", Parent: 0, Translation: mgl32.Vec3{-0.5, 0, 0}},
		{Name: "right", Parent: 0, Translation: mgl32.Vec3{0.5, -1.5, 0}},
	})
	box, _ = r.Bounds()
	if box.Min.X != -0.5 || box.Max.X != 0.5 || box.Min.Y != -0.5 || box.Max.Y != 1 || box.Min.Z != 0 || box.Max.Z != 0 {
		t.Fatalf("planar bounds = %+v", box)
	}

	skel.Clear()
	if _, ok := r.Bounds(); ok {
		t.Fatal("empty skeleton has no bounds")
	}
}

func TestGroundingExceedsThreshold(t *testing.T) {
	r, skel := newTestRig(t)
	r.SetHumanRig(testDescription())
	if _, ok := r.BuildAsset(); !ok {
		t.Fatal("expected asset")
	}

	skel.Reconcile(bonesAt(-0.9005))
	if _, exceeds := r.GroundingExceeds(0.001); exceeds {
		t.Fatal("sub-threshold jitter must not exceed")
	}
	skel.Reconcile(bonesAt(-0.8))
	offset, exceeds := r.GroundingExceeds(0.001)
	if !exceeds {
		t.Fatal("expected threshold to be exceeded")
	}
	if !offset.ApproxEqualThreshold(mgl32.Vec3{0, -0.2, 0}, 1e-5) {
		t.Fatalf("offset = %v", offset)
	}
}

func TestBuildAsset(t *testing.T) {
	r, _ := newTestRig(t)
	if _, ok := r.BuildAsset(); ok {
		t.Fatal("no description must mean no asset")
	}

	r.SetHumanRig(testDescription())
	asset, ok := r.BuildAsset()
	if !ok {
		t.Fatal("expected asset")
	}
	if len(asset.SkeletonBones) != 3 {
		t.Fatalf("skeleton bones = %d, want 3 (tail is not live)", len(asset.SkeletonBones))
	}
	if len(asset.HumanBones) != 3 || asset.HipsBone != "hips" {
		t.Fatalf("asset = %+v", asset)
	}
	if !asset.SkeletonBones[0].Pose.Translation.ApproxEqualThreshold(mgl32.Vec3{0, 0.9, 0}, 1e-5) {
		t.Fatalf("hips translation = %v, want grounded {0 0.9 0}", asset.SkeletonBones[0].Pose.Translation)
	}
	if r.AppliedGroundingOffset() != asset.GroundingOffset {
		t.Fatal("applied offset not recorded")
	}

	again, _ := r.BuildAsset()
	if again.ID == asset.ID {
		t.Fatal("each build must carry a fresh ID")
	}
}

func TestBuildAssetWithoutHips(t *testing.T) {
	r, _ := newTestRig(t, WithHipsJoint("Pelvis"))
	r.SetHumanRig(testDescription())
	if _, ok := r.BuildAsset(); ok {
		t.Fatal("unresolved hips must mean no asset")
	}
}
