package animator

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

func quietAnimator(options ...AnimatorBuilderOption) Animator {
	return NewAnimator(append([]AnimatorBuilderOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, options...)...)
}

func testAsset() *humanoid.RigAsset {
	hips := common.IdentityTransform()
	hips.Translation = mgl32.Vec3{0, 0.9, 0}
	spine := common.IdentityTransform()
	spine.Translation = mgl32.Vec3{0, 0.3, 0}
	return &humanoid.RigAsset{
		ID: uuid.New(),
		HumanBones: []humanoid.HumanBone{
			{HumanName: "Hips", BoneName: "hips"},
			{HumanName: "Spine", BoneName: "spine"},
			{HumanName: "Head", BoneName: "head"},
		},
		SkeletonBones: []humanoid.SkeletonBone{
			{Name: "hips", Pose: hips},
			{Name: "spine", Pose: spine},
		},
		HipsBone: "hips",
	}
}

func TestApplyRigAssetResolvesJoints(t *testing.T) {
	a := quietAnimator()
	if a.Ready() || a.AssetID() != uuid.Nil {
		t.Fatal("fresh animator should have no asset")
	}

	asset := testAsset()
	a.ApplyRigAsset(asset)

	if !a.Ready() || a.AssetID() != asset.ID || a.Generation() != 1 {
		t.Fatalf("asset not applied: ready=%v gen=%d", a.Ready(), a.Generation())
	}
	joints := a.Joints()
	if len(joints) != 2 || joints[0] != "Hips" || joints[1] != "Spine" {
		t.Fatalf("joints = %v, want Head dropped", joints)
	}
	pose, ok := a.BindPose("Hips")
	if !ok || !pose.Translation.ApproxEqual(mgl32.Vec3{0, 0.9, 0}) {
		t.Fatalf("hips bind pose = %+v, %v", pose, ok)
	}
	if _, ok := a.BindPose("Head"); ok {
		t.Fatal("joint on an undeclared bone should not resolve")
	}
}

func TestPaletteIsBindMatrices(t *testing.T) {
	a := quietAnimator(WithRigAsset(testAsset()))
	palette := a.Palette()
	if a.BoneCount() != 2 || len(palette) != 2 {
		t.Fatalf("bone count = %d", a.BoneCount())
	}
	spine := mgl32.Mat4(palette[1])
	if got := spine.Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{0, 0.3, 0}) {
		t.Fatalf("spine translation column = %v", got)
	}
	palette[0] = [16]float32{}
	if !mgl32.FloatEqual(mgl32.Mat4(a.Palette()[0]).Col(3).Y(), 0.9) {
		t.Fatal("Palette must return a copy")
	}
}

func TestWithdrawClearsState(t *testing.T) {
	a := quietAnimator(WithRigAsset(testAsset()))
	a.ApplyRigAsset(nil)

	if a.Ready() || a.BoneCount() != 0 || len(a.Joints()) != 0 {
		t.Fatal("withdrawn asset should leave no state")
	}
	if a.Generation() != 2 {
		t.Fatalf("generation = %d, want 2", a.Generation())
	}
	if _, ok := a.BindPose("Hips"); ok {
		t.Fatal("withdrawn asset should not resolve joints")
	}
}
