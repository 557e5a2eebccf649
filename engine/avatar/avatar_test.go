package avatar

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
	"github.com/Carmen-Shannon/oxy-rig/engine/metrics"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/Carmen-Shannon/oxy-rig/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeComponent struct {
	name, slot, bone string
	attachErr        error
	node             scenegraph.Node
	attached         int
	detached         int
}

func (c *fakeComponent) Name() string { return c.name }
func (c *fakeComponent) Slot() string { return c.slot }
func (c *fakeComponent) Bone() string { return c.bone }

func (c *fakeComponent) Attach(parent scenegraph.Node) error {
	if c.attachErr != nil {
		return c.attachErr
	}
	c.attached++
	c.node = scenegraph.NewNode(scenegraph.WithName(c.name), scenegraph.WithParent(parent))
	return nil
}

func (c *fakeComponent) Detach() {
	c.detached++
	if scenegraph.Alive(c.node) {
		c.node.Destroy()
	}
}

type recordingAnimator struct {
	assets []*humanoid.RigAsset
}

func (r *recordingAnimator) ApplyRigAsset(asset *humanoid.RigAsset) {
	r.assets = append(r.assets, asset)
}

type harness struct {
	avatar   Avatar
	root     scenegraph.Node
	metrics  *metrics.Collectors
	animator *recordingAnimator
	rebuilt  int
	rooted   int
}

func newHarness(t *testing.T, options ...AvatarBuilderOption) *harness {
	t.Helper()
	c, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	h := &harness{
		root:     scenegraph.NewNode(scenegraph.WithName("anchor")),
		metrics:  c,
		animator: &recordingAnimator{},
	}
	opts := append([]AvatarBuilderOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(c),
		WithAnimator(h.animator),
	}, options...)
	h.avatar = NewAvatar(h.root, opts...)
	h.avatar.SetBones(bonesAt(-0.9))
	h.avatar.Rebuilt().Subscribe(func(Avatar) { h.rebuilt++ })
	h.avatar.RootRebuilt().Subscribe(func(Avatar) { h.rooted++ })
	return h
}

func (h *harness) rigBuilds(reason string) float64 {
	return testutil.ToFloat64(h.metrics.RigBuildCounter(reason))
}

func bonesAt(footY float32) []skeleton.BoneDescriptor {
	return []skeleton.BoneDescriptor{
		{Name: "hips", Parent: skeleton.ParentNone, Translation: mgl32.Vec3{0, 1, 0}},
		{Name: "spine", Parent: 0, Translation: mgl32.Vec3{0, 0.5, 0}},
		{Name: "foot", Parent: 0, Translation: mgl32.Vec3{0, footY, 0}},
	}
}

func description() *humanoid.Description {
	return &humanoid.Description{
		Human: []humanoid.HumanBone{
			{HumanName: "Hips", BoneName: "hips"},
			{HumanName: "Spine", BoneName: "spine"},
			{HumanName: "LeftFoot", BoneName: "foot"},
		},
		Skeleton: []humanoid.SkeletonBone{
			{Name: "hips", Pose: common.IdentityTransform()},
			{Name: "spine", Pose: common.IdentityTransform()},
			{Name: "foot", Pose: common.IdentityTransform()},
		},
	}
}

func pngTexture(t *testing.T, name string) *common.ImportedTexture {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return &common.ImportedTexture{Name: name, Data: buf.Bytes()}
}

func TestTransactionCoalescesNotifications(t *testing.T) {
	h := newHarness(t)
	a := h.avatar

	tx := a.BeginEditing()
	a.SetTattoo("arm", pngTexture(t, "rose"))
	a.SetTattoo("back", pngTexture(t, "koi"))
	if err := a.AttachComponent(&fakeComponent{name: "hat", slot: "head"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := a.AttachComponent(&fakeComponent{name: "belt", slot: "waist", bone: "hips"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	a.SetBones(append(bonesAt(-0.9), skeleton.BoneDescriptor{Name: "hand", Parent: 1}))
	a.SetRoot(scenegraph.NewNode(scenegraph.WithName("anchor2")))
	a.SetRoot(scenegraph.NewNode(scenegraph.WithName("anchor3")))

	if h.rebuilt != 0 || h.rooted != 0 {
		t.Fatalf("notifications fired during transaction: rebuilt=%d rooted=%d", h.rebuilt, h.rooted)
	}
	if !a.Editing() || !tx.Active() {
		t.Fatal("transaction should be active")
	}

	tx.End()
	if h.rebuilt != 1 || h.rooted != 1 {
		t.Fatalf("after End: rebuilt=%d rooted=%d, want 1 and 1", h.rebuilt, h.rooted)
	}
	if a.Editing() || tx.Active() {
		t.Fatal("transaction should be over")
	}

	tx.End()
	a.EndEditing()
	if h.rebuilt != 1 || h.rooted != 1 {
		t.Fatal("ending twice must be a no-op")
	}
}

func TestRebuiltFiresAfterRigAsset(t *testing.T) {
	h := newHarness(t)
	var order []string
	h.avatar.RigAssetRebuilt().Subscribe(func(*humanoid.RigAsset) { order = append(order, "rig") })
	h.avatar.Rebuilt().Subscribe(func(Avatar) { order = append(order, "rebuilt") })
	h.avatar.RootRebuilt().Subscribe(func(Avatar) { order = append(order, "root") })

	h.avatar.Edit(func() {
		h.avatar.SetRoot(scenegraph.NewNode())
		h.avatar.SetBones(bonesAt(-0.8)[:2])
		h.avatar.SetHumanRig(description())
	})

	if len(order) != 3 || order[0] != "rig" || order[1] != "rebuilt" || order[2] != "root" {
		t.Fatalf("order = %v", order)
	}
}

func TestImmediateNotificationsOutsideTransaction(t *testing.T) {
	h := newHarness(t)
	h.avatar.SetTattoo("arm", pngTexture(t, "rose"))
	h.avatar.SetTattoo("back", pngTexture(t, "koi"))
	if h.rebuilt != 2 {
		t.Fatalf("rebuilt = %d, want 2", h.rebuilt)
	}
	h.avatar.ClearTattoo("arm")
	h.avatar.ClearTattoo("arm")
	if h.rebuilt != 3 {
		t.Fatalf("rebuilt = %d, want 3", h.rebuilt)
	}
	if _, ok := h.avatar.Tattoo("back"); !ok {
		t.Fatal("back tattoo missing")
	}
}

func TestHumanRebuildDominatesBoundsCheck(t *testing.T) {
	h := newHarness(t)
	h.avatar.Edit(func() {
		h.avatar.SetHumanRig(description())
		h.avatar.SetBones(bonesAt(-0.5))
		h.avatar.NotifyBoundsDirty()
		h.avatar.NotifyHumanSkeletonChanged()
	})

	if got := h.rigBuilds("human"); got != 1 {
		t.Fatalf("human builds = %v, want 1", got)
	}
	if got := h.rigBuilds("grounding"); got != 0 {
		t.Fatalf("grounding builds = %v, want 0", got)
	}
	if len(h.animator.assets) != 1 || h.animator.assets[0] == nil {
		t.Fatalf("animator received %d assets", len(h.animator.assets))
	}
	if !h.avatar.RigAsset().GroundingOffset.ApproxEqualThreshold(mgl32.Vec3{0, -0.5, 0}, 1e-5) {
		t.Fatalf("grounding offset = %v", h.avatar.RigAsset().GroundingOffset)
	}
}

func TestBoundsDirtyRespectsThreshold(t *testing.T) {
	h := newHarness(t)
	h.avatar.SetHumanRig(description())
	first := h.avatar.RigAsset()
	if first == nil {
		t.Fatal("expected rig asset")
	}

	h.avatar.SetBones(bonesAt(-0.9005))
	if h.avatar.RigAsset() != first || h.rigBuilds("grounding") != 0 {
		t.Fatal("sub-threshold drift must not rebuild")
	}

	h.avatar.SetBones(bonesAt(-0.5))
	if h.rigBuilds("grounding") != 1 || h.avatar.RigAsset() == first {
		t.Fatal("drift past threshold must rebuild")
	}
}

func TestGroundingThresholdOverride(t *testing.T) {
	h := newHarness(t, WithGroundingThreshold(1))
	h.avatar.SetHumanRig(description())
	h.avatar.SetBones(bonesAt(-0.5))
	if h.rigBuilds("grounding") != 0 {
		t.Fatal("drift below overridden threshold must not rebuild")
	}
}

func TestRigAssetWithdrawnWhenUnavailable(t *testing.T) {
	h := newHarness(t)
	h.avatar.SetHumanRig(description())
	h.avatar.ClearHumanRig()

	if h.avatar.RigAsset() != nil {
		t.Fatal("asset should be withdrawn")
	}
	if n := len(h.animator.assets); n != 2 || h.animator.assets[1] != nil {
		t.Fatalf("animator assets = %v", h.animator.assets)
	}

	h.avatar.ClearHumanRig()
	if len(h.animator.assets) != 2 {
		t.Fatal("clearing an untagged rig must not notify")
	}
}

func TestNestedBeginEndsPreviousTransaction(t *testing.T) {
	h := newHarness(t)
	first := h.avatar.BeginEditing()
	h.avatar.NotifyRebuild()

	second := h.avatar.BeginEditing()
	if h.rebuilt != 1 {
		t.Fatalf("nested begin must flush the previous transaction, rebuilt = %d", h.rebuilt)
	}
	if first.Active() {
		t.Fatal("first transaction should be ended")
	}

	first.End()
	if !second.Active() {
		t.Fatal("ending a superseded transaction must not end the current one")
	}
	second.End()
	if h.rebuilt != 1 {
		t.Fatalf("empty transaction fired notifications, rebuilt = %d", h.rebuilt)
	}
}

func TestSkeletonOffsets(t *testing.T) {
	h := newHarness(t)
	offset := common.IdentityTransform()
	offset.Translation = mgl32.Vec3{0, 0.1, 0}

	h.avatar.SetSkeletonOffset("spine", offset)
	spine, _ := h.avatar.Skeleton().Bone("spine")
	if got := spine.Node().LocalTransform().Translation; !got.ApproxEqualThreshold(mgl32.Vec3{0, 0.6, 0}, 1e-5) {
		t.Fatalf("offset spine = %v", got)
	}

	// offsets survive later bone updates
	h.avatar.SetBones(bonesAt(-0.9))
	if got := spine.Node().LocalTransform().Translation; !got.ApproxEqualThreshold(mgl32.Vec3{0, 0.6, 0}, 1e-5) {
		t.Fatalf("offset lost after SetBones: %v", got)
	}

	h.avatar.ClearSkeletonOffsets()
	if got := spine.Node().LocalTransform().Translation; !got.ApproxEqualThreshold(mgl32.Vec3{0, 0.5, 0}, 1e-5) {
		t.Fatalf("cleared spine = %v", got)
	}
}

func TestMissingBoneMutationsAreNoops(t *testing.T) {
	h := newHarness(t)
	before := testutil.ToFloat64(h.metrics.ReconcileCounter("noop")) + testutil.ToFloat64(h.metrics.ReconcileCounter("pose"))

	h.avatar.SetSkeletonOffset("tail", common.IdentityTransform())
	h.avatar.SetPose(map[string]common.Transform{"tail": common.IdentityTransform()})

	after := testutil.ToFloat64(h.metrics.ReconcileCounter("noop")) + testutil.ToFloat64(h.metrics.ReconcileCounter("pose"))
	if before != after || h.rebuilt != 0 {
		t.Fatal("mutations on missing bones must not reconcile or notify")
	}

	err := h.avatar.AttachComponent(&fakeComponent{name: "ring", slot: "finger", bone: "finger"})
	if !errors.Is(err, ErrBoneNotFound) {
		t.Fatalf("err = %v, want ErrBoneNotFound", err)
	}
}

func TestSetPoseAndRestore(t *testing.T) {
	h := newHarness(t)
	h.avatar.SetHumanRig(description())
	raised := common.IdentityTransform()
	raised.Translation = mgl32.Vec3{0, 3, 0}

	h.avatar.SetPose(map[string]common.Transform{"hips": raised})
	if h.rigBuilds("grounding") != 1 {
		t.Fatal("lifting the hips past the threshold must rebuild the rig asset")
	}
	hips, _ := h.avatar.Skeleton().Bone("hips")
	if got := hips.Node().LocalTransform().Translation; !got.ApproxEqual(mgl32.Vec3{0, 3, 0}) {
		t.Fatalf("posed hips = %v", got)
	}

	h.avatar.RestorePose()
	if got := hips.Node().LocalTransform().Translation; !got.ApproxEqual(mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("restored hips = %v", got)
	}
}

func TestComponentSlots(t *testing.T) {
	h := newHarness(t)
	hat := &fakeComponent{name: "hat", slot: "head", bone: "spine"}
	if err := h.avatar.AttachComponent(hat); err != nil {
		t.Fatalf("attach: %v", err)
	}
	spine, _ := h.avatar.Skeleton().Bone("spine")
	if hat.node.Parent() != spine.Node() {
		t.Fatal("component not attached under its bone")
	}

	if err := h.avatar.AttachComponent(&fakeComponent{name: "cap", slot: "head"}); !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("err = %v, want ErrSlotOccupied", err)
	}
	rejected := &fakeComponent{name: "cape", slot: "back", attachErr: errors.New("conflict")}
	if err := h.avatar.AttachComponent(rejected); err == nil {
		t.Fatal("expected attach error")
	}
	if _, ok := h.avatar.Component("back"); ok {
		t.Fatal("rejected component must not be registered")
	}

	if err := h.avatar.DetachComponent("head"); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if hat.detached != 1 || len(h.avatar.Components()) != 0 {
		t.Fatal("component not detached")
	}
	if err := h.avatar.DetachComponent("head"); !errors.Is(err, ErrComponentNotAttached) {
		t.Fatalf("err = %v, want ErrComponentNotAttached", err)
	}
}

func TestRemovingBoneDetachesItsComponents(t *testing.T) {
	h := newHarness(t)
	hat := &fakeComponent{name: "hat", slot: "head", bone: "spine"}
	belt := &fakeComponent{name: "belt", slot: "waist", bone: "hips"}
	for _, c := range []*fakeComponent{hat, belt} {
		if err := h.avatar.AttachComponent(c); err != nil {
			t.Fatalf("attach %s: %v", c.name, err)
		}
	}
	h.rebuilt = 0

	withoutSpine := bonesAt(-0.9)
	withoutSpine = append(withoutSpine[:1], withoutSpine[2])
	h.avatar.Edit(func() { h.avatar.SetBones(withoutSpine) })

	if _, ok := h.avatar.Component("head"); ok {
		t.Fatal("component on a removed bone must be detached")
	}
	if hat.detached != 1 || !hat.node.Destroyed() {
		t.Fatalf("hat detached %d times", hat.detached)
	}
	if _, ok := h.avatar.Component("waist"); !ok || belt.detached != 0 || belt.node.Destroyed() {
		t.Fatal("component on a surviving bone must stay attached")
	}
	if h.rebuilt != 1 {
		t.Fatalf("rebuilt = %d, want 1", h.rebuilt)
	}
}

func TestSetRootMovesRootComponents(t *testing.T) {
	h := newHarness(t)
	badge := &fakeComponent{name: "badge", slot: "badge"}
	if err := h.avatar.AttachComponent(badge); err != nil {
		t.Fatal(err)
	}

	next := scenegraph.NewNode(scenegraph.WithName("next"))
	h.avatar.SetRoot(next)
	if h.rooted != 1 {
		t.Fatalf("root rebuilt = %d", h.rooted)
	}
	if badge.node.Parent() != next || h.avatar.Root() != next {
		t.Fatal("root component did not follow the anchor")
	}
	hips, _ := h.avatar.Skeleton().Bone("hips")
	if hips.Node().Parent() != next {
		t.Fatal("root bone did not follow the anchor")
	}

	h.avatar.SetRoot(nil)
	h.avatar.SetRoot(next)
	if h.rooted != 1 {
		t.Fatal("nil or unchanged anchors must be ignored")
	}
}

func TestDispose(t *testing.T) {
	h := newHarness(t)
	hat := &fakeComponent{name: "hat", slot: "head", bone: "spine"}
	if err := h.avatar.AttachComponent(hat); err != nil {
		t.Fatal(err)
	}
	disposed := 0
	h.avatar.Disposed().Subscribe(func(Avatar) { disposed++ })

	h.avatar.BeginEditing()
	h.avatar.NotifyRebuild()
	h.avatar.Dispose()
	h.avatar.Dispose()

	if disposed != 1 {
		t.Fatalf("disposed fired %d times", disposed)
	}
	if h.rebuilt != 0 {
		t.Fatal("pending transaction must be dropped on dispose")
	}
	if hat.detached != 1 || h.avatar.Skeleton().Len() != 0 {
		t.Fatal("dispose must detach components and clear the skeleton")
	}
	if h.root.Destroyed() || len(h.root.Children()) != 0 {
		t.Fatal("root anchor must survive dispose with no owned children")
	}

	h.avatar.SetBones(bonesAt(-0.9))
	h.avatar.NotifyRebuild()
	if h.avatar.Skeleton().Len() != 0 || h.rebuilt != 0 {
		t.Fatal("mutations after dispose must be ignored")
	}
	if err := h.avatar.AttachComponent(hat); !errors.Is(err, ErrDisposed) {
		t.Fatalf("err = %v, want ErrDisposed", err)
	}
	if tx := h.avatar.BeginEditing(); tx.Active() {
		t.Fatal("transactions on a disposed avatar must be inert")
	}
}
