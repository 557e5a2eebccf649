package avatar

import (
	"errors"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/config"
	"github.com/Carmen-Shannon/oxy-rig/engine/event"
	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
	"github.com/Carmen-Shannon/oxy-rig/engine/metrics"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/Carmen-Shannon/oxy-rig/engine/skeleton"
)

var (
	// ErrDisposed is returned by mutations that report errors once the avatar has been disposed.
	ErrDisposed = errors.New("avatar: disposed")

	// ErrSlotOccupied is returned when attaching a component to a slot that already holds one.
	ErrSlotOccupied = errors.New("avatar: component slot occupied")

	// ErrComponentNotAttached is returned when detaching a slot that holds no component.
	ErrComponentNotAttached = errors.New("avatar: no component attached to slot")

	// ErrBoneNotFound is returned when a component names a bone with no live node.
	ErrBoneNotFound = errors.New("avatar: bone not found")
)

// Animator receives the humanoid rig asset whenever it is rebuilt. A nil asset means the
// previous asset is no longer available.
type Animator interface {
	ApplyRigAsset(asset *humanoid.RigAsset)
}

type avatar struct {
	root     scenegraph.Node
	skel     skeleton.Skeleton
	rig      humanoid.Rig
	asset    *humanoid.RigAsset
	animator Animator

	bones      []skeleton.BoneDescriptor
	offsets    map[string]common.Transform
	tattoos    map[string]Tattoo
	components map[string]Component
	slotOrder  []string

	tx       *EditTransaction
	disposed bool

	cfg               *config.Config
	threshold         float32
	thresholdOverride bool
	skeletonOptions   []skeleton.SkeletonBuilderOption
	rigOptions        []humanoid.RigBuilderOption
	metrics           *metrics.Collectors
	logger            *slog.Logger

	rebuilt         event.Event[Avatar]
	rootRebuilt     event.Event[Avatar]
	rigAssetRebuilt event.Event[*humanoid.RigAsset]
	disposedEvent   event.Event[Avatar]
}

// Avatar defines the interface for an assembled, animatable character rig.
//
// The Avatar owns a Skeleton kept in sync with externally supplied bone lists, the humanoid
// Rig layered over it and the rig asset built from both. Every mutation reports what it
// invalidated through one of four notifications. Outside an edit transaction a notification
// is resolved immediately; inside one it is only recorded and EndEditing resolves all of them
// once, in a fixed order.
//
// Mutations never panic and never fail because of stale references: a mutation naming a
// missing or destroyed node, or arriving after Dispose, is logged and ignored.
// Not safe for concurrent use; all calls must come from the owning goroutine.
type Avatar interface {
	// Root returns the externally owned anchor of the skeleton.
	Root() scenegraph.Node

	// Skeleton returns the live skeleton.
	Skeleton() skeleton.Skeleton

	// Rig returns the humanoid mapping over the skeleton.
	Rig() humanoid.Rig

	// RigAsset returns the last built rig asset, or nil if none is available.
	RigAsset() *humanoid.RigAsset

	// SetBones reconciles the skeleton against bones, with skeleton offsets applied.
	// The slice is copied.
	//
	// Parameters:
	//   - bones: the ordered bone list
	SetBones(bones []skeleton.BoneDescriptor)

	// SetRoot moves the skeleton and root-level components under a new anchor.
	//
	// Parameters:
	//   - root: the new anchor; nil or destroyed anchors are ignored
	SetRoot(root scenegraph.Node)

	// SetHumanRig replaces the human rig description.
	//
	// Parameters:
	//   - desc: the description; nil behaves like ClearHumanRig
	SetHumanRig(desc *humanoid.Description)

	// ClearHumanRig removes the human rig description.
	ClearHumanRig()

	// SetSkeletonOffset offsets one bone's default local pose on top of the supplied bone list.
	//
	// Parameters:
	//   - bone: the bone name; must name a live bone
	//   - offset: translation added, rotation composed and scale multiplied onto the bone's pose
	SetSkeletonOffset(bone string, offset common.Transform)

	// ClearSkeletonOffsets removes every skeleton offset.
	ClearSkeletonOffsets()

	// SetTattoo decodes tex and places it in slot, replacing any previous tattoo there.
	//
	// Parameters:
	//   - slot: the tattoo slot
	//   - tex: the encoded texture; nil clears the slot
	SetTattoo(slot string, tex *common.ImportedTexture)

	// ClearTattoo removes the tattoo in slot.
	//
	// Parameters:
	//   - slot: the tattoo slot
	ClearTattoo(slot string)

	// Tattoo returns the tattoo in slot.
	//
	// Parameters:
	//   - slot: the tattoo slot
	//
	// Returns:
	//   - Tattoo: the tattoo
	//   - bool: false if the slot is empty
	Tattoo(slot string) (Tattoo, bool)

	// AttachComponent attaches c under its bone (or the root when it names none) in its slot.
	//
	// Parameters:
	//   - c: the component to attach
	//
	// Returns:
	//   - error: ErrDisposed, ErrSlotOccupied, ErrBoneNotFound or the component's attach error
	AttachComponent(c Component) error

	// DetachComponent detaches the component in slot.
	//
	// Parameters:
	//   - slot: the component slot
	//
	// Returns:
	//   - error: ErrDisposed or ErrComponentNotAttached
	DetachComponent(slot string) error

	// Component returns the component in slot.
	Component(slot string) (Component, bool)

	// Components returns the attached components in attach order.
	Components() []Component

	// SetPose temporarily poses the named bones. RestorePose undoes it.
	//
	// Parameters:
	//   - poses: local transforms keyed by bone name
	SetPose(poses map[string]common.Transform)

	// RestorePose restores every bone posed by SetPose.
	RestorePose()

	// NotifyRebuild requests a structural rebuild notification.
	NotifyRebuild()

	// NotifyRootRebuild requests a root-structural rebuild notification.
	NotifyRootRebuild()

	// NotifyHumanSkeletonChanged requests an unconditional rig asset rebuild.
	NotifyHumanSkeletonChanged()

	// NotifyBoundsDirty requests a grounding check that rebuilds the rig asset when the
	// grounding offset moved further than the threshold.
	NotifyBoundsDirty()

	// BeginEditing starts an edit transaction. An active transaction is ended first.
	//
	// Returns:
	//   - *EditTransaction: the transaction; call End (or EndEditing) to resolve it
	BeginEditing() *EditTransaction

	// EndEditing resolves the active transaction. No-op when no transaction is active.
	EndEditing()

	// Editing reports whether a transaction is active.
	Editing() bool

	// Edit runs fn inside a transaction.
	//
	// Parameters:
	//   - fn: the mutations to batch
	Edit(fn func())

	// Rebuilt fires after a structural rebuild notification.
	Rebuilt() *event.Event[Avatar]

	// RootRebuilt fires after a root-structural rebuild notification.
	RootRebuilt() *event.Event[Avatar]

	// RigAssetRebuilt fires after the rig asset is rebuilt or becomes unavailable (nil).
	RigAssetRebuilt() *event.Event[*humanoid.RigAsset]

	// Disposed fires once when the avatar is disposed.
	Disposed() *event.Event[Avatar]

	// Dispose detaches every component, destroys every owned node and fires Disposed.
	// The root anchor is not destroyed. Calling Dispose again is a no-op.
	Dispose()

	// IsDisposed reports whether Dispose has been called.
	IsDisposed() bool
}

var _ Avatar = &avatar{}

// NewAvatar creates an Avatar whose skeleton hangs beneath root.
//
// Parameters:
//   - root: the externally owned anchor; must not be nil
//   - options: functional options to configure the avatar
//
// Returns:
//   - Avatar: the newly created avatar
func NewAvatar(root scenegraph.Node, options ...AvatarBuilderOption) Avatar {
	if root == nil {
		panic("avatar: NewAvatar requires a non-nil root anchor")
	}
	a := &avatar{
		root:       root,
		offsets:    make(map[string]common.Transform),
		tattoos:    make(map[string]Tattoo),
		components: make(map[string]Component),
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(a)
	}

	if a.cfg == nil {
		a.cfg = config.Default()
	}
	if !a.thresholdOverride {
		a.threshold = a.cfg.Grounding.Threshold
	}

	skelOptions := append([]skeleton.SkeletonBuilderOption{skeleton.WithLogger(a.logger)}, a.skeletonOptions...)
	a.skel = skeleton.NewSkeleton(root, skelOptions...)

	rigOptions := append([]humanoid.RigBuilderOption{
		humanoid.WithLogger(a.logger),
		humanoid.WithGrounding(a.cfg.GroundingSettings()),
		humanoid.WithHipsJoint(a.cfg.Humanoid.HipsJoint),
	}, a.rigOptions...)
	a.rig = humanoid.NewRig(a.skel, rigOptions...)
	return a
}

func (a *avatar) Root() scenegraph.Node {
	return a.root
}

func (a *avatar) Skeleton() skeleton.Skeleton {
	return a.skel
}

func (a *avatar) Rig() humanoid.Rig {
	return a.rig
}

func (a *avatar) RigAsset() *humanoid.RigAsset {
	return a.asset
}

func (a *avatar) SetRoot(root scenegraph.Node) {
	if a.rejectDisposed("SetRoot") {
		return
	}
	if !scenegraph.Alive(root) {
		a.logger.Warn("avatar: ignoring missing or destroyed root anchor")
		return
	}
	if !a.skel.SetRoot(root) {
		return
	}
	a.root = root
	for _, slot := range a.slotOrder {
		c := a.components[slot]
		if c.Bone() != "" {
			continue
		}
		c.Detach()
		if err := c.Attach(root); err != nil {
			a.logger.Warn("avatar: component failed to follow root anchor, detaching", "slot", slot, "error", err)
			a.removeComponent(slot)
		}
	}
	a.NotifyRootRebuild()
}

func (a *avatar) SetHumanRig(desc *humanoid.Description) {
	if a.rejectDisposed("SetHumanRig") {
		return
	}
	if a.rig.SetHumanRig(desc) {
		a.NotifyHumanSkeletonChanged()
	}
}

func (a *avatar) ClearHumanRig() {
	if a.rejectDisposed("ClearHumanRig") {
		return
	}
	if a.rig.ClearHumanRig() {
		a.NotifyHumanSkeletonChanged()
	}
}

func (a *avatar) Rebuilt() *event.Event[Avatar] {
	return &a.rebuilt
}

func (a *avatar) RootRebuilt() *event.Event[Avatar] {
	return &a.rootRebuilt
}

func (a *avatar) RigAssetRebuilt() *event.Event[*humanoid.RigAsset] {
	return &a.rigAssetRebuilt
}

func (a *avatar) Disposed() *event.Event[Avatar] {
	return &a.disposedEvent
}

func (a *avatar) Dispose() {
	if a.disposed {
		return
	}
	if a.tx != nil {
		a.tx.active = false
		a.tx = nil
	}
	for i := len(a.slotOrder) - 1; i >= 0; i-- {
		a.components[a.slotOrder[i]].Detach()
	}
	a.components = make(map[string]Component)
	a.slotOrder = nil
	a.tattoos = make(map[string]Tattoo)
	a.skel.Clear()
	a.asset = nil
	a.disposed = true

	a.disposedEvent.Emit(a)
	a.rebuilt.Clear()
	a.rootRebuilt.Clear()
	a.rigAssetRebuilt.Clear()
	a.disposedEvent.Clear()
}

func (a *avatar) IsDisposed() bool {
	return a.disposed
}

// rejectDisposed logs and reports true when op arrives after Dispose.
func (a *avatar) rejectDisposed(op string) bool {
	if a.disposed {
		a.logger.Warn("avatar: ignoring mutation after dispose", "op", op)
	}
	return a.disposed
}
