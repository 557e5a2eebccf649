package skeleton

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/go-gl/mathgl/mgl32"
)

// HumanResolver decides which bones participate in the human mapping.
// The humanoid rig installs one so bones created by later reconciliations are tagged too.
type HumanResolver interface {
	// HumanPose reports whether boneName is mapped to a human joint, and the pose override
	// declared for it, if any.
	//
	// Parameters:
	//   - boneName: the bone to look up
	//
	// Returns:
	//   - *common.Transform: the declared pose override, or nil
	//   - bool: true if the bone is mapped
	HumanPose(boneName string) (*common.Transform, bool)
}

type skeleton struct {
	root           scenegraph.Node
	byName         map[string]*BoneNode
	bones          []*BoneNode
	byInput        []*BoneNode
	rootBones      []*BoneNode
	resolver       HumanResolver
	nodeFactory    func(name string) scenegraph.Node
	anchorBindPose bool
	logger         *slog.Logger

	posesChanged      bool
	humanPosesChanged bool
}

// Skeleton defines the interface for the live scene-graph skeleton kept in sync with a flat bone list.
//
// The skeleton owns one scene node per named bone beneath an externally owned root anchor.
// Reconcile diffs a new bone list against the current state: nodes are reused by name,
// created for new bones and destroyed for removed ones, and surviving bones are never left
// beneath a destroyed ancestor. The anchor itself is never created or destroyed here.
//
// Not safe for concurrent use; all calls must come from the owning goroutine.
type Skeleton interface {
	// Root returns the externally owned anchor all root-level bones attach to.
	//
	// Returns:
	//   - scenegraph.Node: the root anchor
	Root() scenegraph.Node

	// SetRoot moves every root-level bone beneath a new anchor.
	// A nil or destroyed anchor is ignored.
	//
	// Parameters:
	//   - root: the new anchor
	//
	// Returns:
	//   - bool: true if the anchor changed
	SetRoot(root scenegraph.Node) bool

	// Reconcile brings the skeleton in line with bones. The list order defines the new
	// bone index space; parent references are indices into the same list.
	//
	// Parameters:
	//   - bones: the ordered bone list
	//
	// Returns:
	//   - structural: true if any node was created, destroyed or reparented
	//   - human: true if any of those changes touched a human-mapped bone
	Reconcile(bones []BoneDescriptor) (structural, human bool)

	// LastPoseChanges reports default pose changes detected by the last Reconcile.
	//
	// Returns:
	//   - changed: true if at least one reused bone's default local pose changed
	//   - human: true if at least one of those bones is human-mapped
	LastPoseChanges() (changed, human bool)

	// Bone returns the bone registered under name.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - *BoneNode: the bone
	//   - bool: false if no such bone exists
	Bone(name string) (*BoneNode, bool)

	// Bones returns the bones in index order. Duplicate and unnamed input entries are left
	// out, so a bone's position in the slice may differ from its Index; skinning code should
	// address bones by Index.
	//
	// Returns:
	//   - []*BoneNode: the ordered bone list
	Bones() []*BoneNode

	// RootBones returns the root-level bones in index order.
	//
	// Returns:
	//   - []*BoneNode: bones attached directly to the root anchor
	RootBones() []*BoneNode

	// Len returns the number of registered bones.
	//
	// Returns:
	//   - int: the bone count
	Len() int

	// SetHumanResolver installs the human mapping and re-tags every bone.
	// Passing nil untags every bone.
	//
	// Parameters:
	//   - resolver: the human mapping, or nil
	//
	// Returns:
	//   - int: the number of bones that were tagged before the call
	SetHumanResolver(resolver HumanResolver) int

	// HumanBoneCount returns the number of bones currently tagged as human-mapped.
	//
	// Returns:
	//   - int: the tagged bone count
	HumanBoneCount() int

	// DefaultWorldMatrix returns the bind pose of the named bone.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - mgl32.Mat4: the bind pose
	//   - bool: false if the bone is unknown or unresolved
	DefaultWorldMatrix(name string) (mgl32.Mat4, bool)

	// InverseBindMatrices returns one inverse bind pose per entry of the last reconciled
	// list, so entry i belongs to the bone whose Index is i. Duplicate entries repeat the
	// winning bone's matrix; unnamed entries are identity.
	//
	// Returns:
	//   - []mgl32.Mat4: the inverse bind matrices, indexed like the input list
	InverseBindMatrices() []mgl32.Mat4

	// ApplyPose temporarily applies local poses by bone name. The pose each bone had before
	// the first temporary application is cached for RestorePose. Unknown bones are skipped.
	//
	// Parameters:
	//   - poses: local transforms keyed by bone name
	//
	// Returns:
	//   - int: the number of bones posed
	ApplyPose(poses map[string]common.Transform) int

	// ApplyHumanPose temporarily applies the human pose override of every tagged bone.
	//
	// Returns:
	//   - int: the number of bones posed
	ApplyHumanPose() int

	// RestorePose restores every bone that has a cached pose.
	//
	// Returns:
	//   - int: the number of bones restored
	RestorePose() int

	// Clear destroys every owned node and empties the registry. The root anchor survives.
	Clear()
}

var _ Skeleton = &skeleton{}

// NewSkeleton creates an empty Skeleton beneath the given root anchor.
// Panics if root is nil, since every root-level bone needs somewhere to attach.
//
// Parameters:
//   - root: the externally owned anchor
//   - options: functional options to configure the skeleton
//
// Returns:
//   - Skeleton: the newly created skeleton
func NewSkeleton(root scenegraph.Node, options ...SkeletonBuilderOption) Skeleton {
	if root == nil {
		panic("skeleton: NewSkeleton requires a non-nil root anchor")
	}
	s := &skeleton{
		root:   root,
		byName: make(map[string]*BoneNode),
		logger: slog.Default(),
		nodeFactory: func(name string) scenegraph.Node {
			return scenegraph.NewNode(scenegraph.WithName(name))
		},
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *skeleton) Root() scenegraph.Node {
	return s.root
}

func (s *skeleton) SetRoot(root scenegraph.Node) bool {
	if !scenegraph.Alive(root) {
		s.logger.Warn("skeleton: ignoring nil or destroyed root anchor")
		return false
	}
	if root == s.root {
		return false
	}
	s.root = root
	for _, b := range s.rootBones {
		if !scenegraph.Alive(b.node) {
			continue
		}
		if err := b.node.SetParent(root); err != nil {
			s.logger.Warn("skeleton: failed to move bone under new root", "bone", b.name, "error", err)
		}
	}
	if s.anchorBindPose {
		s.resolveDefaultWorldPoses()
	}
	return true
}

func (s *skeleton) Reconcile(descs []BoneDescriptor) (structural, human bool) {
	s.posesChanged, s.humanPosesChanged = false, false

	// candidates for removal, in previous index order
	removal := make(map[string]*BoneNode, len(s.bones))
	for _, b := range s.bones {
		removal[b.name] = b
	}
	previous := s.bones

	byInput := make([]*BoneNode, len(descs))
	ordered := make([]*BoneNode, 0, len(descs))
	firstIndex := make(map[string]int, len(descs))

	for i, d := range descs {
		if d.Name == "" {
			s.logger.Warn("skeleton: ignoring unnamed bone", "index", i)
			continue
		}
		if first, dup := firstIndex[d.Name]; dup {
			s.logger.Warn("skeleton: duplicate bone name ignored", "bone", d.Name, "index", i, "first", first)
			byInput[i] = byInput[first]
			continue
		}
		firstIndex[d.Name] = i

		b, ok := s.byName[d.Name]
		switch {
		case ok && scenegraph.Alive(b.node):
			b.isNew = false
			delete(removal, d.Name)
		case ok:
			// node destroyed behind our back; the bone is still wanted, so recreate it
			s.logger.Warn("skeleton: bone node destroyed externally, recreating", "bone", d.Name)
			delete(removal, d.Name)
			human = human || b.isHuman
			b = s.newBoneNode(d.Name)
		default:
			b = s.newBoneNode(d.Name)
		}

		local := d.LocalTransform()
		localMatrix := local.Matrix()
		b.poseChanged = !b.isNew && !common.PosesEqual(b.defaultLocalMatrix, localMatrix)
		b.defaultLocal = local
		b.defaultLocalMatrix = localMatrix
		b.defaultWorldResolved = false
		b.index = i
		b.declaredParent = d.Parent
		b.parent = nil

		byInput[i] = b
		ordered = append(ordered, b)
	}

	// removed bones: rescue surviving descendants, then destroy
	for _, old := range previous {
		if _, removed := removal[old.name]; !removed {
			continue
		}
		if scenegraph.Alive(old.node) {
			s.rescueDescendants(old.node, removal)
			old.node.Destroy()
		}
		if s.byName[old.name] == old {
			delete(s.byName, old.name)
		}
		structural = true
		human = human || old.isHuman
	}

	s.bones = ordered
	s.byInput = byInput
	s.rootBones = s.rootBones[:0]

	// moved bones are lifted to the root before any is attached, so edges left over from the
	// previous hierarchy never read as cycles
	targets := make([]scenegraph.Node, len(ordered))
	for i, b := range ordered {
		targets[i] = s.resolveParent(b)
		if b.node.Parent() == targets[i] {
			continue
		}
		if err := b.node.SetParent(s.root); err != nil {
			s.logger.Warn("skeleton: cannot detach bone from previous parent", "bone", b.name, "error", err)
		}
		b.isNew = true
		structural = true
		human = human || b.isHuman
	}

	for i, b := range ordered {
		if b.node.Parent() != targets[i] {
			if err := b.node.SetParent(targets[i]); err != nil {
				s.logger.Warn("skeleton: cannot attach bone to parent, attaching to root",
					"bone", b.name, "parent", b.declaredParent, "error", err)
				b.parent = nil
			}
		}
		if b.parent == nil {
			s.rootBones = append(s.rootBones, b)
		}

		if b.isNew || b.poseChanged {
			if b.poseChanged {
				s.posesChanged = true
				s.humanPosesChanged = s.humanPosesChanged || b.isHuman
			}
			b.applyDefaultPose()
		}
	}

	s.resolveDefaultWorldPoses()

	s.logger.Debug("skeleton: reconciled",
		"bones", len(s.bones), "structural", structural, "human", human, "posesChanged", s.posesChanged)
	return structural, human
}

func (s *skeleton) LastPoseChanges() (changed, human bool) {
	return s.posesChanged, s.humanPosesChanged
}

func (s *skeleton) Bone(name string) (*BoneNode, bool) {
	b, ok := s.byName[name]
	return b, ok
}

func (s *skeleton) Bones() []*BoneNode {
	out := make([]*BoneNode, len(s.bones))
	copy(out, s.bones)
	return out
}

func (s *skeleton) RootBones() []*BoneNode {
	out := make([]*BoneNode, len(s.rootBones))
	copy(out, s.rootBones)
	return out
}

func (s *skeleton) Len() int {
	return len(s.bones)
}

func (s *skeleton) SetHumanResolver(resolver HumanResolver) int {
	previouslyTagged := s.HumanBoneCount()
	s.resolver = resolver
	for _, b := range s.bones {
		s.tagBone(b)
	}
	return previouslyTagged
}

func (s *skeleton) HumanBoneCount() int {
	n := 0
	for _, b := range s.bones {
		if b.isHuman {
			n++
		}
	}
	return n
}

func (s *skeleton) Clear() {
	for _, b := range s.bones {
		if scenegraph.Alive(b.node) {
			b.node.Destroy()
		}
	}
	s.bones = nil
	s.byInput = nil
	s.rootBones = nil
	s.byName = make(map[string]*BoneNode)
	s.posesChanged, s.humanPosesChanged = false, false
}

// newBoneNode creates and registers a bone record with a freshly owned node.
func (s *skeleton) newBoneNode(name string) *BoneNode {
	b := &BoneNode{
		name:           name,
		declaredParent: ParentNone,
		node:           s.nodeFactory(name),
		isNew:          true,
	}
	s.tagBone(b)
	s.byName[name] = b
	return b
}

func (s *skeleton) tagBone(b *BoneNode) {
	if s.resolver == nil {
		b.tag(nil, false)
		return
	}
	b.tag(s.resolver.HumanPose(b.name))
}

// resolveParent links b to its parent bone and returns the node it should hang under.
func (s *skeleton) resolveParent(b *BoneNode) scenegraph.Node {
	pi := b.declaredParent
	switch {
	case pi == ParentNone || pi == ParentExternal:
		return s.root
	case pi < 0 || pi >= len(s.byInput) || s.byInput[pi] == nil || s.byInput[pi] == b:
		s.logger.Warn("skeleton: invalid parent index, attaching to root", "bone", b.name, "parent", pi)
		return s.root
	}
	b.parent = s.byInput[pi]
	return b.parent.node
}

// rescueDescendants moves every surviving bone found below n to the root anchor so that
// destroying n does not take it down too. Removed bones and foreign nodes are searched
// recursively since surviving bones may sit below them.
func (s *skeleton) rescueDescendants(n scenegraph.Node, removal map[string]*BoneNode) {
	for _, child := range n.Children() {
		name := child.Name()
		if _, removed := removal[name]; !removed {
			if b, ok := s.byName[name]; ok && b.node == child {
				if err := child.SetParent(s.root); err != nil {
					s.logger.Warn("skeleton: failed to rescue bone", "bone", name, "error", err)
					continue
				}
				s.logger.Debug("skeleton: rescued bone from removed ancestor", "bone", name, "ancestor", n.Name())
				continue
			}
		}
		s.rescueDescendants(child, removal)
	}
}
