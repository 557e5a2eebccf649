package scenegraph

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrParentCycle is returned when a reparent would make a node its own ancestor.
	ErrParentCycle = errors.New("scenegraph: reparent would create a cycle")

	// ErrNodeDestroyed is returned when either side of a reparent has been destroyed.
	ErrNodeDestroyed = errors.New("scenegraph: node destroyed")
)

type node struct {
	name      string
	parent    *node
	children  []*node
	local     common.Transform
	destroyed bool
}

// Node defines the interface for a single scene-graph transform node.
// A Node carries a local transform relative to its parent; its world matrix is the
// composition of every ancestor's local matrix. Destroying a node destroys its whole
// subtree, which is why owners must move surviving children out before destroying.
type Node interface {
	// Name returns the node's name.
	//
	// Returns:
	//   - string: the node name
	Name() string

	// SetName sets the node's name.
	//
	// Parameters:
	//   - name: the new name
	SetName(name string)

	// Parent returns the node's parent, or nil for a detached node.
	//
	// Returns:
	//   - Node: the parent or nil
	Parent() Node

	// SetParent moves the node under parent. The local transform is kept as-is, so the
	// world transform changes with the new parent. Passing nil detaches the node.
	//
	// Parameters:
	//   - parent: the new parent, or nil to detach
	//
	// Returns:
	//   - error: ErrNodeDestroyed or ErrParentCycle if the move is refused
	SetParent(parent Node) error

	// Children returns a copy of the node's direct children in attach order.
	//
	// Returns:
	//   - []Node: the children
	Children() []Node

	// LocalTransform returns the node's local transform.
	//
	// Returns:
	//   - common.Transform: the local TRS
	LocalTransform() common.Transform

	// SetLocalTransform replaces the node's local transform.
	//
	// Parameters:
	//   - t: the new local TRS
	SetLocalTransform(t common.Transform)

	// LocalMatrix returns the local transform composed into a matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the local pose matrix
	LocalMatrix() mgl32.Mat4

	// WorldMatrix composes the local matrices from the top-most ancestor down to this node.
	//
	// Returns:
	//   - mgl32.Mat4: the world pose matrix
	WorldMatrix() mgl32.Mat4

	// IsAncestorOf reports whether this node is a strict ancestor of other.
	//
	// Parameters:
	//   - other: the candidate descendant
	//
	// Returns:
	//   - bool: true if other sits somewhere below this node
	IsAncestorOf(other Node) bool

	// Destroy destroys the node and its entire subtree and detaches it from its parent.
	// Destroying an already destroyed node is a no-op.
	Destroy()

	// Destroyed reports whether the node has been destroyed.
	//
	// Returns:
	//   - bool: true once Destroy has run on this node or an ancestor
	Destroyed() bool
}

var _ Node = &node{}

// NewNode creates a new Node with an identity local transform, configured with the given options.
//
// Parameters:
//   - options: functional options to configure the node
//
// Returns:
//   - Node: the newly created node
func NewNode(options ...NodeBuilderOption) Node {
	n := &node{
		local: common.IdentityTransform(),
	}
	for _, option := range options {
		option(n)
	}
	return n
}

// Alive reports whether n is non-nil and not destroyed. It is the check owners use
// before trusting a node reference that may have been destroyed elsewhere.
//
// Parameters:
//   - n: the node to check
//
// Returns:
//   - bool: true if the node can be used
func Alive(n Node) bool {
	return n != nil && !n.Destroyed()
}

func (n *node) Name() string {
	return n.name
}

func (n *node) SetName(name string) {
	n.name = name
}

func (n *node) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) SetParent(parent Node) error {
	if n.destroyed {
		return ErrNodeDestroyed
	}
	if parent == nil {
		n.detach()
		return nil
	}

	p, ok := parent.(*node)
	if !ok {
		return errors.New("scenegraph: foreign Node implementation")
	}
	if p.destroyed {
		return ErrNodeDestroyed
	}
	if p == n || n.IsAncestorOf(p) {
		return ErrParentCycle
	}
	if n.parent == p {
		return nil
	}

	n.detach()
	n.parent = p
	p.children = append(p.children, n)
	return nil
}

func (n *node) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *node) LocalTransform() common.Transform {
	return n.local
}

func (n *node) SetLocalTransform(t common.Transform) {
	n.local = t
}

func (n *node) LocalMatrix() mgl32.Mat4 {
	return n.local.Matrix()
}

func (n *node) WorldMatrix() mgl32.Mat4 {
	world := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		world = common.ComposeWorld(p.LocalMatrix(), world)
	}
	return world
}

func (n *node) IsAncestorOf(other Node) bool {
	o, ok := other.(*node)
	if !ok || o == nil {
		return false
	}
	for p := o.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

func (n *node) Destroy() {
	if n.destroyed {
		return
	}
	n.detach()
	n.destroySubtree()
}

func (n *node) Destroyed() bool {
	return n.destroyed
}

// destroySubtree marks this node and all descendants destroyed, children first.
func (n *node) destroySubtree() {
	for _, c := range n.children {
		c.parent = nil
		c.destroySubtree()
	}
	n.children = nil
	n.destroyed = true
}

// detach removes the node from its parent's child list.
func (n *node) detach() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, c := range siblings {
		if c == n {
			n.parent.children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}
