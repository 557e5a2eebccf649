package scenegraph

import (
	"github.com/Carmen-Shannon/oxy-rig/common"
)

// NodeBuilderOption is a functional option for configuring a Node during construction.
type NodeBuilderOption func(*node)

// WithName sets the name of the Node.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - NodeBuilderOption: functional option to set the name
func WithName(name string) NodeBuilderOption {
	return func(n *node) {
		n.name = name
	}
}

// WithLocalTransform sets the initial local transform of the Node.
//
// Parameters:
//   - t: the local TRS
//
// Returns:
//   - NodeBuilderOption: functional option to set the local transform
func WithLocalTransform(t common.Transform) NodeBuilderOption {
	return func(n *node) {
		n.local = t
	}
}

// WithParent attaches the Node under parent at construction. A nil or destroyed parent
// leaves the node detached.
//
// Parameters:
//   - parent: the parent node
//
// Returns:
//   - NodeBuilderOption: functional option to set the parent
func WithParent(parent Node) NodeBuilderOption {
	return func(n *node) {
		if Alive(parent) {
			_ = n.SetParent(parent)
		}
	}
}
