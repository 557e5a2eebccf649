package extras

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/avatar"
	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vmihailenco/msgpack/v5"
)

// NodeKind is the envelope kind of NodeComponent payloads.
const NodeKind = "node"

// NodeData is the optional msgpack body of a NodeKind envelope. Rotation is x, y, z, w.
type NodeData struct {
	Translation *[3]float32 `msgpack:"translation,omitempty"`
	Rotation    *[4]float32 `msgpack:"rotation,omitempty"`
	Scale       *[3]float32 `msgpack:"scale,omitempty"`
}

// NodeComponent is a component that owns one scene node placed beneath its bone, e.g. a
// socket other systems hang props from.
type NodeComponent struct {
	name, slot, bone string
	local            common.Transform
	node             scenegraph.Node
}

var _ avatar.Component = &NodeComponent{}

func (c *NodeComponent) Name() string { return c.name }
func (c *NodeComponent) Slot() string { return c.slot }
func (c *NodeComponent) Bone() string { return c.bone }

// Node returns the attached node, or nil while detached.
func (c *NodeComponent) Node() scenegraph.Node {
	return c.node
}

func (c *NodeComponent) Attach(parent scenegraph.Node) error {
	if !scenegraph.Alive(parent) {
		return scenegraph.ErrNodeDestroyed
	}
	if scenegraph.Alive(c.node) {
		return fmt.Errorf("extras: node component %q is already attached", c.name)
	}
	c.node = scenegraph.NewNode(
		scenegraph.WithName(c.name),
		scenegraph.WithLocalTransform(c.local),
		scenegraph.WithParent(parent),
	)
	return nil
}

func (c *NodeComponent) Detach() {
	if scenegraph.Alive(c.node) {
		c.node.Destroy()
	}
	c.node = nil
}

type nodeCreator struct {
	env   Envelope
	local common.Transform
}

// NodeCreatorFactory builds creators for NodeKind envelopes.
//
// Parameters:
//   - env: the decoded envelope
//
// Returns:
//   - ComponentCreator: the creator
//   - error: error if the envelope body is not valid NodeData
func NodeCreatorFactory(env Envelope) (ComponentCreator, error) {
	local := common.IdentityTransform()
	if len(env.Data) > 0 {
		var data NodeData
		if err := msgpack.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("invalid node data: %w", err)
		}
		if data.Translation != nil {
			local.Translation = mgl32.Vec3(*data.Translation)
		}
		if data.Rotation != nil {
			r := *data.Rotation
			local.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		}
		if data.Scale != nil {
			local.Scale = mgl32.Vec3(*data.Scale)
		}
	}
	return &nodeCreator{env: env, local: local}, nil
}

func (n *nodeCreator) CreateComponent() (avatar.Component, error) {
	return &NodeComponent{
		name:  common.Coalesce(n.env.Name, n.env.Slot),
		slot:  n.env.Slot,
		bone:  n.env.Bone,
		local: n.local,
	}, nil
}

func (n *nodeCreator) Dispose() {
	n.env.Data = nil
}
