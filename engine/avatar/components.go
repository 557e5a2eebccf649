package avatar

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
)

// Component is a sub-component attached to the avatar, e.g. an accessory or a behavior
// anchor. Each occupies one slot and hangs beneath a bone or the root anchor.
type Component interface {
	// Name returns the component's name.
	Name() string

	// Slot returns the slot the component occupies. At most one component per slot.
	Slot() string

	// Bone returns the bone the component hangs beneath, or "" for the root anchor.
	Bone() string

	// Attach places the component beneath parent. Returning an error rejects the attachment.
	//
	// Parameters:
	//   - parent: the node to attach beneath
	//
	// Returns:
	//   - error: non-nil if the component refuses the attachment
	Attach(parent scenegraph.Node) error

	// Detach removes the component from the avatar and releases what Attach created.
	Detach()
}

func (a *avatar) AttachComponent(c Component) error {
	if a.disposed {
		a.logger.Warn("avatar: ignoring mutation after dispose", "op", "AttachComponent")
		return ErrDisposed
	}
	if c == nil {
		return errors.New("avatar: nil component")
	}
	slot := c.Slot()
	if existing, ok := a.components[slot]; ok {
		return fmt.Errorf("%w: slot %q holds %q", ErrSlotOccupied, slot, existing.Name())
	}

	parent := a.root
	if bone := c.Bone(); bone != "" {
		b, ok := a.skel.Bone(bone)
		if !ok || !scenegraph.Alive(b.Node()) {
			a.logger.Warn("avatar: component references missing bone", "component", c.Name(), "bone", bone)
			return fmt.Errorf("%w: %q", ErrBoneNotFound, bone)
		}
		parent = b.Node()
	}

	if err := c.Attach(parent); err != nil {
		return fmt.Errorf("avatar: attach %q: %w", c.Name(), err)
	}
	a.components[slot] = c
	a.slotOrder = append(a.slotOrder, slot)
	a.NotifyRebuild()
	return nil
}

func (a *avatar) DetachComponent(slot string) error {
	if a.disposed {
		a.logger.Warn("avatar: ignoring mutation after dispose", "op", "DetachComponent")
		return ErrDisposed
	}
	c, ok := a.components[slot]
	if !ok {
		return fmt.Errorf("%w: %q", ErrComponentNotAttached, slot)
	}
	c.Detach()
	a.removeComponent(slot)
	a.NotifyRebuild()
	return nil
}

func (a *avatar) Component(slot string) (Component, bool) {
	c, ok := a.components[slot]
	return c, ok
}

func (a *avatar) Components() []Component {
	out := make([]Component, 0, len(a.slotOrder))
	for _, slot := range a.slotOrder {
		out = append(out, a.components[slot])
	}
	return out
}

func (a *avatar) removeComponent(slot string) {
	delete(a.components, slot)
	if i := slices.Index(a.slotOrder, slot); i >= 0 {
		a.slotOrder = slices.Delete(a.slotOrder, i, i+1)
	}
}
