package extras

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/engine/avatar"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Item is one externally supplied extra payload.
type Item struct {
	// Type selects how the payload is interpreted. One configured type marks the human
	// description; every other type is an attachable component.
	Type string

	// Hash identifies the payload's content. Empty hashes are filled with HashPayload.
	Hash string

	// Payload is the encoded payload, optionally zstd-compressed.
	Payload []byte
}

// HashPayload returns the content hash used for items supplied without one.
//
// Parameters:
//   - payload: the payload bytes
//
// Returns:
//   - string: 16 hex digits of the payload's xxhash64
func HashPayload(payload []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}

// AttachedExtra is a component instantiated from an extras payload and attached to the target.
// It owns both the component and the creator artifact that produced it.
type AttachedExtra struct {
	// ID uniquely identifies this attachment.
	ID uuid.UUID

	// Hash is the content hash of the payload that produced the component.
	Hash string

	// Type is the item type of the payload.
	Type string

	// Component is the attached component.
	Component avatar.Component

	creator ComponentCreator
}
