package extras

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/avatar"
	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnsupportedPayload marks component payloads whose kind has no registered factory.
var ErrUnsupportedPayload = errors.New("extras: unsupported payload kind")

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

const humanDescriptionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["human", "skeleton"],
  "properties": {
    "human": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["human_name", "bone_name"],
        "properties": {
          "human_name": {"type": "string", "minLength": 1},
          "bone_name": {"type": "string", "minLength": 1}
        }
      }
    },
    "skeleton": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "translation": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3},
          "rotation": {"type": "array", "items": {"type": "number"}, "minItems": 4, "maxItems": 4},
          "scale": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3}
        }
      }
    }
  }
}`

var humanDescriptionValidator = jsonschema.MustCompileString("human_description.schema.json", humanDescriptionSchema)

// humanDescriptionDoc is the JSON form of a human description. Rotations are x, y, z, w.
type humanDescriptionDoc struct {
	Human    []humanoid.HumanBone `json:"human"`
	Skeleton []skeletonBoneDoc    `json:"skeleton"`
}

type skeletonBoneDoc struct {
	Name        string      `json:"name"`
	Translation *[3]float32 `json:"translation,omitempty"`
	Rotation    *[4]float32 `json:"rotation,omitempty"`
	Scale       *[3]float32 `json:"scale,omitempty"`
}

// Envelope is the msgpack wrapper of a component payload.
type Envelope struct {
	Kind string `msgpack:"kind"`
	Name string `msgpack:"name"`
	Slot string `msgpack:"slot"`
	Bone string `msgpack:"bone"`
	Data []byte `msgpack:"data"`
}

// ComponentCreator is the capability a decoded component payload exposes: it instantiates
// the component and owns the artifact decoding produced.
type ComponentCreator interface {
	// CreateComponent instantiates the component.
	//
	// Returns:
	//   - avatar.Component: the component, ready to attach
	//   - error: error if the payload cannot produce a component
	CreateComponent() (avatar.Component, error)

	// Dispose releases the decoding artifact.
	Dispose()
}

// CreatorFactory builds the creator for one envelope kind.
type CreatorFactory func(env Envelope) (ComponentCreator, error)

// DecodedKind tags the variant held by Decoded.
type DecodedKind int

const (
	// DecodedCreator means the payload produced a ComponentCreator.
	DecodedCreator DecodedKind = iota

	// DecodedUnsupported means the payload was well formed but has no creator.
	DecodedUnsupported
)

// Decoded is the result of decoding a component payload.
type Decoded struct {
	Kind DecodedKind

	// Creator is set for DecodedCreator.
	Creator ComponentCreator

	// Reason describes why the payload is unsupported.
	Reason string
}

type decoder struct {
	factories map[string]CreatorFactory

	zstdOnce sync.Once
	zstd     *zstd.Decoder
	zstdErr  error
}

// PayloadDecoder turns extras payloads into human descriptions and component creators.
// Safe for concurrent use once constructed.
type PayloadDecoder interface {
	// DecodeHumanDescription decodes and validates a JSON human description.
	//
	// Parameters:
	//   - payload: the payload, optionally zstd-compressed
	//
	// Returns:
	//   - *humanoid.Description: the description
	//   - error: error if the payload is malformed or fails validation
	DecodeHumanDescription(payload []byte) (*humanoid.Description, error)

	// DecodeComponent decodes a msgpack component envelope and resolves its creator.
	// Unknown kinds decode to the DecodedUnsupported variant rather than an error.
	//
	// Parameters:
	//   - payload: the payload, optionally zstd-compressed
	//
	// Returns:
	//   - Decoded: the decoded variant
	//   - error: error if the payload is malformed or the factory fails
	DecodeComponent(payload []byte) (Decoded, error)

	// Close releases the decompressor.
	Close()
}

var _ PayloadDecoder = &decoder{}

// NewDecoder creates a PayloadDecoder. The "node" kind is registered by default.
//
// Parameters:
//   - options: functional options to configure the decoder
//
// Returns:
//   - PayloadDecoder: the decoder
func NewDecoder(options ...DecoderBuilderOption) PayloadDecoder {
	d := &decoder{
		factories: map[string]CreatorFactory{NodeKind: NodeCreatorFactory},
	}
	for _, option := range options {
		option(d)
	}
	return d
}

func (d *decoder) DecodeHumanDescription(payload []byte) (*humanoid.Description, error) {
	raw, err := d.decompress(payload)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("extras: human description is not JSON: %w", err)
	}
	if err := humanDescriptionValidator.Validate(generic); err != nil {
		return nil, fmt.Errorf("extras: human description failed validation: %w", err)
	}

	var doc humanDescriptionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("extras: failed to decode human description: %w", err)
	}

	desc := &humanoid.Description{Human: doc.Human, Skeleton: make([]humanoid.SkeletonBone, 0, len(doc.Skeleton))}
	for _, s := range doc.Skeleton {
		desc.Skeleton = append(desc.Skeleton, humanoid.SkeletonBone{Name: s.Name, Pose: s.transform()})
	}
	return desc, nil
}

func (d *decoder) DecodeComponent(payload []byte) (Decoded, error) {
	raw, err := d.decompress(payload)
	if err != nil {
		return Decoded{}, err
	}

	var env Envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return Decoded{}, fmt.Errorf("extras: failed to decode component envelope: %w", err)
	}
	if env.Kind == "" || env.Slot == "" {
		return Decoded{}, fmt.Errorf("extras: component envelope needs kind and slot")
	}

	factory, ok := d.factories[env.Kind]
	if !ok {
		return Decoded{Kind: DecodedUnsupported, Reason: fmt.Sprintf("%s: %q", ErrUnsupportedPayload, env.Kind)}, nil
	}
	creator, err := factory(env)
	if err != nil {
		return Decoded{}, fmt.Errorf("extras: %s factory: %w", env.Kind, err)
	}
	return Decoded{Kind: DecodedCreator, Creator: creator}, nil
}

func (d *decoder) Close() {
	if d.zstd != nil {
		d.zstd.Close()
	}
}

// decompress returns payload unchanged unless it starts with a zstd frame header.
func (d *decoder) decompress(payload []byte) ([]byte, error) {
	if !bytes.HasPrefix(payload, zstdMagic) {
		return payload, nil
	}
	d.zstdOnce.Do(func() {
		d.zstd, d.zstdErr = zstd.NewReader(nil)
	})
	if d.zstdErr != nil {
		return nil, fmt.Errorf("extras: zstd unavailable: %w", d.zstdErr)
	}
	out, err := d.zstd.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("extras: failed to decompress payload: %w", err)
	}
	return out, nil
}

func (s skeletonBoneDoc) transform() common.Transform {
	t := common.IdentityTransform()
	if s.Translation != nil {
		t.Translation = mgl32.Vec3(*s.Translation)
	}
	if s.Rotation != nil {
		r := *s.Rotation
		t.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	if s.Scale != nil {
		t.Scale = mgl32.Vec3(*s.Scale)
	}
	return t
}
