// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform represents a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation mgl32.Vec3

	// Rotation is the orientation as a quaternion.
	Rotation mgl32.Quat

	// Scale is the scale factor along each axis.
	Scale mgl32.Vec3
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes the transform into a column-major T * R * S matrix.
//
// Returns:
//   - mgl32.Mat4: the local pose matrix
func (t Transform) Matrix() mgl32.Mat4 {
	return ComposeMatrix(t.Translation, t.Rotation, t.Scale)
}

// Add returns a transform offset by other: translations are summed, rotations are
// composed (t.Rotation * other.Rotation) and scales are multiplied per axis.
//
// Parameters:
//   - other: the offset to apply
//
// Returns:
//   - Transform: the offset transform
func (t Transform) Add(other Transform) Transform {
	return Transform{
		Translation: t.Translation.Add(other.Translation),
		Rotation:    t.Rotation.Mul(other.Rotation).Normalize(),
		Scale: mgl32.Vec3{
			t.Scale[0] * other.Scale[0],
			t.Scale[1] * other.Scale[1],
			t.Scale[2] * other.Scale[2],
		},
	}
}

// ApproxEqual reports whether both transforms produce the same pose within PoseEpsilon.
func (t Transform) ApproxEqual(other Transform) bool {
	return PosesEqual(t.Matrix(), other.Matrix())
}

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload by the renderer.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DecalSampler returns the sampler configuration used for decal-style textures such as tattoos.
// Decals clamp to the edge so they never tile across the surface they are projected onto.
//
// Returns:
//   - SamplerStagingData: the decal sampler configuration
func DecalSampler() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// ImportedTexture represents encoded texture data supplied to the avatar, e.g. a tattoo image.
type ImportedTexture struct {
	// Name is an identifier for this texture.
	Name string

	// Data contains raw encoded image bytes (PNG/JPEG).
	Data []byte

	// SamplerData overrides the default sampler when non-nil.
	SamplerData *SamplerStagingData
}

// Decode decodes the texture to raw RGBA pixel data ready for upload.
// Supports PNG and JPEG formats.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - TextureStagingData: raw RGBA pixel data (4 bytes per pixel, row-major order) and its dimensions
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() (TextureStagingData, error) {
	if t == nil {
		return TextureStagingData{}, fmt.Errorf("texture is nil")
	}
	if len(t.Data) == 0 {
		return TextureStagingData{}, fmt.Errorf("texture %q has no data", t.Name)
	}

	img, _, err := image.Decode(bytes.NewReader(t.Data))
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode texture %q: %w", t.Name, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}
