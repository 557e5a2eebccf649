package loader

import (
	"fmt"
	"io"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	skinIndex int
}

// gltfLoaderBackend is a loaderBackend implementation for glTF, GLB and VRM files.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a glTF loader backend reading the given skin.
func newGLTFLoaderBackend(skinIndex int) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{skinIndex: skinIndex}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*RigSource, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, err
	}
	return b.extract(parser)
}

func (b *gltfLoaderBackendImpl) LoadReader(r io.Reader, isGLB bool) (*RigSource, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, err
	}
	return b.extract(parser)
}

func (b *gltfLoaderBackendImpl) extract(parser gltfParser) (*RigSource, error) {
	bones, nodes, err := newGLTFSkeletonExtractor(parser).ExtractBones(b.skinIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to extract skeleton: %w", err)
	}
	human, err := newVRMHumanoidExtractor(parser).ExtractHumanDescription(bones, nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to extract humanoid: %w", err)
	}
	return &RigSource{Bones: bones, Human: human}, nil
}
