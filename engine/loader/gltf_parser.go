package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Common errors returned by the parser
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	document *gltfDocument
}

// gltfParser defines the interface for loading and parsing the JSON part of glTF/GLB files.
// Binary buffers are not loaded; skeleton and humanoid data live entirely in the JSON.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file from the given path.
	// Automatically detects .gltf (JSON) vs .glb (binary) format.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if parsing fails
	Parse(path string) error

	// ParseReader parses a glTF document from a reader.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed glTF document, or nil before a successful parse.
	Document() *gltfDocument
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".vrm":
		return p.parseGLB(data)
	}
	if looksLikeGLB(data) {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func (p *gltfParserImpl) parseGLTF(data []byte) error {
	doc := &gltfDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return fmt.Errorf("%w, got %q", errInvalidGLTFVersion, doc.Asset.Version)
	}
	p.document = doc
	return nil
}

// parseGLB parses the JSON chunk of a GLB container. The BIN chunk holds mesh and animation
// buffers only, so it is skipped.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	var header gltfGLBHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	switch {
	case header.Magic != gltfGLBMagic:
		return errInvalidGLBMagic
	case header.Version != gltfGLBVersion:
		return errInvalidGLBVersion
	case header.Length < glbHeaderSize || int(header.Length) > len(data):
		return fmt.Errorf("GLB length mismatch: header declares %d bytes, have %d", header.Length, len(data))
	}

	body := data[glbHeaderSize:header.Length]
	for len(body) >= glbChunkHeaderSize {
		chunk := gltfGLBChunkHeader{
			ChunkLength: binary.LittleEndian.Uint32(body[0:4]),
			ChunkType:   binary.LittleEndian.Uint32(body[4:8]),
		}
		body = body[glbChunkHeaderSize:]
		if int(chunk.ChunkLength) > len(body) {
			return fmt.Errorf("GLB chunk 0x%08x overruns the container", chunk.ChunkType)
		}
		if chunk.ChunkType == gltfGLBChunkJSON {
			return p.parseGLTF(bytes.TrimRight(body[:chunk.ChunkLength], " \x00"))
		}
		body = body[chunk.ChunkLength:]
	}
	return errMissingJSONChunk
}

func looksLikeGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == gltfGLBMagic
}
