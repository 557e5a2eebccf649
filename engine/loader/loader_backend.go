package loader

import "io"

// loaderBackend defines the generic interface for reading rig sources from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load reads the rig source of the file at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *RigSource: the bone list and optional human description
	//   - error: error if loading fails
	Load(path string) (*RigSource, error)

	// LoadReader reads a rig source from a stream.
	//
	// Parameters:
	//   - r: the reader providing the file data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *RigSource: the bone list and optional human description
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*RigSource, error)
}
