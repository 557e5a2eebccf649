package loader

import "log/slog"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger sets the structured logger used by the Loader.
//
// Parameters:
//   - logger: the logger to use; nil keeps slog.Default()
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithSkinIndex selects which skin of a file provides the bone list. Defaults to 0.
//
// Parameters:
//   - index: the skin index
//
// Returns:
//   - LoaderBuilderOption: a function that applies the skin option to a loader
func WithSkinIndex(index int) LoaderBuilderOption {
	return func(l *loader) {
		l.skinIndex = index
	}
}

// WithRigSource pre-populates the cache with a rig source.
//
// Parameters:
//   - key: the cache key
//   - src: the rig source to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cache option to a loader
func WithRigSource(key string, src *RigSource) LoaderBuilderOption {
	return func(l *loader) {
		if src != nil {
			src.Name = key
			l.cache[key] = src
		}
	}
}
