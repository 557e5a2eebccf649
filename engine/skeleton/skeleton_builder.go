package skeleton

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rig/engine/scenegraph"
)

// SkeletonBuilderOption is a functional option for configuring a Skeleton via NewSkeleton.
type SkeletonBuilderOption func(*skeleton)

// WithLogger sets the structured logger used for reconciliation warnings.
//
// Parameters:
//   - logger: the logger to use; nil keeps slog.Default()
//
// Returns:
//   - SkeletonBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SkeletonBuilderOption {
	return func(s *skeleton) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNodeFactory overrides how bone nodes are created. The factory must return a fresh,
// detached node on every call.
//
// Parameters:
//   - factory: function creating a node for the named bone
//
// Returns:
//   - SkeletonBuilderOption: option function to apply
func WithNodeFactory(factory func(name string) scenegraph.Node) SkeletonBuilderOption {
	return func(s *skeleton) {
		if factory != nil {
			s.nodeFactory = factory
		}
	}
}

// WithAnchorBindPose makes bind poses include the root anchor's current world pose.
// By default bind poses are relative to the anchor (the anchor contributes identity).
//
// Parameters:
//   - enabled: true to compose bind poses with the anchor's world pose
//
// Returns:
//   - SkeletonBuilderOption: option function to apply
func WithAnchorBindPose(enabled bool) SkeletonBuilderOption {
	return func(s *skeleton) {
		s.anchorBindPose = enabled
	}
}

// WithHumanResolver installs a human mapping before the first reconciliation.
//
// Parameters:
//   - resolver: the human mapping
//
// Returns:
//   - SkeletonBuilderOption: option function to apply
func WithHumanResolver(resolver HumanResolver) SkeletonBuilderOption {
	return func(s *skeleton) {
		s.resolver = resolver
	}
}
