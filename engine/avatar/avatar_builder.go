package avatar

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rig/engine/config"
	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
	"github.com/Carmen-Shannon/oxy-rig/engine/metrics"
	"github.com/Carmen-Shannon/oxy-rig/engine/skeleton"
)

// AvatarBuilderOption is a functional option for configuring an Avatar via NewAvatar.
type AvatarBuilderOption func(*avatar)

// WithLogger sets the structured logger shared by the avatar, its skeleton and its rig.
//
// Parameters:
//   - logger: the logger to use; nil keeps slog.Default()
//
// Returns:
//   - AvatarBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) AvatarBuilderOption {
	return func(a *avatar) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithConfig supplies grounding and humanoid settings. Defaults to config.Default().
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - AvatarBuilderOption: option function to apply
func WithConfig(cfg *config.Config) AvatarBuilderOption {
	return func(a *avatar) {
		a.cfg = cfg
	}
}

// WithMetrics records notifications, reconciliations and rig builds on c.
//
// Parameters:
//   - c: the collectors; nil disables metrics
//
// Returns:
//   - AvatarBuilderOption: option function to apply
func WithMetrics(c *metrics.Collectors) AvatarBuilderOption {
	return func(a *avatar) {
		a.metrics = c
	}
}

// WithAnimator sets the animation collaborator that receives every rebuilt rig asset.
//
// Parameters:
//   - animator: the animator
//
// Returns:
//   - AvatarBuilderOption: option function to apply
func WithAnimator(animator Animator) AvatarBuilderOption {
	return func(a *avatar) {
		a.animator = animator
	}
}

// WithGroundingThreshold overrides the configured grounding threshold.
//
// Parameters:
//   - threshold: the distance the grounding offset must move before the rig asset is rebuilt
//
// Returns:
//   - AvatarBuilderOption: option function to apply
func WithGroundingThreshold(threshold float32) AvatarBuilderOption {
	return func(a *avatar) {
		a.threshold = threshold
		a.thresholdOverride = true
	}
}

// WithSkeletonOptions passes extra options to the avatar's skeleton.
func WithSkeletonOptions(options ...skeleton.SkeletonBuilderOption) AvatarBuilderOption {
	return func(a *avatar) {
		a.skeletonOptions = append(a.skeletonOptions, options...)
	}
}

// WithRigOptions passes extra options to the avatar's humanoid rig. They override the
// settings taken from the configuration.
func WithRigOptions(options ...humanoid.RigBuilderOption) AvatarBuilderOption {
	return func(a *avatar) {
		a.rigOptions = append(a.rigOptions, options...)
	}
}
