package animator

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithLogger is an option builder that sets the logger used by the Animator.
//
// Parameters:
//   - logger: the logger to use, ignored if nil
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the logger option to an animator
func WithLogger(logger *slog.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRigAsset is an option builder that applies an initial rig asset during construction.
//
// Parameters:
//   - asset: the rig asset to apply
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the asset to an animator
func WithRigAsset(asset *humanoid.RigAsset) AnimatorBuilderOption {
	return func(a *animator) {
		a.ApplyRigAsset(asset)
	}
}
