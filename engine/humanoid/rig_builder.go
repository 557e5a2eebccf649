package humanoid

import "log/slog"

// RigBuilderOption is a functional option for configuring a Rig via NewRig.
type RigBuilderOption func(*rig)

// WithLogger sets the structured logger for the rig.
//
// Parameters:
//   - logger: the logger to use; nil keeps slog.Default()
//
// Returns:
//   - RigBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) RigBuilderOption {
	return func(r *rig) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithGrounding sets the grounding axis, reference plane and whether grounding is applied.
//
// Parameters:
//   - settings: the grounding settings
//
// Returns:
//   - RigBuilderOption: option function to apply
func WithGrounding(settings GroundingSettings) RigBuilderOption {
	return func(r *rig) {
		r.grounding = settings
	}
}

// WithHipsJoint overrides the human joint name used to locate the hips.
//
// Parameters:
//   - joint: the hips joint name; empty keeps DefaultHipsJoint
//
// Returns:
//   - RigBuilderOption: option function to apply
func WithHipsJoint(joint string) RigBuilderOption {
	return func(r *rig) {
		if joint != "" {
			r.hipsJoint = joint
		}
	}
}
