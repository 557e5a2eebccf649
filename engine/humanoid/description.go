package humanoid

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/common"
)

// DefaultHipsJoint is the human joint name that anchors the rig.
const DefaultHipsJoint = "Hips"

// HumanBone maps one human joint to a skeleton bone.
type HumanBone struct {
	// HumanName is the human joint name, e.g. "Hips" or "LeftUpperLeg".
	HumanName string `json:"human_name"`

	// BoneName is the skeleton bone driving the joint.
	BoneName string `json:"bone_name"`
}

// SkeletonBone declares a bone of the rig together with its default local pose.
type SkeletonBone struct {
	// Name is the bone name.
	Name string

	// Pose is the bone's default local pose for rig construction.
	Pose common.Transform
}

// Description is the human rig description applied to a skeleton.
type Description struct {
	// Human is the ordered joint-to-bone mapping.
	Human []HumanBone

	// Skeleton is the ordered list of declared skeleton bones.
	Skeleton []SkeletonBone
}

// Validate reports structural problems in the description: empty names and joints
// mapped more than once.
//
// Returns:
//   - error: nil if the description is usable
func (d *Description) Validate() error {
	if d == nil {
		return errors.New("humanoid: nil description")
	}
	var errs []error
	seen := make(map[string]struct{}, len(d.Human))
	for i, h := range d.Human {
		if h.HumanName == "" || h.BoneName == "" {
			errs = append(errs, fmt.Errorf("humanoid: human entry %d has an empty name", i))
			continue
		}
		if _, dup := seen[h.HumanName]; dup {
			errs = append(errs, fmt.Errorf("humanoid: joint %q mapped more than once", h.HumanName))
		}
		seen[h.HumanName] = struct{}{}
	}
	for i, s := range d.Skeleton {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("humanoid: skeleton entry %d has an empty name", i))
		}
	}
	return errors.Join(errs...)
}

// HipsIndex resolves the index of the skeleton entry driving hipsJoint. It returns -1 if
// the joint is not mapped, the joint maps to different bones, or the bone is not declared
// exactly once among the skeleton entries.
//
// Parameters:
//   - hipsJoint: the human joint name of the hips
//
// Returns:
//   - int: the skeleton entry index, or -1
func (d *Description) HipsIndex(hipsJoint string) int {
	if d == nil {
		return -1
	}
	boneName := ""
	for _, h := range d.Human {
		if h.HumanName != hipsJoint {
			continue
		}
		if boneName != "" && boneName != h.BoneName {
			return -1
		}
		boneName = h.BoneName
	}
	if boneName == "" {
		return -1
	}

	index := -1
	for i, s := range d.Skeleton {
		if s.Name != boneName {
			continue
		}
		if index >= 0 {
			return -1
		}
		index = i
	}
	return index
}
