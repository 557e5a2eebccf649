package loader

import (
	"encoding/json"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
	"github.com/Carmen-Shannon/oxy-rig/engine/skeleton"
)

// vrmHumanoidExtractorImpl is the implementation of the vrmHumanoidExtractor interface.
type vrmHumanoidExtractorImpl struct {
	parser gltfParser
}

// vrmHumanoidExtractor reads the humanoid mapping of VRM 1.0 ("VRMC_vrm") or VRM 0.x ("VRM")
// files into a human rig description.
type vrmHumanoidExtractor interface {
	// ExtractHumanDescription builds a description over bones. Human bones pointing at nodes
	// that are not part of bones are left out.
	//
	// Parameters:
	//   - bones: the extracted bone list
	//   - nodes: the glTF node index of each bone
	//
	// Returns:
	//   - *humanoid.Description: the description, or nil if the file has no VRM humanoid
	//   - error: error if the extension is malformed
	ExtractHumanDescription(bones []skeleton.BoneDescriptor, nodes []int) (*humanoid.Description, error)
}

var _ vrmHumanoidExtractor = &vrmHumanoidExtractorImpl{}

func newVRMHumanoidExtractor(parser gltfParser) vrmHumanoidExtractor {
	return &vrmHumanoidExtractorImpl{parser: parser}
}

func (e *vrmHumanoidExtractorImpl) ExtractHumanDescription(bones []skeleton.BoneDescriptor, nodes []int) (*humanoid.Description, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	joints, err := vrmHumanJoints(doc)
	if err != nil || joints == nil {
		return nil, err
	}

	boneOfNode := make(map[int]string, len(nodes))
	for i, nodeIdx := range nodes {
		boneOfNode[nodeIdx] = bones[i].Name
	}

	desc := &humanoid.Description{}
	for _, joint := range common.SortedKeys(joints) {
		boneName, ok := boneOfNode[joints[joint]]
		if !ok {
			continue
		}
		desc.Human = append(desc.Human, humanoid.HumanBone{HumanName: vrmJointName(joint), BoneName: boneName})
	}
	for _, b := range bones {
		desc.Skeleton = append(desc.Skeleton, humanoid.SkeletonBone{Name: b.Name, Pose: b.LocalTransform()})
	}
	return desc, nil
}

// vrmHumanJoints maps VRM joint names to node indices, preferring VRM 1.0 data.
func vrmHumanJoints(doc *gltfDocument) (map[string]int, error) {
	if raw, ok := doc.Extensions[vrm1ExtensionName]; ok {
		var ext vrm1Extension
		if err := json.Unmarshal(raw, &ext); err != nil {
			return nil, fmt.Errorf("failed to parse %s extension: %w", vrm1ExtensionName, err)
		}
		joints := make(map[string]int, len(ext.Humanoid.HumanBones))
		for name, b := range ext.Humanoid.HumanBones {
			joints[name] = b.Node
		}
		return joints, nil
	}
	if raw, ok := doc.Extensions[vrm0ExtensionName]; ok {
		var ext vrm0Extension
		if err := json.Unmarshal(raw, &ext); err != nil {
			return nil, fmt.Errorf("failed to parse %s extension: %w", vrm0ExtensionName, err)
		}
		joints := make(map[string]int, len(ext.Humanoid.HumanBones))
		for _, b := range ext.Humanoid.HumanBones {
			if _, dup := joints[b.Bone]; !dup {
				joints[b.Bone] = b.Node
			}
		}
		return joints, nil
	}
	return nil, nil
}

// vrmJointName converts VRM's lowerCamel joint names ("leftUpperLeg") to "LeftUpperLeg".
func vrmJointName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
