package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser
}

// gltfSkeletonExtractor converts a glTF skin (or the whole node tree of an unskinned file)
// into an ordered bone list with parents listed before their children.
type gltfSkeletonExtractor interface {
	// ExtractBones extracts the bone list of a skin.
	// Files without skins use every node as a bone.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - []skeleton.BoneDescriptor: the bones in topological order
	//   - []int: the glTF node index of each bone
	//   - error: error if extraction fails
	ExtractBones(skinIndex int) ([]skeleton.BoneDescriptor, []int, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{parser: parser}
}

func (e *gltfSkeletonExtractorImpl) ExtractBones(skinIndex int) ([]skeleton.BoneDescriptor, []int, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, fmt.Errorf("no document loaded")
	}

	var joints []int
	switch {
	case len(doc.Skins) == 0:
		joints = make([]int, len(doc.Nodes))
		for i := range joints {
			joints[i] = i
		}
	case skinIndex < 0 || skinIndex >= len(doc.Skins):
		return nil, nil, fmt.Errorf("skin index %d out of range", skinIndex)
	default:
		joints = doc.Skins[skinIndex].Joints
	}

	parentOf := make(map[int]int, len(doc.Nodes))
	for nodeIdx, node := range doc.Nodes {
		for _, child := range node.Children {
			parentOf[child] = nodeIdx
		}
	}
	jointOf := make(map[int]int, len(joints))
	for i, nodeIdx := range joints {
		if nodeIdx < 0 || nodeIdx >= len(doc.Nodes) {
			return nil, nil, fmt.Errorf("joint %d: invalid node index %d", i, nodeIdx)
		}
		jointOf[nodeIdx] = i
	}

	// First pass: bones in joint order, parents as joint indices
	bones := make([]skeleton.BoneDescriptor, len(joints))
	for i, nodeIdx := range joints {
		node := &doc.Nodes[nodeIdx]
		t := gltfExtractNodeTransform(node)
		bones[i] = skeleton.BoneDescriptor{
			Name:        common.Coalesce(node.Name, fmt.Sprintf("bone_%d", nodeIdx)),
			Parent:      skeleton.ParentNone,
			Translation: t.Translation,
			Rotation:    t.Rotation,
			Scale:       t.Scale,
		}
		parentNode, hasParent := parentOf[nodeIdx]
		if !hasParent {
			continue
		}
		if parentJoint, ok := jointOf[parentNode]; ok {
			bones[i].Parent = parentJoint
		} else {
			bones[i].Parent = skeleton.ParentExternal
		}
	}

	// Second pass: parents before children
	order := gltfTopologicalOrder(bones)
	oldToNew := make(map[int]int, len(order))
	for newIdx, oldIdx := range order {
		oldToNew[oldIdx] = newIdx
	}
	sorted := make([]skeleton.BoneDescriptor, len(bones))
	nodes := make([]int, len(bones))
	for newIdx, oldIdx := range order {
		b := bones[oldIdx]
		if b.Parent >= 0 {
			b.Parent = oldToNew[b.Parent]
		}
		sorted[newIdx] = b
		nodes[newIdx] = joints[oldIdx]
	}
	return sorted, nodes, nil
}

// --- Helper Functions ---

// gltfExtractNodeTransform extracts the TRS transform of a glTF node.
func gltfExtractNodeTransform(node *gltfNode) common.Transform {
	if node.Matrix != nil {
		return common.DecomposeMatrix(mgl32.Mat4(*node.Matrix))
	}

	transform := common.IdentityTransform()
	if node.Translation != nil {
		transform.Translation = mgl32.Vec3(*node.Translation)
	}
	if node.Rotation != nil {
		r := *node.Rotation
		transform.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	if node.Scale != nil {
		transform.Scale = mgl32.Vec3(*node.Scale)
	}
	return transform
}

// gltfTopologicalOrder returns bone indices ordered so every parent precedes its children.
// Roots keep their relative order; bones unreachable from a root (cycles) are appended.
func gltfTopologicalOrder(bones []skeleton.BoneDescriptor) []int {
	children := make(map[int][]int)
	var queue []int
	for i, b := range bones {
		if b.Parent >= 0 && b.Parent < len(bones) && b.Parent != i {
			children[b.Parent] = append(children[b.Parent], i)
		} else {
			queue = append(queue, i)
		}
	}

	sorted := make([]int, 0, len(bones))
	visited := make([]bool, len(bones))
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if visited[idx] {
			continue
		}
		visited[idx] = true
		sorted = append(sorted, idx)
		queue = append(queue, children[idx]...)
	}

	for i := range bones {
		if !visited[i] {
			sorted = append(sorted, i)
		}
	}
	return sorted
}
