package extras

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDecodeHumanDescriptionValidation(t *testing.T) {
	d := NewDecoder()
	defer d.Close()

	cases := map[string]string{
		"not json":        `{"human":`,
		"missing section": `{"human": []}`,
		"empty bone name": `{"human": [{"human_name": "Hips", "bone_name": ""}], "skeleton": []}`,
		"short vector":    `{"human": [], "skeleton": [{"name": "hips", "translation": [0, 1]}]}`,
	}
	for name, doc := range cases {
		if _, err := d.DecodeHumanDescription([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	desc, err := d.DecodeHumanDescription([]byte(humanJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(desc.Human) != 2 || desc.Human[0].BoneName != "hips" {
		t.Fatalf("human = %+v", desc.Human)
	}
	if desc.HipsIndex("Hips") != 0 {
		t.Fatal("hips not resolvable from decoded description")
	}
	if desc.Skeleton[1].Pose.Scale != (mgl32.Vec3{1, 1, 1}) {
		t.Fatal("omitted scale must default to one")
	}
}

func TestDecodeComponentVariants(t *testing.T) {
	d := NewDecoder()
	defer d.Close()

	unknown, err := d.DecodeComponent(envelope(t, "mystery", "tail", ""))
	if err != nil {
		t.Fatalf("unknown kind: %v", err)
	}
	if unknown.Kind != DecodedUnsupported || !strings.Contains(unknown.Reason, "mystery") {
		t.Fatalf("unknown kind decoded to %+v", unknown)
	}

	body, err := msgpack.Marshal(NodeData{Translation: &[3]float32{0, 0.2, 0}})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := msgpack.Marshal(Envelope{Kind: NodeKind, Slot: "socket", Bone: "hips", Data: body})
	if err != nil {
		t.Fatal(err)
	}
	node, err := d.DecodeComponent(payload)
	if err != nil || node.Kind != DecodedCreator {
		t.Fatalf("node payload = %+v, %v", node, err)
	}
	c, err := node.Creator.CreateComponent()
	if err != nil {
		t.Fatal(err)
	}
	nc := c.(*NodeComponent)
	if nc.Name() != "socket" || nc.Bone() != "hips" || !nc.local.Translation.ApproxEqual(mgl32.Vec3{0, 0.2, 0}) {
		t.Fatalf("component = %+v", nc)
	}

	if _, err := d.DecodeComponent(envelope(t, NodeKind, "", "")); err == nil {
		t.Fatal("envelope without slot must fail")
	}
	if _, err := d.DecodeComponent(append([]byte{0x28, 0xb5, 0x2f, 0xfd}, []byte("broken")...)); err == nil {
		t.Fatal("corrupt zstd frame must fail")
	}
}

func TestCreatorFactoryErrors(t *testing.T) {
	boom := errors.New("boom")
	d := NewDecoder(WithCreatorFactory("broken", func(Envelope) (ComponentCreator, error) { return nil, boom }))
	if _, err := d.DecodeComponent(envelope(t, "broken", "slot", "")); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped factory error", err)
	}

	removed := NewDecoder(WithCreatorFactory(NodeKind, nil))
	got, err := removed.DecodeComponent(envelope(t, NodeKind, "slot", ""))
	if err != nil || got.Kind != DecodedUnsupported {
		t.Fatal("removing a factory must make its kind unsupported")
	}
}
