package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if !*cfg.Grounding.Enabled || cfg.Grounding.Axis != "y" || cfg.Grounding.Threshold != DefaultGroundingThreshold {
		t.Fatalf("grounding defaults = %+v", cfg.Grounding)
	}
	if cfg.Humanoid.HipsJoint != humanoid.DefaultHipsJoint {
		t.Fatalf("hips joint = %q", cfg.Humanoid.HipsJoint)
	}
	if cfg.Extras.NegativeCacheSize != DefaultNegativeCacheSize || cfg.Extras.DecodeWorkers < 1 {
		t.Fatalf("extras defaults = %+v", cfg.Extras)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseOverridesAndKeepsExplicitFalse(t *testing.T) {
	cfg, err := Parse([]byte(`
grounding:
  enabled: false
  axis: Z
  plane: 0.25
humanoid:
  hips_joint: Pelvis
extras:
  decode_workers: 3
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g := cfg.GroundingSettings()
	if g.Enabled || g.Axis != humanoid.AxisZ || g.Plane != 0.25 {
		t.Fatalf("grounding = %+v", g)
	}
	if cfg.Humanoid.HipsJoint != "Pelvis" || cfg.Extras.DecodeWorkers != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Extras.HumanDescriptionType != DefaultHumanDescriptionType {
		t.Fatalf("human description type = %q", cfg.Extras.HumanDescriptionType)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"axis":      "grounding:\n  axis: w\n",
		"threshold": "grounding:\n  threshold: -1\n",
		"cache":     "extras:\n  negative_cache_size: -5\n",
		"yaml":      "grounding: [",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.yaml")
	if err := os.WriteFile(path, []byte("grounding:\n  threshold: 0.01\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grounding.Threshold != 0.01 {
		t.Fatalf("threshold = %v", cfg.Grounding.Threshold)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
