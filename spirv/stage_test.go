package spirv

import (
	"testing"
)

func TestStageOrder(t *testing.T) {
	if !(Vertex < Fragment && Fragment < Geometry) {
		t.Error("stages are not ordered vertex < fragment < geometry")
	}
}

func TestParseStage(t *testing.T) {
	for tag, want := range map[string]Stage{"vert": Vertex, "FRAG": Fragment, ".geom": Geometry} {
		got, ok := ParseStage(tag)
		if !ok || got != want {
			t.Errorf("ParseStage(%q) = %v, %v", tag, got, ok)
		}
	}
	if _, ok := ParseStage("comp"); ok {
		t.Error("comp should not parse as a stage")
	}
}

func TestStageFromExecutionModel(t *testing.T) {
	if s, err := StageFromExecutionModel(4); err != nil || s != Fragment {
		t.Errorf("fragment model = %v, %v", s, err)
	}
	if _, err := StageFromExecutionModel(5); err == nil {
		t.Error("compute model should be rejected")
	}
}

func TestStageFlags(t *testing.T) {
	f := VertexBit | FragmentBit
	if f.String() != "vertex|fragment" {
		t.Errorf("String = %q", f.String())
	}
	if !f.Has(FragmentBit) || f.Has(GeometryBit) {
		t.Errorf("Has mismatch for %v", f)
	}
	if Geometry.Flags() != 0x08 {
		t.Errorf("geometry flags = %#x", Geometry.Flags())
	}
}
