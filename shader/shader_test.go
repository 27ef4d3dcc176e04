package shader

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/celer/vkbind/internal/spvasm"
	"github.com/celer/vkbind/spirv"
)

const cameraWGSL = `
struct Camera {
    view_proj: mat4x4<f32>,
    tint: vec4<f32>,
}

@group(0) @binding(0) var<uniform> camera: Camera;

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return camera.view_proj * vec4<f32>(f32(idx), 0.0, 0.0, 1.0) + camera.tint;
}
`

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStageTag(t *testing.T) {
	cases := map[string]struct {
		stage spirv.Stage
		ok    bool
	}{
		"lit.vert":         {spirv.Vertex, true},
		"lit.frag.spv":     {spirv.Fragment, true},
		"dir/grass.geom":   {spirv.Geometry, true},
		"shaders/lit.wgsl": {0, false},
		"vert":             {0, false},
		"a.frag.extra.spv": {0, false},
		"mesh.VERT.spv":    {spirv.Vertex, true},
	}
	for name, want := range cases {
		got, ok := StageTag(name)
		if ok != want.ok || (ok && got != want.stage) {
			t.Errorf("StageTag(%q) = %v, %v; want %v, %v", name, got, ok, want.stage, want.ok)
		}
	}
}

func TestLoadSPIRVPicksEntryPoint(t *testing.T) {
	b := spvasm.Globals(spvasm.ExecutionVertex)
	b.EntryPoint(spvasm.ExecutionFragment, "fs")
	data := b.Bytes()

	cs, err := LoadSPIRV("both.spv", data, "")
	if err != nil {
		t.Fatal(err)
	}
	if cs.Stage != spirv.Vertex || cs.EntryPoint != "main" {
		t.Errorf("untagged = %v %q, want first entry point", cs.Stage, cs.EntryPoint)
	}

	cs, err = LoadSPIRV("both.frag.spv", data, "")
	if err != nil {
		t.Fatal(err)
	}
	if cs.Stage != spirv.Fragment || cs.EntryPoint != "fs" {
		t.Errorf("tagged = %v %q, want fragment fs", cs.Stage, cs.EntryPoint)
	}

	cs, err = LoadSPIRV("both.spv", data, "fs")
	if err != nil {
		t.Fatal(err)
	}
	if cs.Stage != spirv.Fragment {
		t.Errorf("named = %v, want fragment", cs.Stage)
	}
	if len(cs.Words) != len(data)/4 || cs.Source != "both.spv" {
		t.Errorf("words = %d source = %q", len(cs.Words), cs.Source)
	}
}

func TestLoadSPIRVFailures(t *testing.T) {
	vs := spvasm.Globals(spvasm.ExecutionVertex).Bytes()

	_, err := LoadSPIRV("globals.frag.spv", vs, "main")
	var ce *CompilationError
	if !errors.As(err, &ce) {
		t.Errorf("stage tag mismatch: got %v, want CompilationError", err)
	}

	_, err = LoadSPIRV("globals.spv", vs, "missing")
	if !errors.As(err, &ce) {
		t.Errorf("missing entry: got %v, want CompilationError", err)
	}

	_, err = LoadSPIRV("short.spv", []byte{1, 2, 3}, "")
	if !errors.As(err, &ce) {
		t.Errorf("short input: got %v, want CompilationError", err)
	}

	comp := spvasm.Globals(spvasm.ExecutionGLCompute).Bytes()
	_, err = LoadSPIRV("compute.spv", comp, "")
	var re *spirv.ReflectionError
	if !errors.As(err, &re) {
		t.Errorf("compute: got %v, want ReflectionError", err)
	}
}

func TestCompileReadsFiles(t *testing.T) {
	dir := t.TempDir()
	vs := writeTemp(t, dir, "globals.vert.spv", spvasm.Globals(spvasm.ExecutionVertex).Bytes())
	fs := writeTemp(t, dir, "globals.frag.spv", spvasm.Globals(spvasm.ExecutionFragment).Bytes())

	chain, err := CompileChain([]Source{{Path: vs}, {Path: fs}})
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 2 || chain[0].Stage != spirv.Vertex || chain[1].Stage != spirv.Fragment {
		t.Fatalf("chain = %+v", chain)
	}
	if string(chain[1].Bytes()) != string(spvasm.Globals(spvasm.ExecutionFragment).Bytes()) {
		t.Error("Bytes does not round trip the loaded binary")
	}

	_, err = CompileChain([]Source{{Path: vs}, {Path: filepath.Join(dir, "missing.frag.spv")}})
	var ce *CompilationError
	if !errors.As(err, &ce) {
		t.Errorf("missing file: got %v, want CompilationError", err)
	}
}

func TestCompileSourceWGSL(t *testing.T) {
	cs, err := CompileSource("camera.wgsl", cameraWGSL, "vs_main")
	if err != nil {
		t.Fatal(err)
	}
	if cs.Stage != spirv.Vertex || cs.EntryPoint != "vs_main" {
		t.Fatalf("stage = %v entry = %q", cs.Stage, cs.EntryPoint)
	}

	r, err := spirv.ReflectEntryPoint(cs.Words, cs.EntryPoint, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Resources) != 1 {
		t.Fatalf("resources = %+v", r.Resources)
	}
	res := r.Resources[0]
	if res.Set != 0 || res.Binding != 0 || res.Type != spirv.UniformBuffer {
		t.Errorf("camera = set %d binding %d %v", res.Set, res.Binding, res.Type)
	}
	if f, ok := res.Fields["view_proj"]; !ok || f.Offset != 0 || f.Size != 64 {
		t.Errorf("view_proj = %+v, %v", f, ok)
	}
	if f, ok := res.Fields["tint"]; !ok || f.Offset != 64 || f.Size != 16 {
		t.Errorf("tint = %+v, %v", f, ok)
	}
}

func TestCompileSourceRejectsBadWGSL(t *testing.T) {
	_, err := CompileSource("broken.wgsl", "fn main( {", "")
	var ce *CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want CompilationError", err)
	}
	if ce.Source != "broken.wgsl" || errors.Cause(err) == err {
		t.Errorf("error = %+v", ce)
	}
}
