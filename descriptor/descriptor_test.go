package descriptor

import (
	"bytes"
	"io/ioutil"
	"log"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/celer/vkbind/internal/spvasm"
	"github.com/celer/vkbind/shader"
	"github.com/celer/vkbind/spirv"
)

func TestMain(m *testing.M) {
	SetLogger(log.New(ioutil.Discard, "", 0))
	os.Exit(m.Run())
}

func cameraShader(model spvasm.ExecutionModel) []uint32 {
	b := spvasm.New()
	b.EntryPoint(model, "main")
	blk := b.Block("Camera",
		spvasm.Field{Name: "view", Type: b.Mat4(), Offset: 0, MatrixStride: 16},
		spvasm.Field{Name: "eye", Type: b.Vec4(), Offset: 64},
	)
	b.Uniform("camera", blk, 0, 0)
	return b.Words()
}

func pushShader(model spvasm.ExecutionModel) []uint32 {
	b := spvasm.New()
	b.EntryPoint(model, "main")
	blk := b.Block("Push",
		spvasm.Field{Name: "mvp", Type: b.Mat4(), Offset: 0, MatrixStride: 16},
		spvasm.Field{Name: "tint", Type: b.Vec4(), Offset: 64},
	)
	b.PushConstant("push", blk)
	return b.Words()
}

// samplerShader binds a sampler at (1, 0) next to the Globals block at
// (0, 0).
func samplerShader(model spvasm.ExecutionModel) []uint32 {
	b := spvasm.Globals(model)
	b.Bind(spvasm.StorageUniformConstant, "samp", b.Sampler(), 1, 0)
	return b.Words()
}

func build(t *testing.T, d Driver, align uint64, modules ...[]uint32) (*Pool, PushConstantMap) {
	t.Helper()
	pb := NewPoolBuilder(align)
	for _, m := range modules {
		if err := pb.AddWords(m); err != nil {
			t.Fatal(err)
		}
	}
	p, push, err := pb.Build(d)
	if err != nil {
		t.Fatal(err)
	}
	return p, push
}

type pushRecord struct {
	stages spirv.StageFlags
	offset uint32
	data   []byte
}

type recorder struct {
	pushes []pushRecord
}

func (r *recorder) PushConstants(stages spirv.StageFlags, offset uint32, data []byte) {
	r.pushes = append(r.pushes, pushRecord{stages, offset, append([]byte(nil), data...)})
}

// faultyDriver fails the named operation and counts mappings.
type faultyDriver struct {
	*HostDriver
	fail string
	// buffers is how many buffers succeed before "buffer" starts failing
	buffers int
	maps    int
}

var errInjected = errors.New("injected failure")

func (f *faultyDriver) CreateDescriptorPool(sizes []PoolSize, maxSets uint32) (Handle, error) {
	if f.fail == "pool" {
		return NullHandle, errInjected
	}
	return f.HostDriver.CreateDescriptorPool(sizes, maxSets)
}

func (f *faultyDriver) CreateDescriptorSetLayout(bindings []LayoutBinding) (Handle, error) {
	if f.fail == "layout" {
		return NullHandle, errInjected
	}
	return f.HostDriver.CreateDescriptorSetLayout(bindings)
}

func (f *faultyDriver) AllocateDescriptorSets(pool Handle, layouts []Handle) ([]Handle, error) {
	if f.fail == "sets" {
		return nil, errInjected
	}
	return f.HostDriver.AllocateDescriptorSets(pool, layouts)
}

func (f *faultyDriver) CreateBuffer(size uint64, usage BufferUsage) (Handle, error) {
	if f.fail == "buffer" {
		if f.buffers == 0 {
			return NullHandle, errInjected
		}
		f.buffers--
	}
	return f.HostDriver.CreateBuffer(size, usage)
}

func (f *faultyDriver) MapMemory(buffer Handle, offset, size uint64) ([]byte, error) {
	f.maps++
	if f.fail == "map" {
		return nil, errInjected
	}
	return f.HostDriver.MapMemory(buffer, offset, size)
}

func TestGlobalsBufferLayout(t *testing.T) {
	d := NewHostDriver()
	p, _ := build(t, d, 256, spvasm.Globals(spvasm.ExecutionVertex).Words())
	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	buf, ok := bufs["Globals"]
	if !ok {
		t.Fatalf("buffers = %v", bufs)
	}
	if buf.Size != 260 {
		t.Errorf("size = %d, want 260", buf.Size)
	}
	if r, _ := buf.Region("color"); r != (Region{Offset: 0, Size: 16}) {
		t.Errorf("color = %+v", r)
	}
	if r, _ := buf.Region("intensity"); r != (Region{Offset: 256, Size: 4}) {
		t.Errorf("intensity = %+v", r)
	}
	if !reflect.DeepEqual(buf.Fields(), []string{"color", "intensity"}) {
		t.Errorf("fields = %v", buf.Fields())
	}

	color := bytes.Repeat([]byte{0xaa}, 16)
	intensity := []byte{1, 2, 3, 4}
	if err := buf.Write("color", color); err != nil {
		t.Fatal(err)
	}
	if err := buf.Write("intensity", intensity); err != nil {
		t.Fatal(err)
	}
	got, err := d.Contents(buf.Handle())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got[0:16], color) || !bytes.Equal(got[256:260], intensity) {
		t.Errorf("contents = % x ... % x", got[0:16], got[256:260])
	}
	if !bytes.Equal(got[16:256], make([]byte, 240)) {
		t.Error("padding between fields was written")
	}

	info, err := buf.Info("intensity")
	if err != nil || info != (BufferInfo{Buffer: buf.Handle(), Offset: 256, Range: 4}) {
		t.Errorf("Info = %+v, %v", info, err)
	}
}

func TestAlignmentOfOneKeepsDeclaredOffsets(t *testing.T) {
	d := NewHostDriver()
	p, _ := build(t, d, 1, spvasm.Globals(spvasm.ExecutionVertex).Words())
	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	buf := bufs["Globals"]
	if r, _ := buf.Region("intensity"); r.Offset != 16 || buf.Size != 20 {
		t.Errorf("intensity = %+v, size %d", r, buf.Size)
	}
}

func TestBindingSharedAcrossStages(t *testing.T) {
	d := NewHostDriver()
	p, _ := build(t, d, 256, cameraShader(spvasm.ExecutionVertex), cameraShader(spvasm.ExecutionFragment))

	if p.MaxSets() != 1 || len(p.Sets()) != 1 {
		t.Fatalf("max sets = %d, sets = %d", p.MaxSets(), len(p.Sets()))
	}
	set := p.Sets()[0]
	bindings := set.Bindings()
	if len(bindings) != 1 {
		t.Fatalf("bindings = %d, want 1", len(bindings))
	}
	if bindings[0].Stages != spirv.VertexBit|spirv.FragmentBit {
		t.Errorf("stages = %v, want vertex|fragment", bindings[0].Stages)
	}
	if !reflect.DeepEqual(p.PoolSizes(), []PoolSize{{Type: spirv.UniformBuffer, Count: 1}}) {
		t.Errorf("pool sizes = %+v", p.PoolSizes())
	}

	lb, err := d.LayoutBindings(set.Layout)
	if err != nil {
		t.Fatal(err)
	}
	want := []LayoutBinding{{Binding: 0, Type: spirv.UniformBuffer, Count: 1, Stages: spirv.VertexBit | spirv.FragmentBit}}
	if !reflect.DeepEqual(lb, want) {
		t.Errorf("layout = %+v, want %+v", lb, want)
	}

	_, b, ok := p.Lookup("camera")
	if !ok || b.Binding != 0 {
		t.Errorf("Lookup(camera) = %+v, %v", b, ok)
	}
}

func TestPushConstantWrite(t *testing.T) {
	d := NewHostDriver()
	_, push := build(t, d, 256, pushShader(spvasm.ExecutionVertex))

	blk, ok := push["push"]
	if !ok {
		t.Fatalf("push constants = %v", push.Names())
	}
	if blk.Size != 80 {
		t.Errorf("size = %d, want 80", blk.Size)
	}

	rec := &recorder{}
	tint := bytes.Repeat([]byte{7}, 16)
	if err := blk.Write(rec, "tint", tint); err != nil {
		t.Fatal(err)
	}
	if len(rec.pushes) != 1 {
		t.Fatalf("pushes = %d", len(rec.pushes))
	}
	got := rec.pushes[0]
	if got.offset != 64 || got.stages != spirv.VertexBit || !bytes.Equal(got.data, tint) {
		t.Errorf("push = %+v", got)
	}

	var sm *SizeMismatchError
	if err := blk.Write(rec, "tint", tint[:12]); !errors.As(err, &sm) {
		t.Errorf("short push payload: got %v", err)
	}
	if err := blk.Write(rec, "tint", append(tint, 0, 0, 0, 0)); !errors.As(err, &sm) || sm.Got != 20 || sm.Want != 16 {
		t.Errorf("long push payload: got %v", err)
	}
	var uf *UnknownFieldError
	if err := blk.Write(rec, "color", tint); !errors.As(err, &uf) {
		t.Errorf("unknown field: got %v", err)
	}
	if len(rec.pushes) != 1 {
		t.Errorf("rejected writes were recorded: %d pushes", len(rec.pushes))
	}

	want := []PushConstantRange{{Stages: spirv.VertexBit, Offset: 0, Size: 80}}
	if !reflect.DeepEqual(push.Ranges(), want) {
		t.Errorf("ranges = %+v", push.Ranges())
	}
}

func TestPushConstantStagesAreMerged(t *testing.T) {
	_, push := build(t, NewHostDriver(), 1, pushShader(spvasm.ExecutionVertex), pushShader(spvasm.ExecutionFragment))
	if s := push["push"].Stages; s != spirv.VertexBit|spirv.FragmentBit {
		t.Errorf("stages = %v", s)
	}
	rec := &recorder{}
	if err := push["push"].Write(rec, "mvp", make([]byte, 64)); err != nil {
		t.Fatal(err)
	}
	if rec.pushes[0].stages != spirv.VertexBit|spirv.FragmentBit || rec.pushes[0].offset != 0 {
		t.Errorf("push = %+v", rec.pushes[0])
	}
}

func TestSamplerAndUniformPool(t *testing.T) {
	d := NewHostDriver()
	p, _ := build(t, d, 256, samplerShader(spvasm.ExecutionFragment))

	if p.MaxSets() != 2 {
		t.Errorf("max sets = %d, want 2", p.MaxSets())
	}
	want := []PoolSize{{Type: spirv.UniformBuffer, Count: 1}, {Type: spirv.Sampler, Count: 1}}
	if !reflect.DeepEqual(p.PoolSizes(), want) {
		t.Errorf("pool sizes = %+v, want %+v", p.PoolSizes(), want)
	}
	s, ok := p.Set(1)
	if !ok {
		t.Fatal("set 1 missing")
	}
	if b, ok := s.Lookup("samp"); !ok || b.Type != spirv.Sampler {
		t.Errorf("samp = %+v, %v", b, ok)
	}
	if _, ok := p.Set(2); ok {
		t.Error("set 2 should not exist")
	}
	if len(p.SetLayouts()) != 2 {
		t.Errorf("layouts = %v", p.SetLayouts())
	}

	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(bufs) != 1 {
		t.Errorf("buffers = %d, want only the uniform block", len(bufs))
	}
}

func TestBuildRejectsConflicts(t *testing.T) {
	d := NewHostDriver()
	pb := NewPoolBuilder(256)
	if err := pb.AddWords(spvasm.Globals(spvasm.ExecutionVertex).Words()); err != nil {
		t.Fatal(err)
	}
	if err := pb.AddWords(cameraShader(spvasm.ExecutionFragment)); err != nil {
		t.Fatal(err)
	}
	_, _, err := pb.Build(d)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want ConflictError", err)
	}
	if ce.Set != 0 || ce.Binding != 0 {
		t.Errorf("conflict at (%d,%d)", ce.Set, ce.Binding)
	}
	if d.Live() != 0 {
		t.Errorf("%d objects created for a conflicting build", d.Live())
	}
}

func TestBuildRejectsPushConstantConflicts(t *testing.T) {
	b := spvasm.New()
	b.EntryPoint(spvasm.ExecutionFragment, "main")
	blk := b.Block("Push", spvasm.Field{Name: "tint", Type: b.Vec4(), Offset: 0})
	b.PushConstant("push", blk)

	pb := NewPoolBuilder(1)
	if err := pb.AddWords(pushShader(spvasm.ExecutionVertex)); err != nil {
		t.Fatal(err)
	}
	if err := pb.AddWords(b.Words()); err != nil {
		t.Fatal(err)
	}
	_, _, err := pb.Build(NewHostDriver())
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Name != "push" {
		t.Fatalf("got %v, want push constant ConflictError", err)
	}
}

// scaleShader declares Camera{tint vec4, scale} at (0, 0), or as a push
// constant block, with scale at the given declared offset and type.
func scaleShader(model spvasm.ExecutionModel, push bool, scaleOffset uint32, scaleInt bool) []uint32 {
	b := spvasm.New()
	b.EntryPoint(model, "main")
	scale := b.Float(32)
	if scaleInt {
		scale = b.Int(32, true)
	}
	blk := b.Block("Camera",
		spvasm.Field{Name: "tint", Type: b.Vec4(), Offset: 0},
		spvasm.Field{Name: "scale", Type: scale, Offset: scaleOffset},
	)
	if push {
		b.PushConstant("camera", blk)
	} else {
		b.Uniform("camera", blk, 0, 0)
	}
	return b.Words()
}

func TestBuildRejectsStructuralMismatch(t *testing.T) {
	cases := []struct {
		name     string
		push     bool
		align    uint64
		offset   uint32
		scaleInt bool
	}{
		// both declared offsets round up to 256
		{"declared offset", false, 256, 32, false},
		{"member type", false, 1, 16, true},
		{"push member type", true, 1, 16, true},
	}
	for _, c := range cases {
		d := NewHostDriver()
		pb := NewPoolBuilder(c.align)
		if err := pb.AddWords(scaleShader(spvasm.ExecutionVertex, c.push, 16, false)); err != nil {
			t.Fatal(err)
		}
		if err := pb.AddWords(scaleShader(spvasm.ExecutionFragment, c.push, c.offset, c.scaleInt)); err != nil {
			t.Fatal(err)
		}
		_, _, err := pb.Build(d)
		var ce *ConflictError
		if !errors.As(err, &ce) {
			t.Errorf("%s: got %v, want ConflictError", c.name, err)
			continue
		}
		if !strings.Contains(ce.Reason, "scale") {
			t.Errorf("%s: reason %q does not name the field", c.name, ce.Reason)
		}
		if d.Live() != 0 {
			t.Errorf("%s: %d objects created", c.name, d.Live())
		}
	}

	// identical declarations still merge
	_, push := build(t, NewHostDriver(), 1,
		scaleShader(spvasm.ExecutionVertex, true, 16, true),
		scaleShader(spvasm.ExecutionFragment, true, 16, true))
	if s := push["camera"].Stages; s != spirv.VertexBit|spirv.FragmentBit {
		t.Errorf("stages = %v", s)
	}
}

func TestBuilderIsConsumed(t *testing.T) {
	pb := NewPoolBuilder(256)
	if err := pb.AddWords(cameraShader(spvasm.ExecutionVertex)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := pb.Build(NewHostDriver()); err != nil {
		t.Fatal(err)
	}
	if err := pb.AddWords(cameraShader(spvasm.ExecutionFragment)); err != ErrBuilderConsumed {
		t.Errorf("Add after Build = %v", err)
	}
	if _, _, err := pb.Build(NewHostDriver()); err != ErrBuilderConsumed {
		t.Errorf("second Build = %v", err)
	}

	failed := NewPoolBuilder(256)
	if _, _, err := failed.Build(&faultyDriver{HostDriver: NewHostDriver(), fail: "pool"}); err != nil {
		t.Fatalf("empty build should not touch the driver: %v", err)
	}
	if _, _, err := failed.Build(NewHostDriver()); err != ErrBuilderConsumed {
		t.Errorf("Build after empty Build = %v", err)
	}
}

func TestFailedAddLeavesBuilderUnchanged(t *testing.T) {
	pb := NewPoolBuilder(256)
	if err := pb.AddWords(cameraShader(spvasm.ExecutionVertex)); err != nil {
		t.Fatal(err)
	}
	err := pb.AddWords(spvasm.Globals(spvasm.ExecutionGLCompute).Words())
	var re *spirv.ReflectionError
	if !errors.As(err, &re) {
		t.Fatalf("got %v, want ReflectionError", err)
	}
	if len(pb.Reflections()) != 1 {
		t.Errorf("reflections = %d, want 1", len(pb.Reflections()))
	}
}

func TestAddCompiledShader(t *testing.T) {
	cs, err := shader.LoadSPIRV("camera.frag.spv", spvasm.Globals(spvasm.ExecutionFragment).Bytes(), "")
	if err != nil {
		t.Fatal(err)
	}
	pb := NewPoolBuilder(16)
	if err := pb.Add(cs); err != nil {
		t.Fatal(err)
	}
	r := pb.Reflections()[0]
	if r.Stage != spirv.Fragment || r.Resources[0].Fields["intensity"].Offset != 16 {
		t.Errorf("reflection = %+v", r)
	}
}

func TestEmptyBuild(t *testing.T) {
	d := NewHostDriver()
	p, push, err := NewPoolBuilder(256).Build(d)
	if err != nil {
		t.Fatal(err)
	}
	if p.MaxSets() != 0 || len(p.PoolSizes()) != 0 || len(push) != 0 || d.Live() != 0 {
		t.Errorf("empty build created %d objects, %d sets", d.Live(), p.MaxSets())
	}
	p.Release()
}

func TestReleaseIsReverseCreationOrder(t *testing.T) {
	d := NewHostDriver()
	p, _ := build(t, d, 256, samplerShader(spvasm.ExecutionVertex))
	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	s0, _ := p.Set(0)
	s1, _ := p.Set(1)
	want := []Handle{bufs["Globals"].Handle(), s1.Handle, s0.Handle, s1.Layout, s0.Layout, p.Handle()}

	p.Release()
	if !reflect.DeepEqual(d.Destroyed(), want) {
		t.Errorf("destroyed %v, want %v", d.Destroyed(), want)
	}
	if d.Live() != 0 {
		t.Errorf("%d objects leaked", d.Live())
	}
	p.Release()
	if len(d.Destroyed()) != len(want) {
		t.Errorf("second Release destroyed more objects: %v", d.Destroyed())
	}
}

func TestBufferReleasedBeforePool(t *testing.T) {
	d := NewHostDriver()
	p, _ := build(t, d, 256, spvasm.Globals(spvasm.ExecutionVertex).Words())
	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	buf := bufs["Globals"]
	buf.Release()
	buf.Release()
	if got := d.Destroyed(); len(got) != 1 || got[0] != buf.Handle() {
		t.Fatalf("destroyed %v", got)
	}
	if err := buf.Write("intensity", make([]byte, 4)); err != ErrReleased {
		t.Errorf("write after release = %v", err)
	}
	p.Release()
	if len(d.Destroyed()) != 4 || d.Live() != 0 {
		t.Errorf("destroyed %v, %d live", d.Destroyed(), d.Live())
	}
}

func TestWriteAfterPoolRelease(t *testing.T) {
	d := NewHostDriver()
	p, _ := build(t, d, 256, spvasm.Globals(spvasm.ExecutionVertex).Words())
	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	p.Release()
	if err := bufs["Globals"].Write("intensity", make([]byte, 4)); err != ErrReleased {
		t.Errorf("write after pool release = %v", err)
	}
	n := len(d.Destroyed())
	bufs["Globals"].Release()
	if len(d.Destroyed()) != n {
		t.Errorf("buffer destroyed twice: %v", d.Destroyed())
	}
}

func TestRuntimeArrayBlockGetsBuffer(t *testing.T) {
	b := spvasm.Globals(spvasm.ExecutionVertex)
	data := b.Block("Data", spvasm.Field{Name: "values", Type: b.RuntimeArray(b.Float(32), 4), Offset: 0})
	b.Storage("data", data, 0, 1)

	d := NewHostDriver()
	p, _ := build(t, d, 256, b.Words())
	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(bufs) != 2 {
		t.Fatalf("buffers = %d, want 2", len(bufs))
	}
	buf := bufs["data"]
	if buf.Size != 4 || buf.Type != spirv.StorageBuffer {
		t.Errorf("data = %d bytes of %v", buf.Size, buf.Type)
	}
	if err := buf.Write("values", []byte{1, 2, 3, 4}); err != nil {
		t.Error(err)
	}
}

func TestMakeBuffersSkipsEmptyBlocks(t *testing.T) {
	b := spvasm.Globals(spvasm.ExecutionVertex)
	empty := b.Block("Empty", spvasm.Field{Name: "inner", Type: b.Struct(), Offset: 0})
	b.Uniform("empty", empty, 0, 1)

	d := NewHostDriver()
	p, _ := build(t, d, 256, b.Words())
	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := bufs["empty"]; ok || bufs["Globals"] == nil {
		t.Errorf("buffers = %v", bufs)
	}
}

func TestPackedBuffer(t *testing.T) {
	for _, c := range []struct {
		align  uint64
		packed bool
	}{{1, true}, {16, true}, {256, false}} {
		d := NewHostDriver()
		p, _ := build(t, d, c.align, spvasm.Globals(spvasm.ExecutionVertex).Words())
		bufs, err := p.MakeBuffers(d)
		if err != nil {
			t.Fatal(err)
		}
		if got := bufs["Globals"].Packed(); got != c.packed {
			t.Errorf("align %d: packed = %v, want %v", c.align, got, c.packed)
		}
	}
}

func TestAllocationFailureReleasesEverything(t *testing.T) {
	for _, op := range []string{"pool", "layout", "sets"} {
		d := &faultyDriver{HostDriver: NewHostDriver(), fail: op}
		pb := NewPoolBuilder(256)
		if err := pb.AddWords(samplerShader(spvasm.ExecutionVertex)); err != nil {
			t.Fatal(err)
		}
		p, _, err := pb.Build(d)
		var ae *AllocationError
		if !errors.As(err, &ae) || p != nil {
			t.Errorf("%s: got %v, want AllocationError", op, err)
			continue
		}
		if errors.Cause(err) != errInjected {
			t.Errorf("%s: cause = %v", op, errors.Cause(err))
		}
		if d.Live() != 0 {
			t.Errorf("%s: %d objects leaked", op, d.Live())
		}
	}

	d := &faultyDriver{HostDriver: NewHostDriver(), fail: "sets"}
	pb := NewPoolBuilder(256)
	if err := pb.AddWords(samplerShader(spvasm.ExecutionVertex)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := pb.Build(d); err == nil {
		t.Fatal("expected failure")
	}
	// pool, layout 0 and layout 1 were handles 1, 2 and 3
	if want := []Handle{3, 2, 1}; !reflect.DeepEqual(d.Destroyed(), want) {
		t.Errorf("destroyed %v, want %v", d.Destroyed(), want)
	}
}

func TestMakeBuffersFailureReleasesBuffers(t *testing.T) {
	b := spvasm.Globals(spvasm.ExecutionVertex)
	lights := b.Block("Lights", spvasm.Field{Name: "count", Type: b.Int(32, false), Offset: 0})
	b.Uniform("lights", lights, 0, 1)

	d := &faultyDriver{HostDriver: NewHostDriver()}
	p, _ := build(t, d, 256, b.Words())
	live := d.Live()

	d.fail, d.buffers = "buffer", 1
	bufs, err := p.MakeBuffers(d)
	var ae *AllocationError
	if !errors.As(err, &ae) || bufs != nil {
		t.Fatalf("got %v, want AllocationError", err)
	}
	if d.Live() != live {
		t.Errorf("%d live objects, want %d", d.Live(), live)
	}
}

func TestWriteChecksSizeBeforeMapping(t *testing.T) {
	d := &faultyDriver{HostDriver: NewHostDriver()}
	p, _ := build(t, d, 256, spvasm.Globals(spvasm.ExecutionVertex).Words())
	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	buf := bufs["Globals"]

	for _, n := range []int{3, 5, 0} {
		err := buf.Write("intensity", make([]byte, n))
		var sm *SizeMismatchError
		if !errors.As(err, &sm) {
			t.Errorf("%d bytes: got %v, want SizeMismatchError", n, err)
			continue
		}
		if sm.Want != 4 || sm.Got != uint64(n) || sm.Field != "intensity" {
			t.Errorf("%d bytes: %+v", n, sm)
		}
	}
	var uf *UnknownFieldError
	if err := buf.Write("missing", make([]byte, 4)); !errors.As(err, &uf) {
		t.Errorf("unknown field: got %v", err)
	}
	if d.maps != 0 {
		t.Errorf("memory mapped %d times for rejected writes", d.maps)
	}

	if err := buf.Write("intensity", make([]byte, 4)); err != nil {
		t.Fatal(err)
	}
	if err := buf.Write("intensity", make([]byte, 4)); err != nil {
		t.Errorf("second write failed, memory left mapped: %v", err)
	}
	if d.maps != 2 {
		t.Errorf("maps = %d, want 2", d.maps)
	}

	d.fail = "map"
	var ae *AllocationError
	if err := buf.Write("color", make([]byte, 16)); !errors.As(err, &ae) || ae.Op != "map memory" {
		t.Errorf("map failure: got %v", err)
	}
}

func TestUpdateSetsSkipsUnknownNames(t *testing.T) {
	d := NewHostDriver()
	p, _ := build(t, d, 256, samplerShader(spvasm.ExecutionFragment))
	bufs, err := p.MakeBuffers(d)
	if err != nil {
		t.Fatal(err)
	}
	samp := ImageInfo{Sampler: 99}
	writes := []NamedWrite{
		{Name: "Globals", Info: bufs["Globals"].WholeInfo()},
		{Name: "samp", Info: samp},
		{Name: "nothing", Info: samp},
		{Name: "Globals", Info: samp},
		{Name: "samp", Element: 3, Info: samp},
	}
	if n := p.UpdateSets(d, writes); n != 2 {
		t.Fatalf("applied %d writes, want 2", n)
	}

	s0, _ := p.Set(0)
	w, ok := d.Written(s0.Handle, 0, 0)
	if !ok || w.Info != bufs["Globals"].WholeInfo() || w.Type != spirv.UniformBuffer {
		t.Errorf("set 0 write = %+v, %v", w, ok)
	}
	s1, _ := p.Set(1)
	w, ok = d.Written(s1.Handle, 0, 0)
	if !ok || w.Info != samp {
		t.Errorf("set 1 write = %+v, %v", w, ok)
	}

	if recs := s1.MakeWrites([]NamedWrite{{Name: "Globals", Info: samp}}); len(recs) != 0 {
		t.Errorf("set 1 resolved a set 0 name: %+v", recs)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	modules := [][]uint32{samplerShader(spvasm.ExecutionVertex), samplerShader(spvasm.ExecutionFragment), pushShader(spvasm.ExecutionVertex)}
	a, apush := build(t, NewHostDriver(), 256, modules...)
	b, bpush := build(t, NewHostDriver(), 256, modules...)

	if !reflect.DeepEqual(a.PoolSizes(), b.PoolSizes()) || a.MaxSets() != b.MaxSets() {
		t.Errorf("pool sizes differ: %+v vs %+v", a.PoolSizes(), b.PoolSizes())
	}
	for i, s := range a.Sets() {
		if !reflect.DeepEqual(s.Bindings(), b.Sets()[i].Bindings()) {
			t.Errorf("set %d bindings differ", s.Set)
		}
	}
	if !reflect.DeepEqual(apush.Ranges(), bpush.Ranges()) {
		t.Errorf("push ranges differ: %+v vs %+v", apush.Ranges(), bpush.Ranges())
	}
}

func TestArenaDestroy(t *testing.T) {
	d := NewHostDriver()
	a := NewArena(d)
	var hs []Handle
	for i := 0; i < 3; i++ {
		h, err := d.CreateBuffer(4, UsageUniform)
		if err != nil {
			t.Fatal(err)
		}
		hs = append(hs, a.Track(h))
	}
	a.Track(NullHandle)
	if a.Len() != 3 {
		t.Fatalf("len = %d", a.Len())
	}
	if !a.Destroy(hs[1]) || a.Destroy(hs[1]) {
		t.Error("Destroy should succeed exactly once")
	}
	a.Release()
	if want := []Handle{hs[1], hs[2], hs[0]}; !reflect.DeepEqual(d.Destroyed(), want) {
		t.Errorf("destroyed %v, want %v", d.Destroyed(), want)
	}
}
