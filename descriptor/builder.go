package descriptor

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/celer/vkbind/shader"
	"github.com/celer/vkbind/spirv"
)

// PoolBuilder accumulates the reflections of every stage of a pipeline and
// builds one Pool from them. A builder can be built once.
type PoolBuilder struct {
	align       uint64
	reflections []*spirv.Reflection
	consumed    bool
}

// NewPoolBuilder returns a builder that lays out structured fields on
// minOffsetAlignment, normally the device's
// minUniformBufferOffsetAlignment.
func NewPoolBuilder(minOffsetAlignment uint64) *PoolBuilder {
	return &PoolBuilder{align: minOffsetAlignment}
}

// Add reflects a compiled shader and queues its bindings.
func (b *PoolBuilder) Add(cs shader.CompiledShader) error {
	if b.consumed {
		return ErrBuilderConsumed
	}
	r, err := spirv.ReflectEntryPoint(cs.Words, cs.EntryPoint, b.align)
	if err != nil {
		return err
	}
	b.reflections = append(b.reflections, r)
	return nil
}

// AddWords reflects the first entry point of a SPIR-V module.
func (b *PoolBuilder) AddWords(words []uint32) error {
	return b.Add(shader.CompiledShader{Words: words})
}

// Reflections returns what has been added so far.
func (b *PoolBuilder) Reflections() []*spirv.Reflection {
	return append([]*spirv.Reflection(nil), b.reflections...)
}

type merged struct {
	sets map[uint32][]*spirv.ResourceBinding
	push PushConstantMap
}

func (m *merged) setIndices() []uint32 {
	ret := make([]uint32, 0, len(m.sets))
	for s := range m.sets {
		ret = append(ret, s)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func merge(reflections []*spirv.Reflection) (*merged, error) {
	slots := make(map[uint32]map[uint32]*spirv.ResourceBinding)
	push := make(PushConstantMap)

	for _, r := range reflections {
		for i := range r.Resources {
			res := r.Resources[i]
			set := slots[res.Set]
			if set == nil {
				set = make(map[uint32]*spirv.ResourceBinding)
				slots[res.Set] = set
			}
			prev, ok := set[res.Binding]
			if !ok {
				set[res.Binding] = &res
				continue
			}
			if reason := bindingMismatch(prev, &res); reason != "" {
				return nil, &ConflictError{Set: res.Set, Binding: res.Binding, Reason: reason}
			}
			prev.Stages |= res.Stages
		}

		for _, pc := range r.PushConstants {
			prev, ok := push[pc.Name]
			if !ok {
				push[pc.Name] = &PushConstantBlock{
					Name:   pc.Name,
					Stages: pc.Stages,
					Size:   uint32(pc.Size),
					Fields: pc.Fields,
					block:  pc.Block,
				}
				continue
			}
			reason := fieldsMismatch(prev.Fields, pc.Fields)
			if reason == "" {
				reason = typeMismatch("", prev.block, pc.Block)
			}
			if reason != "" {
				return nil, &ConflictError{Name: pc.Name, Reason: reason}
			}
			prev.Stages |= pc.Stages
		}
	}

	m := &merged{sets: make(map[uint32][]*spirv.ResourceBinding, len(slots)), push: push}
	for s, set := range slots {
		list := make([]*spirv.ResourceBinding, 0, len(set))
		for _, b := range set {
			list = append(list, b)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		m.sets[s] = list
	}
	return m, nil
}

func bindingMismatch(a, b *spirv.ResourceBinding) string {
	switch {
	case a.Type != b.Type:
		return fmt.Sprintf("type %s vs %s", a.Type, b.Type)
	case a.Count != b.Count:
		return fmt.Sprintf("count %d vs %d", a.Count, b.Count)
	case a.Name != b.Name:
		return fmt.Sprintf("name %q vs %q", a.Name, b.Name)
	}
	if reason := fieldsMismatch(a.Fields, b.Fields); reason != "" {
		return reason
	}
	return typeMismatch("", a.Resource, b.Resource)
}

func fieldsMismatch(a, b map[string]spirv.FieldLayout) string {
	if len(a) != len(b) {
		return fmt.Sprintf("%d fields vs %d", len(a), len(b))
	}
	for _, name := range spirv.SortedFieldNames(a) {
		fb, ok := b[name]
		if !ok {
			return fmt.Sprintf("field %q missing", name)
		}
		fa := a[name]
		if fa.Index != fb.Index || fa.DeclaredOffset != fb.DeclaredOffset || fa.Size != fb.Size || fa.Count != fb.Count {
			return fmt.Sprintf("field %q declared at %d+%d vs %d+%d", name, fa.DeclaredOffset, fa.Size, fb.DeclaredOffset, fb.Size)
		}
		if fa.Offset != fb.Offset {
			return fmt.Sprintf("field %q laid out at %d vs %d", name, fa.Offset, fb.Offset)
		}
	}
	return ""
}

// typeMismatch walks two reflected types member by member. Struct names
// are not compared; member names, offsets, sizes and scalar kinds are.
func typeMismatch(path string, a, b spirv.ResourceType) string {
	switch ta := a.(type) {
	case spirv.StructType:
		tb, ok := b.(spirv.StructType)
		if !ok {
			return fmt.Sprintf("%stype %s vs %s", prefix(path), spirv.TypeName(a), spirv.TypeName(b))
		}
		if len(ta.Members) != len(tb.Members) {
			return fmt.Sprintf("%s%d members vs %d", prefix(path), len(ta.Members), len(tb.Members))
		}
		for i, ma := range ta.Members {
			mb := tb.Members[i]
			p := path + ma.Name
			switch {
			case ma.Name != mb.Name:
				return fmt.Sprintf("%smember %d named %q vs %q", prefix(path), i, ma.Name, mb.Name)
			case ma.Offset != mb.Offset || ma.Size != mb.Size || ma.Count != mb.Count:
				return fmt.Sprintf("member %q declared at %d+%d x%d vs %d+%d x%d", p, ma.Offset, ma.Size, ma.Count, mb.Offset, mb.Size, mb.Count)
			}
			if reason := typeMismatch(p+".", ma.Type, mb.Type); reason != "" {
				return reason
			}
		}
		return ""
	case nil:
		if b != nil {
			return fmt.Sprintf("%stype none vs %s", prefix(path), spirv.TypeName(b))
		}
		return ""
	}
	if a != b {
		return fmt.Sprintf("%stype %s vs %s", prefix(path), spirv.TypeName(a), spirv.TypeName(b))
	}
	return ""
}

func prefix(path string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("member %q: ", path[:len(path)-1])
}

// Build merges every added stage and creates the pool, one layout per set
// and one descriptor set per layout. The builder is consumed whether or
// not Build succeeds.
func (b *PoolBuilder) Build(d Driver) (*Pool, PushConstantMap, error) {
	if b.consumed {
		return nil, nil, ErrBuilderConsumed
	}
	b.consumed = true
	reflections := b.reflections
	b.reflections = nil

	m, err := merge(reflections)
	if err != nil {
		return nil, nil, err
	}

	p := &Pool{
		driver: d,
		arena:  NewArena(d),
	}
	for _, s := range m.setIndices() {
		for _, rb := range m.sets[s] {
			p.sizes = append(p.sizes, PoolSize{Type: rb.Type, Count: rb.Count})
		}
		p.sets = append(p.sets, newSetAggregate(s, m.sets[s]))
	}
	p.maxSets = uint32(len(p.sets))

	if len(p.sets) == 0 {
		return p, m.push, nil
	}

	h, err := d.CreateDescriptorPool(p.sizes, p.maxSets)
	if err != nil {
		return nil, nil, &AllocationError{Op: "create descriptor pool", Err: err}
	}
	p.handle = p.arena.Track(h)

	layouts := make([]Handle, len(p.sets))
	for i, s := range p.sets {
		lh, err := d.CreateDescriptorSetLayout(s.layoutBindings())
		if err != nil {
			p.arena.Release()
			return nil, nil, &AllocationError{Op: fmt.Sprintf("create layout for set %d", s.Set), Err: err}
		}
		s.Layout = p.arena.Track(lh)
		layouts[i] = lh
	}

	handles, err := d.AllocateDescriptorSets(p.handle, layouts)
	if err == nil && len(handles) != len(layouts) {
		for _, h := range handles {
			d.Destroy(h)
		}
		err = errors.Errorf("driver returned %d sets for %d layouts", len(handles), len(layouts))
	}
	if err != nil {
		p.arena.Release()
		return nil, nil, &AllocationError{Op: "allocate descriptor sets", Err: err}
	}
	for i, s := range p.sets {
		s.Handle = p.arena.Track(handles[i])
	}

	logger.Printf("built descriptor pool: %d sets, %d bindings, %d push constant blocks", p.maxSets, len(p.sizes), len(m.push))
	return p, m.push, nil
}
