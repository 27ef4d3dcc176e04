package spirv

import (
	"fmt"
	"sort"
)

// ResourceBinding is one descriptor resource declared by a shader.
type ResourceBinding struct {
	Set     uint32
	Binding uint32
	Name    string
	Type    DescriptorType
	// Count is the descriptor array length, at least 1
	Count  uint32
	Stages StageFlags
	// Fields is empty unless the resource is a structured buffer
	Fields map[string]FieldLayout
	// Resource is the reflected underlying type
	Resource ResourceType
}

// Structured reports whether the binding has a field table.
func (r *ResourceBinding) Structured() bool {
	return len(r.Fields) > 0
}

// Size returns the byte size of a buffer holding every field.
func (r *ResourceBinding) Size() uint64 {
	return Extent(r.Fields)
}

// PushConstantBlock is a push-constant block declared by a shader.
type PushConstantBlock struct {
	Name   string
	Stages StageFlags
	// Size is the extent of the block
	Size   uint64
	Fields map[string]FieldLayout
	// Block is the reflected block type
	Block StructType
}

// Reflection is everything reflected from one shader entry point.
type Reflection struct {
	Stage         Stage
	EntryPoint    string
	Resources     []ResourceBinding
	PushConstants []PushConstantBlock
}

// Reflect decodes words and reflects its first entry point. Structured
// fields are laid out with the given minimum offset alignment.
func Reflect(words []uint32, align uint64) (*Reflection, error) {
	return ReflectEntryPoint(words, "", align)
}

// ReflectBytes is Reflect for a little-endian byte stream.
func ReflectBytes(data []byte, align uint64) (*Reflection, error) {
	words, err := WordsFromBytes(data)
	if err != nil {
		return nil, err
	}
	return Reflect(words, align)
}

// EntryPoints lists the entry points declared by a module.
func EntryPoints(words []uint32) ([]EntryPoint, error) {
	m, err := parseModule(words)
	if err != nil {
		return nil, err
	}
	return m.entryPoints, nil
}

// ReflectEntryPoint reflects the named entry point, or the first one when
// name is empty.
func ReflectEntryPoint(words []uint32, name string, align uint64) (*Reflection, error) {
	m, err := parseModule(words)
	if err != nil {
		return nil, err
	}
	if len(m.entryPoints) == 0 {
		return nil, reflectErrorf(0, "module declares no entry point")
	}
	ep := m.entryPoints[0]
	if name != "" {
		found := false
		for _, e := range m.entryPoints {
			if e.Name == name {
				ep, found = e, true
				break
			}
		}
		if !found {
			return nil, reflectErrorf(0, "entry point %q not found", name)
		}
	}
	stage, err := StageFromExecutionModel(ep.Model)
	if err != nil {
		return nil, err
	}

	ret := &Reflection{Stage: stage, EntryPoint: ep.Name}
	for _, v := range m.variables {
		switch v.storage {
		case storageUniformConstant, storageUniform, storageStorageBuffer:
			res, err := m.resource(v, stage, align)
			if err != nil {
				return nil, err
			}
			ret.Resources = append(ret.Resources, res)
		case storagePushConstant:
			pc, err := m.pushConstant(v, stage)
			if err != nil {
				return nil, err
			}
			ret.PushConstants = append(ret.PushConstants, pc)
		}
	}
	sort.SliceStable(ret.Resources, func(i, j int) bool {
		a, b := ret.Resources[i], ret.Resources[j]
		if a.Set != b.Set {
			return a.Set < b.Set
		}
		return a.Binding < b.Binding
	})
	return ret, nil
}

func (m *module) pointee(v variable) (uint32, error) {
	t, ok := m.types[v.typeID]
	if !ok || t.op != opTypePointer || len(t.operands) < 2 {
		return 0, reflectErrorf(v.id, "variable type is not a pointer")
	}
	return t.operands[1], nil
}

func (m *module) resource(v variable, stage Stage, align uint64) (ResourceBinding, error) {
	var res ResourceBinding
	pointee, err := m.pointee(v)
	if err != nil {
		return res, err
	}
	elem, count, _, err := m.unwrapArray(pointee)
	if err != nil {
		return res, err
	}
	rt, err := m.resolve(elem)
	if err != nil {
		return res, err
	}
	_, bufferBlock := m.decoration(elem, decorationBufferBlock)
	kind, err := classifyDescriptor(v.id, v.storage, bufferBlock, rt)
	if err != nil {
		return res, err
	}
	set, ok := m.decorationValue(v.id, decorationDescriptorSet)
	if !ok {
		return res, reflectErrorf(v.id, "resource has no DescriptorSet decoration")
	}
	binding, ok := m.decorationValue(v.id, decorationBinding)
	if !ok {
		return res, reflectErrorf(v.id, "resource has no Binding decoration")
	}

	res = ResourceBinding{
		Set:      set,
		Binding:  binding,
		Name:     m.resourceName(v.id, rt),
		Type:     kind,
		Count:    count,
		Stages:   stage.Flags(),
		Resource: rt,
	}
	if st, ok := rt.(StructType); ok {
		st = flatten(st)
		res.Resource = st
		res.Fields = LayoutFields(st.Members, kind, align)
	}
	return res, nil
}

func (m *module) pushConstant(v variable, stage Stage) (PushConstantBlock, error) {
	var pc PushConstantBlock
	pointee, err := m.pointee(v)
	if err != nil {
		return pc, err
	}
	rt, err := m.resolve(pointee)
	if err != nil {
		return pc, err
	}
	st, ok := rt.(StructType)
	if !ok {
		return pc, reflectErrorf(v.id, "push constant of non-struct type %s", TypeName(rt))
	}
	st = flatten(st)
	pc = PushConstantBlock{
		Name:   m.resourceName(v.id, st),
		Stages: stage.Flags(),
		Fields: LayoutFields(st.Members, UniformBuffer, 1),
		Block:  st,
	}
	pc.Size = Extent(pc.Fields)
	return pc, nil
}

// resourceName prefers the variable's name, then the block type's name.
func (m *module) resourceName(id uint32, rt ResourceType) string {
	if n := m.names[id]; n != "" {
		return n
	}
	if st, ok := rt.(StructType); ok && st.Name != "" {
		return st.Name
	}
	return fmt.Sprintf("_%d", id)
}

// flatten replaces a block whose only member is an unnamed struct with
// that struct. Compilers that wrap every global in a synthetic block
// produce this shape.
func flatten(st StructType) StructType {
	for len(st.Members) == 1 {
		mem := st.Members[0]
		inner, ok := mem.Type.(StructType)
		if !ok || !mem.anonymous || mem.Count != 1 || mem.Offset != 0 {
			break
		}
		if inner.Name == "" {
			inner.Name = st.Name
		}
		st = inner
	}
	return st
}
