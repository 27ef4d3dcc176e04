package spirv

import (
	"fmt"
	"sort"
)

// FieldLayout is the placement of one structured member inside the
// buffer that backs its resource.
type FieldLayout struct {
	// Index is the member's declaration index
	Index uint32
	// DeclaredOffset is the offset the shader declared for the member
	DeclaredOffset uint64
	// Offset is the effective offset, always a multiple of the alignment
	// the layout was computed with
	Offset uint64
	Size   uint64
	Type   DescriptorType
	Count  uint32
}

// End returns the first byte past the field.
func (f FieldLayout) End() uint64 {
	return f.Offset + f.Size
}

// AlignUp rounds v up to the next multiple of align. An alignment of 0 or
// 1 leaves v unchanged.
func AlignUp(v uint64, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	m := v % align
	if m == 0 {
		return v
	}
	return v - m + align
}

// LayoutFields places every member at its declared offset rounded up to a
// multiple of align, so each field can be bound on its own as a buffer
// sub-range. Members are placed in declaration order and never overlap a
// previously placed member. Sizes are not rounded.
func LayoutFields(members []Member, kind DescriptorType, align uint64) map[string]FieldLayout {
	ordered := make([]Member, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	fields := make(map[string]FieldLayout, len(ordered))
	var end uint64
	for _, m := range ordered {
		start := m.Offset
		if start < end {
			start = end
		}
		f := FieldLayout{
			Index:          m.Index,
			DeclaredOffset: m.Offset,
			Offset:         AlignUp(start, align),
			Size:           m.Size,
			Type:           kind,
			Count:          m.Count,
		}
		fields[m.Name] = f
		end = f.End()
	}
	return fields
}

// Extent returns the byte size needed to hold every field.
func Extent(fields map[string]FieldLayout) uint64 {
	var size uint64
	for _, f := range fields {
		if f.End() > size {
			size = f.End()
		}
	}
	return size
}

// SortedFieldNames returns the names of fields in declaration order.
func SortedFieldNames(fields map[string]FieldLayout) []string {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return fields[names[i]].Index < fields[names[j]].Index
	})
	return names
}

// resolve builds the ResourceType for a type id. Arrays must already have
// been unwrapped by the caller.
func (m *module) resolve(id uint32) (ResourceType, error) {
	t, ok := m.types[id]
	if !ok {
		return nil, reflectErrorf(id, "undefined type")
	}
	ops := t.operands
	switch t.op {
	case opTypeBool:
		return ScalarType{Kind: "bool", Width: 32, Rows: 1, Columns: 1}, nil
	case opTypeInt:
		if len(ops) < 2 {
			return nil, reflectErrorf(id, "malformed OpTypeInt")
		}
		kind := "uint"
		if ops[1] != 0 {
			kind = "int"
		}
		return ScalarType{Kind: kind, Width: ops[0], Rows: 1, Columns: 1}, nil
	case opTypeFloat:
		if len(ops) < 1 {
			return nil, reflectErrorf(id, "malformed OpTypeFloat")
		}
		return ScalarType{Kind: "float", Width: ops[0], Rows: 1, Columns: 1}, nil
	case opTypeVector:
		if len(ops) < 2 {
			return nil, reflectErrorf(id, "malformed OpTypeVector")
		}
		c, err := m.resolve(ops[0])
		if err != nil {
			return nil, err
		}
		s, ok := c.(ScalarType)
		if !ok {
			return nil, reflectErrorf(id, "vector of non-scalar component")
		}
		s.Rows = ops[1]
		return s, nil
	case opTypeMatrix:
		if len(ops) < 2 {
			return nil, reflectErrorf(id, "malformed OpTypeMatrix")
		}
		c, err := m.resolve(ops[0])
		if err != nil {
			return nil, err
		}
		s, ok := c.(ScalarType)
		if !ok {
			return nil, reflectErrorf(id, "matrix of non-vector column")
		}
		s.Columns = ops[1]
		return s, nil
	case opTypeImage:
		if len(ops) < 7 {
			return nil, reflectErrorf(id, "malformed OpTypeImage")
		}
		return ImageType{
			Dim:     ops[1],
			Depth:   ops[2],
			Arrayed: ops[3] != 0,
			MS:      ops[4] != 0,
			Sampled: ops[5],
			Format:  ops[6],
		}, nil
	case opTypeSampledImage:
		if len(ops) < 1 {
			return nil, reflectErrorf(id, "malformed OpTypeSampledImage")
		}
		img, err := m.resolve(ops[0])
		if err != nil {
			return nil, err
		}
		it, ok := img.(ImageType)
		if !ok {
			return nil, reflectErrorf(id, "sampled image of non-image type")
		}
		return SampledImageType{Image: it}, nil
	case opTypeSampler:
		return SamplerType{}, nil
	case opTypeStruct:
		return m.structType(id)
	case opTypeArray, opTypeRuntimeArray:
		elem, _, _, err := m.unwrapArray(id)
		if err != nil {
			return nil, err
		}
		return m.resolve(elem)
	}
	return UnsupportedType{Op: t.op}, nil
}

// unwrapArray strips (possibly nested) array types from id, returning the
// element type and the total element count. A runtime array counts as one
// element.
func (m *module) unwrapArray(id uint32) (elem uint32, count uint32, runtime bool, err error) {
	count = 1
	for {
		t, ok := m.types[id]
		if !ok {
			return 0, 0, false, reflectErrorf(id, "undefined type")
		}
		switch t.op {
		case opTypeArray:
			if len(t.operands) < 2 {
				return 0, 0, false, reflectErrorf(id, "malformed OpTypeArray")
			}
			n, ok := m.constants[t.operands[1]]
			if !ok {
				return 0, 0, false, reflectErrorf(id, "array length is not a constant")
			}
			count *= uint32(n)
			id = t.operands[0]
		case opTypeRuntimeArray:
			if len(t.operands) < 1 {
				return 0, 0, false, reflectErrorf(id, "malformed OpTypeRuntimeArray")
			}
			runtime = true
			id = t.operands[0]
		default:
			return id, count, runtime, nil
		}
	}
}

func (m *module) structType(id uint32) (StructType, error) {
	st := StructType{Name: m.names[id]}
	memberTypes := m.types[id].operands
	for i, mt := range memberTypes {
		idx := uint32(i)
		elem, count, _, err := m.unwrapArray(mt)
		if err != nil {
			return st, err
		}
		rt, err := m.resolve(elem)
		if err != nil {
			return st, err
		}
		switch rt.(type) {
		case ScalarType, StructType:
		default:
			return st, reflectErrorf(id, "member %d has unsupported type %s", i, TypeName(rt))
		}
		off, ok := m.memberDecoration(id, idx, decorationOffset)
		if !ok || len(off) == 0 {
			return st, reflectErrorf(id, "member %d has no Offset decoration", i)
		}
		size, err := m.memberSize(id, idx)
		if err != nil {
			return st, err
		}
		name, named := m.memberNames[id][idx]
		if !named || name == "" {
			name = fmt.Sprintf("_m%d", i)
			named = false
		}
		st.Members = append(st.Members, Member{
			Index:     idx,
			Name:      name,
			Offset:    uint64(off[0]),
			Size:      size,
			Type:      rt,
			Count:     count,
			anonymous: !named,
		})
	}
	return st, nil
}

// memberSize computes the declared size of a struct member the way
// spirv-cross does: arrays by their stride, matrices by their matrix
// stride, nested structs by their extent. Runtime arrays are the one
// departure and count as one element rather than none.
func (m *module) memberSize(structID, member uint32) (uint64, error) {
	ops := m.types[structID].operands
	if int(member) >= len(ops) {
		return 0, reflectErrorf(structID, "member %d out of range", member)
	}
	typeID := ops[member]
	t, ok := m.types[typeID]
	if !ok {
		return 0, reflectErrorf(typeID, "undefined type")
	}
	switch t.op {
	case opTypeArray:
		n, ok := m.constants[t.operands[1]]
		if !ok {
			return 0, reflectErrorf(typeID, "array length is not a constant")
		}
		if stride, ok := m.decorationValue(typeID, decorationArrayStride); ok {
			return uint64(stride) * n, nil
		}
		elem, err := m.plainSize(t.operands[0])
		if err != nil {
			return 0, err
		}
		return elem * n, nil
	case opTypeRuntimeArray:
		return m.runtimeArraySize(typeID)
	case opTypeStruct:
		return m.structSize(typeID)
	case opTypeMatrix:
		rt, err := m.resolve(typeID)
		if err != nil {
			return 0, err
		}
		s := rt.(ScalarType)
		if stride, ok := m.memberDecoration(structID, member, decorationMatrixStride); ok && len(stride) > 0 {
			if _, rowMajor := m.memberDecoration(structID, member, decorationRowMajor); rowMajor {
				return uint64(stride[0]) * uint64(s.Rows), nil
			}
			return uint64(stride[0]) * uint64(s.Columns), nil
		}
		return m.plainSize(typeID)
	}
	return m.plainSize(typeID)
}

// plainSize is the tightly packed size of a type without any layout
// decorations to go by.
func (m *module) plainSize(id uint32) (uint64, error) {
	t, ok := m.types[id]
	if !ok {
		return 0, reflectErrorf(id, "undefined type")
	}
	switch t.op {
	case opTypeStruct:
		return m.structSize(id)
	case opTypeArray:
		n, ok := m.constants[t.operands[1]]
		if !ok {
			return 0, reflectErrorf(id, "array length is not a constant")
		}
		if stride, ok := m.decorationValue(id, decorationArrayStride); ok {
			return uint64(stride) * n, nil
		}
		elem, err := m.plainSize(t.operands[0])
		return elem * n, err
	case opTypeRuntimeArray:
		return m.runtimeArraySize(id)
	}
	rt, err := m.resolve(id)
	if err != nil {
		return 0, err
	}
	s, ok := rt.(ScalarType)
	if !ok {
		return 0, reflectErrorf(id, "type %s has no size", TypeName(rt))
	}
	return uint64(s.Width/8) * uint64(s.Rows) * uint64(s.Columns), nil
}

// runtimeArraySize sizes a runtime array as a single element so a block
// holding one still gets a non-empty buffer.
func (m *module) runtimeArraySize(id uint32) (uint64, error) {
	if stride, ok := m.decorationValue(id, decorationArrayStride); ok {
		return uint64(stride), nil
	}
	return m.plainSize(m.types[id].operands[0])
}

// structSize is the extent of a struct: the end of its furthest member.
func (m *module) structSize(id uint32) (uint64, error) {
	var size uint64
	for i := range m.types[id].operands {
		off, ok := m.memberDecoration(id, uint32(i), decorationOffset)
		if !ok || len(off) == 0 {
			return 0, reflectErrorf(id, "member %d has no Offset decoration", i)
		}
		ms, err := m.memberSize(id, uint32(i))
		if err != nil {
			return 0, err
		}
		if end := uint64(off[0]) + ms; end > size {
			size = end
		}
	}
	return size, nil
}
