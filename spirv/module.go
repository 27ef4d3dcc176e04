package spirv

import (
	"encoding/binary"
	"math/bits"
)

type typeDecl struct {
	op       uint16
	operands []uint32
}

type variable struct {
	id      uint32
	typeID  uint32
	storage uint32
}

// EntryPoint is one OpEntryPoint of a module.
type EntryPoint struct {
	Model uint32
	Name  string
	ID    uint32
}

type decorations map[uint32][]uint32

// module is the decoded subset of a SPIR-V binary.
type module struct {
	names             map[uint32]string
	memberNames       map[uint32]map[uint32]string
	decorations       map[uint32]decorations
	memberDecorations map[uint32]map[uint32]decorations
	types             map[uint32]typeDecl
	constants         map[uint32]uint64
	variables         []variable
	entryPoints       []EntryPoint
}

// WordsFromBytes converts a little-endian SPIR-V byte stream to words.
func WordsFromBytes(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, reflectErrorf(0, "module length %d is not a multiple of 4", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

func parseModule(words []uint32) (*module, error) {
	if len(words) < headerWords {
		return nil, reflectErrorf(0, "module too short: %d words", len(words))
	}
	switch words[0] {
	case MagicNumber:
	case bits.ReverseBytes32(MagicNumber):
		swapped := make([]uint32, len(words))
		for i, w := range words {
			swapped[i] = bits.ReverseBytes32(w)
		}
		words = swapped
	default:
		return nil, reflectErrorf(0, "bad magic number 0x%08x", words[0])
	}

	m := &module{
		names:             make(map[uint32]string),
		memberNames:       make(map[uint32]map[uint32]string),
		decorations:       make(map[uint32]decorations),
		memberDecorations: make(map[uint32]map[uint32]decorations),
		types:             make(map[uint32]typeDecl),
		constants:         make(map[uint32]uint64),
	}

	for i := headerWords; i < len(words); {
		count := int(words[i] >> 16)
		op := uint16(words[i] & 0xffff)
		if count == 0 {
			return nil, reflectErrorf(0, "zero length instruction at word %d", i)
		}
		if i+count > len(words) {
			return nil, reflectErrorf(0, "instruction at word %d overruns module", i)
		}
		if err := m.record(op, words[i+1:i+count]); err != nil {
			return nil, err
		}
		i += count
	}
	return m, nil
}

func (m *module) record(op uint16, ops []uint32) error {
	need := func(n int) error {
		if len(ops) < n {
			return reflectErrorf(0, "op %d has %d operands, expected at least %d", op, len(ops), n)
		}
		return nil
	}
	switch op {
	case opName:
		if err := need(1); err != nil {
			return err
		}
		m.names[ops[0]] = decodeString(ops[1:])
	case opMemberName:
		if err := need(2); err != nil {
			return err
		}
		if m.memberNames[ops[0]] == nil {
			m.memberNames[ops[0]] = make(map[uint32]string)
		}
		m.memberNames[ops[0]][ops[1]] = decodeString(ops[2:])
	case opEntryPoint:
		if err := need(2); err != nil {
			return err
		}
		m.entryPoints = append(m.entryPoints, EntryPoint{
			Model: ops[0],
			ID:    ops[1],
			Name:  decodeString(ops[2:]),
		})
	case opDecorate:
		if err := need(2); err != nil {
			return err
		}
		if m.decorations[ops[0]] == nil {
			m.decorations[ops[0]] = make(decorations)
		}
		m.decorations[ops[0]][ops[1]] = ops[2:]
	case opMemberDecorate:
		if err := need(3); err != nil {
			return err
		}
		byMember := m.memberDecorations[ops[0]]
		if byMember == nil {
			byMember = make(map[uint32]decorations)
			m.memberDecorations[ops[0]] = byMember
		}
		if byMember[ops[1]] == nil {
			byMember[ops[1]] = make(decorations)
		}
		byMember[ops[1]][ops[2]] = ops[3:]
	case opConstant, opSpecConstant:
		if err := need(3); err != nil {
			return err
		}
		v := uint64(ops[2])
		if len(ops) > 3 {
			v |= uint64(ops[3]) << 32
		}
		m.constants[ops[1]] = v
	case opVariable:
		if err := need(3); err != nil {
			return err
		}
		m.variables = append(m.variables, variable{typeID: ops[0], id: ops[1], storage: ops[2]})
	default:
		if isTypeOp(op) {
			if err := need(1); err != nil {
				return err
			}
			m.types[ops[0]] = typeDecl{op: op, operands: ops[1:]}
		}
	}
	return nil
}

func isTypeOp(op uint16) bool {
	return (op >= opTypeVoid && op <= opTypeForwardPointer) ||
		op == opTypeAccelStruct || op == opTypeRayQuery || op == opTypeCoopMatrix
}

// decodeString reads a nul terminated literal string packed little-endian
// into words.
func decodeString(words []uint32) string {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for j := 0; j < 4; j++ {
			c := byte(w >> (8 * j))
			if c == 0 {
				return string(buf)
			}
			buf = append(buf, c)
		}
	}
	return string(buf)
}

func (m *module) decoration(id, deco uint32) ([]uint32, bool) {
	d, ok := m.decorations[id][deco]
	return d, ok
}

func (m *module) memberDecoration(id, member, deco uint32) ([]uint32, bool) {
	d, ok := m.memberDecorations[id][member][deco]
	return d, ok
}

func (m *module) decorationValue(id, deco uint32) (uint32, bool) {
	d, ok := m.decoration(id, deco)
	if !ok || len(d) == 0 {
		return 0, false
	}
	return d[0], true
}
