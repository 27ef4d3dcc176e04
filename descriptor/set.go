package descriptor

import (
	"github.com/celer/vkbind/spirv"
)

// SetAggregate is one descriptor set and every binding it holds, across
// all stages of a pipeline.
type SetAggregate struct {
	Set    uint32
	Layout Handle
	Handle Handle

	bindings []*spirv.ResourceBinding
	byName   map[string]*spirv.ResourceBinding
}

func newSetAggregate(set uint32, bindings []*spirv.ResourceBinding) *SetAggregate {
	s := &SetAggregate{
		Set:      set,
		bindings: bindings,
		byName:   make(map[string]*spirv.ResourceBinding, len(bindings)),
	}
	for _, b := range bindings {
		if _, dup := s.byName[b.Name]; dup {
			logger.Printf("set %d: name %q is bound more than once, lookups use binding %d", set, b.Name, s.byName[b.Name].Binding)
			continue
		}
		s.byName[b.Name] = b
	}
	return s
}

// Lookup finds a binding by resource name.
func (s *SetAggregate) Lookup(name string) (*spirv.ResourceBinding, bool) {
	b, ok := s.byName[name]
	return b, ok
}

// Bindings returns the set's bindings ordered by binding index.
func (s *SetAggregate) Bindings() []*spirv.ResourceBinding {
	return append([]*spirv.ResourceBinding(nil), s.bindings...)
}

func (s *SetAggregate) layoutBindings() []LayoutBinding {
	ret := make([]LayoutBinding, len(s.bindings))
	for i, b := range s.bindings {
		ret[i] = LayoutBinding{Binding: b.Binding, Type: b.Type, Count: b.Count, Stages: b.Stages}
	}
	return ret
}

// MakeWrites resolves named writes against this set. Names the set does
// not hold are skipped, as are payloads of the wrong kind and elements
// past the end of the binding's array.
func (s *SetAggregate) MakeWrites(writes []NamedWrite) []WriteRecord {
	var ret []WriteRecord
	for _, w := range writes {
		b, ok := s.byName[w.Name]
		if !ok {
			continue
		}
		if !accepts(b.Type, w.Info) {
			logger.Printf("set %d: %T cannot be written to %s binding %q", s.Set, w.Info, b.Type, w.Name)
			continue
		}
		if w.Element >= b.Count {
			logger.Printf("set %d: element %d out of range for %q (count %d)", s.Set, w.Element, w.Name, b.Count)
			continue
		}
		ret = append(ret, WriteRecord{
			Set:     s.Handle,
			Binding: b.Binding,
			Element: w.Element,
			Type:    b.Type,
			Info:    w.Info,
		})
	}
	return ret
}
