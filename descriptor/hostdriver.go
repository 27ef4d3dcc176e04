package descriptor

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/celer/vkbind/spirv"
)

type hostKind int

const (
	hostPool hostKind = iota
	hostLayout
	hostSet
	hostBuffer
)

func (k hostKind) String() string {
	switch k {
	case hostPool:
		return "pool"
	case hostLayout:
		return "layout"
	case hostSet:
		return "set"
	}
	return "buffer"
}

type hostObject struct {
	kind hostKind

	// pool
	sizes     map[spirv.DescriptorType]uint32
	maxSets   uint32
	allocated uint32

	// layout
	bindings []LayoutBinding

	// set
	pool   Handle
	layout Handle
	writes map[[2]uint32]WriteRecord

	// buffer
	data   []byte
	usage  BufferUsage
	mapped bool
}

// HostDriver is a Driver backed by ordinary memory. It enforces the same
// capacity and mapping rules a Vulkan device would, which makes it useful
// for tooling and tests.
type HostDriver struct {
	mu        sync.Mutex
	next      Handle
	objects   map[Handle]*hostObject
	destroyed []Handle
}

var _ Driver = (*HostDriver)(nil)

func NewHostDriver() *HostDriver {
	return &HostDriver{objects: make(map[Handle]*hostObject)}
}

func (h *HostDriver) add(o *hostObject) Handle {
	h.next++
	h.objects[h.next] = o
	return h.next
}

func (h *HostDriver) get(handle Handle, kind hostKind) (*hostObject, error) {
	o, ok := h.objects[handle]
	if !ok {
		return nil, errors.Errorf("unknown handle %d", handle)
	}
	if o.kind != kind {
		return nil, errors.Errorf("handle %d is a %s, not a %s", handle, o.kind, kind)
	}
	return o, nil
}

func (h *HostDriver) CreateDescriptorPool(sizes []PoolSize, maxSets uint32) (Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if maxSets == 0 || len(sizes) == 0 {
		return NullHandle, errors.New("descriptor pool needs at least one set and one pool size")
	}
	o := &hostObject{kind: hostPool, sizes: make(map[spirv.DescriptorType]uint32), maxSets: maxSets}
	for _, s := range sizes {
		o.sizes[s.Type] += s.Count
	}
	return h.add(o), nil
}

func (h *HostDriver) CreateDescriptorSetLayout(bindings []LayoutBinding) (Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[uint32]bool, len(bindings))
	for _, b := range bindings {
		if seen[b.Binding] {
			return NullHandle, errors.Errorf("binding %d declared twice", b.Binding)
		}
		seen[b.Binding] = true
	}
	return h.add(&hostObject{kind: hostLayout, bindings: append([]LayoutBinding(nil), bindings...)}), nil
}

func (h *HostDriver) AllocateDescriptorSets(pool Handle, layouts []Handle) ([]Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := h.get(pool, hostPool)
	if err != nil {
		return nil, err
	}
	if p.allocated+uint32(len(layouts)) > p.maxSets {
		return nil, errors.Errorf("out of pool memory: %d sets requested, %d free", len(layouts), p.maxSets-p.allocated)
	}
	need := make(map[spirv.DescriptorType]uint32)
	for _, l := range layouts {
		lo, err := h.get(l, hostLayout)
		if err != nil {
			return nil, err
		}
		for _, b := range lo.bindings {
			need[b.Type] += b.Count
		}
	}
	for t, n := range need {
		if n > p.sizes[t] {
			return nil, errors.Errorf("out of pool memory: %d %s descriptors requested, %d available", n, t, p.sizes[t])
		}
	}
	for t, n := range need {
		p.sizes[t] -= n
	}
	p.allocated += uint32(len(layouts))

	ret := make([]Handle, len(layouts))
	for i, l := range layouts {
		ret[i] = h.add(&hostObject{kind: hostSet, pool: pool, layout: l, writes: make(map[[2]uint32]WriteRecord)})
	}
	return ret, nil
}

func (h *HostDriver) UpdateDescriptorSets(writes []WriteRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range writes {
		s, err := h.get(w.Set, hostSet)
		if err != nil {
			logger.Printf("host driver: dropping write: %v", err)
			continue
		}
		s.writes[[2]uint32{w.Binding, w.Element}] = w
	}
}

func (h *HostDriver) CreateBuffer(size uint64, usage BufferUsage) (Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if size == 0 {
		return NullHandle, errors.New("buffer size must be greater than zero")
	}
	return h.add(&hostObject{kind: hostBuffer, data: make([]byte, size), usage: usage}), nil
}

func (h *HostDriver) MapMemory(buffer Handle, offset, size uint64) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, err := h.get(buffer, hostBuffer)
	if err != nil {
		return nil, err
	}
	if b.mapped {
		return nil, errors.Errorf("buffer %d is already mapped", buffer)
	}
	if offset+size > uint64(len(b.data)) {
		return nil, errors.Errorf("range %d+%d exceeds buffer size %d", offset, size, len(b.data))
	}
	b.mapped = true
	return b.data[offset : offset+size : offset+size], nil
}

func (h *HostDriver) UnmapMemory(buffer Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, err := h.get(buffer, hostBuffer); err == nil {
		b.mapped = false
	}
}

func (h *HostDriver) Destroy(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.objects[handle]; !ok {
		return
	}
	delete(h.objects, handle)
	h.destroyed = append(h.destroyed, handle)
}

// Live returns how many objects have not been destroyed.
func (h *HostDriver) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.objects)
}

// Destroyed returns handles in the order they were destroyed.
func (h *HostDriver) Destroyed() []Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Handle(nil), h.destroyed...)
}

// Contents returns a copy of a buffer's bytes.
func (h *HostDriver) Contents(buffer Handle) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, err := h.get(buffer, hostBuffer)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b.data...), nil
}

// Written returns the descriptor last written to (binding, element) of a
// set.
func (h *HostDriver) Written(set Handle, binding, element uint32) (WriteRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, err := h.get(set, hostSet)
	if err != nil {
		return WriteRecord{}, false
	}
	w, ok := s.writes[[2]uint32{binding, element}]
	return w, ok
}

// LayoutBindings returns what a layout was created with.
func (h *HostDriver) LayoutBindings(layout Handle) ([]LayoutBinding, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, err := h.get(layout, hostLayout)
	if err != nil {
		return nil, err
	}
	return append([]LayoutBinding(nil), l.bindings...), nil
}
