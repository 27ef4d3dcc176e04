package vkbind

import (
	"log"
	"sync"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkbind/descriptor"
)

// DriverOptions configure a Driver.
type DriverOptions struct {
	// ArenaSize, when non-zero, places every buffer in one shared memory
	// allocation of this many bytes instead of giving each its own.
	ArenaSize uint64
}

type driverBuffer struct {
	buffer *Buffer
	memory *DeviceMemory
	// alloc is set when the buffer lives in the shared arena
	alloc *Allocation
}

func (b *driverBuffer) base() uint64 {
	if b.alloc != nil {
		return b.alloc.Offset
	}
	return 0
}

// external wraps objects registered by the caller. The driver resolves
// them in writes but never destroys them.
type external struct {
	object interface{}
}

// Driver creates descriptor pools, layouts, sets and buffers on a Device.
// It implements descriptor.Driver.
type Driver struct {
	Device  *Device
	options DriverOptions
	handles handleTable

	mu        sync.Mutex
	shared    *DeviceMemory
	allocator *LinearAllocator
}

var _ descriptor.Driver = (*Driver)(nil)

func NewDriver(dev *Device) *Driver {
	return NewDriverWithOptions(dev, DriverOptions{})
}

func NewDriverWithOptions(dev *Device, options DriverOptions) *Driver {
	return &Driver{Device: dev, options: options}
}

// RegisterSampler makes a sampler usable in descriptor writes.
func (d *Driver) RegisterSampler(s vk.Sampler) descriptor.Handle {
	return d.handles.put(external{s})
}

// RegisterImageView makes an image view usable in descriptor writes.
func (d *Driver) RegisterImageView(v vk.ImageView) descriptor.Handle {
	return d.handles.put(external{v})
}

// RegisterBufferView makes a texel buffer view usable in descriptor writes.
func (d *Driver) RegisterBufferView(v vk.BufferView) descriptor.Handle {
	return d.handles.put(external{v})
}

func (d *Driver) CreateDescriptorPool(sizes []descriptor.PoolSize, maxSets uint32) (descriptor.Handle, error) {
	pool, err := d.Device.CreateDescriptorPool(sizes, maxSets)
	if err != nil {
		return descriptor.NullHandle, err
	}
	return d.handles.put(pool), nil
}

func (d *Driver) CreateDescriptorSetLayout(bindings []descriptor.LayoutBinding) (descriptor.Handle, error) {
	layout, err := d.Device.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return descriptor.NullHandle, err
	}
	return d.handles.put(layout), nil
}

func (d *Driver) AllocateDescriptorSets(pool descriptor.Handle, layouts []descriptor.Handle) ([]descriptor.Handle, error) {
	p, err := d.pool(pool)
	if err != nil {
		return nil, err
	}
	dsl := make([]*DescriptorSetLayout, len(layouts))
	for i, h := range layouts {
		if dsl[i], err = d.layout(h); err != nil {
			return nil, err
		}
	}
	sets, err := p.Allocate(dsl...)
	if err != nil {
		return nil, err
	}
	ret := make([]descriptor.Handle, len(sets))
	for i, s := range sets {
		ret[i] = d.handles.put(s)
	}
	return ret, nil
}

func (d *Driver) UpdateDescriptorSets(writes []descriptor.WriteRecord) {
	touched := make(map[*DescriptorSet]bool)
	var order []*DescriptorSet
	for _, w := range writes {
		set, err := d.Set(w.Set)
		if err != nil {
			log.Printf("dropping descriptor write: %v", err)
			continue
		}
		if err := d.queueWrite(set, w); err != nil {
			log.Printf("dropping descriptor write to binding %d: %v", w.Binding, err)
			continue
		}
		if !touched[set] {
			touched[set] = true
			order = append(order, set)
		}
	}
	for _, s := range order {
		s.Write()
	}
}

func (d *Driver) queueWrite(set *DescriptorSet, w descriptor.WriteRecord) error {
	dtype := vk.DescriptorType(w.Type)
	switch info := w.Info.(type) {
	case descriptor.BufferInfo:
		b, err := d.buffer(info.Buffer)
		if err != nil {
			return err
		}
		set.AddBuffer(w.Binding, w.Element, dtype, b.buffer.DSInfo(info.Offset, info.Range))
	case descriptor.ImageInfo:
		var sampler vk.Sampler
		var view vk.ImageView
		if info.Sampler != descriptor.NullHandle {
			o, err := d.external(info.Sampler)
			if err != nil {
				return err
			}
			s, ok := o.(vk.Sampler)
			if !ok {
				return errors.Errorf("handle %d is not a sampler", info.Sampler)
			}
			sampler = s
		}
		if info.View != descriptor.NullHandle {
			o, err := d.external(info.View)
			if err != nil {
				return err
			}
			v, ok := o.(vk.ImageView)
			if !ok {
				return errors.Errorf("handle %d is not an image view", info.View)
			}
			view = v
		}
		set.AddImage(w.Binding, w.Element, dtype, vk.ImageLayout(info.Layout), view, sampler)
	case descriptor.TexelBufferView:
		o, err := d.external(info.View)
		if err != nil {
			return err
		}
		v, ok := o.(vk.BufferView)
		if !ok {
			return errors.Errorf("handle %d is not a buffer view", info.View)
		}
		set.AddTexelBufferView(w.Binding, w.Element, dtype, v)
	default:
		return errors.Errorf("unsupported write info %T", w.Info)
	}
	return nil
}

func (d *Driver) CreateBuffer(size uint64, usage descriptor.BufferUsage) (descriptor.Handle, error) {
	b, err := d.Device.CreateBuffer(size, usage)
	if err != nil {
		return descriptor.NullHandle, err
	}
	db, err := d.bindMemory(b)
	if err != nil {
		b.Destroy()
		return descriptor.NullHandle, err
	}
	return d.handles.put(db), nil
}

func (d *Driver) bindMemory(b *Buffer) (*driverBuffer, error) {
	ar := b.AllocationRequirements()

	if d.options.ArenaSize == 0 {
		mem, err := d.Device.Allocate(ar.Size, ar.MemoryTypeBits, HostVisibleCoherent)
		if err != nil {
			return nil, err
		}
		if err := b.Bind(mem, 0); err != nil {
			mem.Destroy()
			return nil, errors.Wrap(err, "bind buffer memory")
		}
		return &driverBuffer{buffer: b, memory: mem}, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shared == nil {
		mem, err := d.Device.Allocate(d.options.ArenaSize, ar.MemoryTypeBits, HostVisibleCoherent)
		if err != nil {
			return nil, err
		}
		d.shared = mem
		d.allocator = &LinearAllocator{Size: d.options.ArenaSize}
	}
	a := d.allocator.Allocate(ar.Size, ar.Alignment)
	if a == nil {
		return nil, errors.Errorf("buffer arena exhausted: %d bytes requested, %d of %d in use", ar.Size, d.allocator.Used(), d.allocator.Size)
	}
	if err := b.Bind(d.shared, a.Offset); err != nil {
		d.allocator.Free(a)
		return nil, errors.Wrap(err, "bind buffer memory")
	}
	return &driverBuffer{buffer: b, memory: d.shared, alloc: a}, nil
}

func (d *Driver) MapMemory(buffer descriptor.Handle, offset, size uint64) ([]byte, error) {
	b, err := d.buffer(buffer)
	if err != nil {
		return nil, err
	}
	if offset+size > b.buffer.Size {
		return nil, errors.Errorf("map range %d+%d exceeds buffer size %d", offset, size, b.buffer.Size)
	}
	return b.memory.MapRange(b.base()+offset, size)
}

func (d *Driver) UnmapMemory(buffer descriptor.Handle) {
	if b, err := d.buffer(buffer); err == nil {
		b.memory.Unmap()
	}
}

func (d *Driver) Destroy(h descriptor.Handle) {
	o, ok := d.handles.remove(h)
	if !ok {
		return
	}
	switch t := o.(type) {
	case *DescriptorPool:
		t.Destroy()
	case *DescriptorSetLayout:
		t.Destroy()
	case *DescriptorSet:
		t.Destroy()
	case *driverBuffer:
		t.buffer.Destroy()
		if t.alloc != nil {
			d.mu.Lock()
			d.allocator.Free(t.alloc)
			d.mu.Unlock()
		} else {
			t.memory.Destroy()
		}
	}
}

// Close frees the shared buffer arena. Every buffer must have been
// destroyed first.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shared != nil {
		if n := d.allocator.Used(); n > 0 {
			log.Printf("closing driver with %d bytes of buffers still allocated", n)
		}
		if d.shared.IsMapped() {
			d.shared.Unmap()
		}
		d.shared.Destroy()
		d.shared = nil
		d.allocator = nil
	}
}

// Set returns the descriptor set behind a handle.
func (d *Driver) Set(h descriptor.Handle) (*DescriptorSet, error) {
	o, ok := d.handles.get(h)
	if !ok {
		return nil, errors.Errorf("unknown handle %d", h)
	}
	s, ok := o.(*DescriptorSet)
	if !ok {
		return nil, errors.Errorf("handle %d is not a descriptor set", h)
	}
	return s, nil
}

// Layout returns the descriptor set layout behind a handle.
func (d *Driver) Layout(h descriptor.Handle) (*DescriptorSetLayout, error) {
	return d.layout(h)
}

// Buffer returns the buffer behind a handle.
func (d *Driver) Buffer(h descriptor.Handle) (*Buffer, error) {
	b, err := d.buffer(h)
	if err != nil {
		return nil, err
	}
	return b.buffer, nil
}

func (d *Driver) pool(h descriptor.Handle) (*DescriptorPool, error) {
	o, ok := d.handles.get(h)
	if !ok {
		return nil, errors.Errorf("unknown handle %d", h)
	}
	p, ok := o.(*DescriptorPool)
	if !ok {
		return nil, errors.Errorf("handle %d is not a descriptor pool", h)
	}
	return p, nil
}

func (d *Driver) layout(h descriptor.Handle) (*DescriptorSetLayout, error) {
	o, ok := d.handles.get(h)
	if !ok {
		return nil, errors.Errorf("unknown handle %d", h)
	}
	l, ok := o.(*DescriptorSetLayout)
	if !ok {
		return nil, errors.Errorf("handle %d is not a descriptor set layout", h)
	}
	return l, nil
}

func (d *Driver) buffer(h descriptor.Handle) (*driverBuffer, error) {
	o, ok := d.handles.get(h)
	if !ok {
		return nil, errors.Errorf("unknown handle %d", h)
	}
	b, ok := o.(*driverBuffer)
	if !ok {
		return nil, errors.Errorf("handle %d is not a buffer", h)
	}
	return b, nil
}

func (d *Driver) external(h descriptor.Handle) (interface{}, error) {
	o, ok := d.handles.get(h)
	if !ok {
		return nil, errors.Errorf("unknown handle %d", h)
	}
	e, ok := o.(external)
	if !ok {
		return nil, errors.Errorf("handle %d is not a registered object", h)
	}
	return e.object, nil
}
