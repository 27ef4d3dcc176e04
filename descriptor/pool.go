package descriptor

import (
	"fmt"

	"github.com/celer/vkbind/spirv"
)

// Pool is a built descriptor pool with one set per descriptor set index
// used by the pipeline. Everything it creates is destroyed by Release.
type Pool struct {
	driver  Driver
	arena   *Arena
	handle  Handle
	sizes   []PoolSize
	maxSets uint32
	sets    []*SetAggregate
}

func (p *Pool) Handle() Handle {
	return p.handle
}

// PoolSizes returns one entry per binding, in set then binding order.
func (p *Pool) PoolSizes() []PoolSize {
	return append([]PoolSize(nil), p.sizes...)
}

func (p *Pool) MaxSets() uint32 {
	return p.maxSets
}

// Sets returns the aggregates in ascending set order.
func (p *Pool) Sets() []*SetAggregate {
	return append([]*SetAggregate(nil), p.sets...)
}

// Set returns the aggregate for a set index.
func (p *Pool) Set(index uint32) (*SetAggregate, bool) {
	for _, s := range p.sets {
		if s.Set == index {
			return s, true
		}
	}
	return nil, false
}

// SetLayouts returns the layout handles in ascending set order.
func (p *Pool) SetLayouts() []Handle {
	ret := make([]Handle, len(p.sets))
	for i, s := range p.sets {
		ret[i] = s.Layout
	}
	return ret
}

// Lookup searches every set for a resource name.
func (p *Pool) Lookup(name string) (*SetAggregate, *spirv.ResourceBinding, bool) {
	for _, s := range p.sets {
		if b, ok := s.Lookup(name); ok {
			return s, b, true
		}
	}
	return nil, nil, false
}

// MakeBuffers creates a buffer for every structured binding, sized to hold
// all of its aligned fields. The buffers belong to the pool and are
// released with it unless released earlier.
func (p *Pool) MakeBuffers(d Driver) (map[string]*Buffer, error) {
	ret := make(map[string]*Buffer)
	var made []*Buffer
	for _, s := range p.sets {
		for _, b := range s.bindings {
			if !b.Structured() {
				continue
			}
			if _, dup := ret[b.Name]; dup {
				logger.Printf("set %d binding %d: buffer name %q already used, skipping", s.Set, b.Binding, b.Name)
				continue
			}
			size := b.Size()
			if size == 0 {
				logger.Printf("set %d binding %d: %q has no sized fields, skipping", s.Set, b.Binding, b.Name)
				continue
			}
			h, err := d.CreateBuffer(size, UsageFor(b.Type))
			if err != nil {
				for i := len(made) - 1; i >= 0; i-- {
					made[i].Release()
				}
				return nil, &AllocationError{Op: fmt.Sprintf("create buffer %q", b.Name), Err: err}
			}
			buf := &Buffer{
				Name:    b.Name,
				Set:     s.Set,
				Binding: b.Binding,
				Type:    b.Type,
				Size:    size,
				handle:  p.arena.Track(h),
				driver:  d,
				arena:   p.arena,
				fields:  b.Fields,
			}
			ret[b.Name] = buf
			made = append(made, buf)
		}
	}
	if len(made) > 0 {
		logger.Printf("created %d buffers", len(made))
	}
	return ret, nil
}

// UpdateSets resolves writes against every set and applies them in one
// driver call. It returns how many descriptors were written.
func (p *Pool) UpdateSets(d Driver, writes []NamedWrite) int {
	var records []WriteRecord
	for _, s := range p.sets {
		records = append(records, s.MakeWrites(writes)...)
	}
	if len(records) > 0 {
		d.UpdateDescriptorSets(records)
	}
	return len(records)
}

// Release destroys every object created through the pool, newest first.
func (p *Pool) Release() {
	p.arena.Release()
}
