package vkbind

import (
	"sync"

	"github.com/celer/vkbind/descriptor"
)

// handleTable maps descriptor handles to the native wrappers they stand
// for.
type handleTable struct {
	mu      sync.Mutex
	next    descriptor.Handle
	objects map[descriptor.Handle]interface{}
}

func (t *handleTable) put(o interface{}) descriptor.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.objects == nil {
		t.objects = make(map[descriptor.Handle]interface{})
	}
	t.next++
	t.objects[t.next] = o
	return t.next
}

func (t *handleTable) get(h descriptor.Handle) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.objects[h]
	return o, ok
}

func (t *handleTable) remove(h descriptor.Handle) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.objects[h]
	if ok {
		delete(t.objects, h)
	}
	return o, ok
}

func (t *handleTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.objects)
}
