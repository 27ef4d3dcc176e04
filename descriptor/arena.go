package descriptor

// Arena owns driver handles and destroys them in reverse creation order.
type Arena struct {
	driver  Driver
	handles []Handle
}

func NewArena(d Driver) *Arena {
	return &Arena{driver: d}
}

// Track registers h and returns it. Null handles are ignored.
func (a *Arena) Track(h Handle) Handle {
	if h != NullHandle {
		a.handles = append(a.handles, h)
	}
	return h
}

// Destroy destroys a single tracked handle ahead of the rest. It reports
// false if h is not owned by the arena.
func (a *Arena) Destroy(h Handle) bool {
	for i := len(a.handles) - 1; i >= 0; i-- {
		if a.handles[i] == h {
			a.handles = append(a.handles[:i], a.handles[i+1:]...)
			a.driver.Destroy(h)
			return true
		}
	}
	return false
}

// Owns reports whether h is tracked and not yet destroyed.
func (a *Arena) Owns(h Handle) bool {
	for _, t := range a.handles {
		if t == h {
			return true
		}
	}
	return false
}

// Len returns the number of live handles.
func (a *Arena) Len() int {
	return len(a.handles)
}

// Release destroys every handle, newest first. It is safe to call more
// than once.
func (a *Arena) Release() {
	for i := len(a.handles) - 1; i >= 0; i-- {
		a.driver.Destroy(a.handles[i])
	}
	a.handles = nil
}
