package memory

import (
	"fmt"
	"memmap/mapping"
)

// Arena is the buffer table descriptors refer to by mapping.BufferID.
type Arena struct {
	buffers []*Buffer
}

// Add appends b and returns its ID. IDs start at 1 so that the zero value of
// a descriptor's Buffer field stays mapping.NoBuffer.
func (a *Arena) Add(b *Buffer) mapping.BufferID {
	a.buffers = append(a.buffers, b)
	return mapping.BufferID(len(a.buffers))
}

// Get returns the buffer for id, or nil for mapping.NoBuffer and unknown IDs.
func (a *Arena) Get(id mapping.BufferID) *Buffer {
	if id <= mapping.NoBuffer || int(id) > len(a.buffers) {
		return nil
	}
	return a.buffers[id-1]
}

// Lookup finds a buffer ID by buffer name.
func (a *Arena) Lookup(name string) (mapping.BufferID, error) {
	for i, b := range a.buffers {
		if b.name == name {
			return mapping.BufferID(i + 1), nil
		}
	}
	return mapping.NoBuffer, fmt.Errorf("memory: no buffer named %q", name)
}

func (a *Arena) Len() int { return len(a.buffers) }

// Check verifies that every backed descriptor refers to a buffer in the arena.
func (a *Arena) Check(t *mapping.Table) error {
	for i := 0; i < t.Len(); i++ {
		d := t.Descriptor(i)
		if d.Buffer != mapping.NoBuffer && a.Get(d.Buffer) == nil {
			return fmt.Errorf("memory: descriptor %d refers to unknown buffer %d", i, d.Buffer)
		}
	}
	return nil
}
