package memory

// Buffer is the backing storage of one or more memory descriptors: a ROM or
// RAM chip, typically owned by the core and shared with the frontend.
type Buffer struct {
	name string
	data []byte
}

func NewBuffer(name string, data []byte) *Buffer {
	return &Buffer{name, data}
}

// NewBufferSize allocates a zeroed buffer of size bytes.
func NewBufferSize(name string, size int) *Buffer {
	return &Buffer{name, make([]byte, size)}
}

func (m *Buffer) Name() string { return m.name }

func (m *Buffer) Read(offs uint64) byte {
	return m.data[offs]
}

func (m *Buffer) Write(offs uint64, value byte) {
	m.data[offs] = value
}

func (m *Buffer) Size() uint64 {
	return uint64(len(m.data))
}

func (m *Buffer) Clear() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// Bytes exposes the underlying storage without copying.
func (m *Buffer) Bytes() []byte {
	return m.data
}
