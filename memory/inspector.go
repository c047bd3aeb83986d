package memory

import (
	"errors"
	"fmt"
	"io"
	"memmap/mapping"
)

var (
	ErrUnmapped   = errors.New("address is not mapped")
	ErrUnbacked   = errors.New("address has no backing buffer")
	ErrOutOfRange = errors.New("address maps outside its buffer")
	ErrReadOnly   = errors.New("address is read-only")
)

// AccessError locates a failed access in the emulated address space.
type AccessError struct {
	Space   string
	Address uint64
	wrapped error
}

func (e *AccessError) Unwrap() error { return e.wrapped }
func (e *AccessError) Error() string {
	return fmt.Sprintf("memory: %s: %v", mapping.FormatAddress(e.Space, e.Address), e.wrapped)
}

// TableSource supplies the descriptor table to resolve against;
// *mapping.Session implements it.
type TableSource interface {
	Table() *mapping.Table
}

// Inspector reads and writes emulated memory byte by byte through a
// descriptor table, the way cheat search and RAM watch tools see it.
type Inspector struct {
	tables TableSource
	arena  *Arena

	// Logger, when set, gets one committed line per successful write.
	Logger WriteLogger
}

// WriteLogger buffers a trace line until Commit; *util.CommitLogger
// implements it.
type WriteLogger interface {
	io.Writer
	Commit()
}

func NewInspector(tables TableSource, arena *Arena) *Inspector {
	return &Inspector{tables: tables, arena: arena}
}

type location struct {
	buf   *Buffer
	offs  uint64
	flags mapping.Flags
}

func (m *Inspector) locate(t *mapping.Table, ns string, addr uint64) (loc location, err error) {
	mp, ok := t.Resolve(ns, addr)
	if !ok {
		err = &AccessError{ns, addr, ErrUnmapped}
		return
	}

	d := t.Descriptor(mp.Index)
	loc.flags = d.Flags
	loc.offs = mp.Offset
	loc.buf = m.arena.Get(d.Buffer)
	if loc.buf == nil {
		err = &AccessError{ns, addr, ErrUnbacked}
		return
	}
	if loc.offs >= loc.buf.Size() {
		err = &AccessError{ns, addr, ErrOutOfRange}
		return
	}
	return
}

func (m *Inspector) Peek(ns string, addr uint64) (byte, error) {
	loc, err := m.locate(m.tables.Table(), ns, addr)
	if err != nil {
		return 0, err
	}
	return loc.buf.Read(loc.offs), nil
}

func (m *Inspector) Poke(ns string, addr uint64, value byte) error {
	loc, err := m.locate(m.tables.Table(), ns, addr)
	if err != nil {
		return err
	}
	if loc.flags.Has(mapping.FlagConst) {
		return &AccessError{ns, addr, ErrReadOnly}
	}
	loc.buf.Write(loc.offs, value)
	m.trace(ns, addr, []byte{value})
	return nil
}

// Read copies n bytes starting at addr. Each byte is resolved on its own so a
// read may cross from one region into the next.
func (m *Inspector) Read(ns string, addr uint64, n int) ([]byte, error) {
	t := m.tables.Table()
	out := make([]byte, n)
	for i := range out {
		loc, err := m.locate(t, ns, addr+uint64(i))
		if err != nil {
			return out[:i], err
		}
		out[i] = loc.buf.Read(loc.offs)
	}
	return out, nil
}

// Write stores p starting at addr. Nothing is written unless every byte is
// mapped, backed and writable.
func (m *Inspector) Write(ns string, addr uint64, p []byte) error {
	t := m.tables.Table()
	locs := make([]location, len(p))
	for i := range p {
		loc, err := m.locate(t, ns, addr+uint64(i))
		if err != nil {
			return err
		}
		if loc.flags.Has(mapping.FlagConst) {
			return &AccessError{ns, addr + uint64(i), ErrReadOnly}
		}
		locs[i] = loc
	}
	for i, loc := range locs {
		loc.buf.Write(loc.offs, p[i])
	}
	m.trace(ns, addr, p)
	return nil
}

func (m *Inspector) trace(ns string, addr uint64, p []byte) {
	if m.Logger == nil {
		return
	}
	_, _ = fmt.Fprintf(m.Logger, "memory: write %s <- % x", mapping.FormatAddress(ns, addr), p)
	m.Logger.Commit()
}

// ReadU16 reads a 16-bit value in the byte order of the region holding addr.
func (m *Inspector) ReadU16(ns string, addr uint64) (uint16, error) {
	v, err := m.readWord(ns, addr, 2)
	return uint16(v), err
}

// ReadU32 reads a 32-bit value in the byte order of the region holding addr.
func (m *Inspector) ReadU32(ns string, addr uint64) (uint32, error) {
	v, err := m.readWord(ns, addr, 4)
	return uint32(v), err
}

func (m *Inspector) readWord(ns string, addr uint64, size int) (v uint64, err error) {
	t := m.tables.Table()
	first, err := m.locate(t, ns, addr)
	if err != nil {
		return
	}
	bigEndian := first.flags.Has(mapping.FlagBigEndian)

	for i := 0; i < size; i++ {
		var loc location
		loc, err = m.locate(t, ns, addr+uint64(i))
		if err != nil {
			return 0, err
		}
		b := uint64(loc.buf.Read(loc.offs))
		if bigEndian {
			v = v<<8 | b
		} else {
			v |= b << (8 * i)
		}
	}
	return
}
