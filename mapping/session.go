package mapping

import (
	"go.uber.org/atomic"
	"log"
)

// Session holds the descriptor table currently registered by a core.
// Registering again replaces the whole table; readers keep using whichever
// table they loaded.
type Session struct {
	current    atomic.Pointer[Table]
	generation atomic.Uint64
}

// Register validates descs and, if they are acceptable, makes them the
// current table. On error the previous table stays in place.
func (s *Session) Register(descs []Descriptor) error {
	t, err := Register(descs)
	if err != nil {
		return err
	}

	s.current.Store(t)
	gen := s.generation.Inc()
	log.Printf("mapping: registered %d descriptors in %d address spaces (generation %d)\n", t.Len(), t.index.Len(), gen)
	return nil
}

// Table returns the current table; before the first registration this is an
// empty table in which every address is unmapped.
func (s *Session) Table() *Table {
	if t := s.current.Load(); t != nil {
		return t
	}
	return emptyTable
}

// Registered reports whether a table has been registered.
func (s *Session) Registered() bool { return s.current.Load() != nil }

// Generation counts successful registrations.
func (s *Session) Generation() uint64 { return s.generation.Load() }

// Clear drops the current table.
func (s *Session) Clear() {
	s.current.Store(nil)
	s.generation.Inc()
}
