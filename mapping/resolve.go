package mapping

// Mapping is the result of resolving an emulated address: the owning
// descriptor and the byte offset inside its buffer.
type Mapping struct {
	Index  int
	Offset uint64
}

// Resolve finds the first descriptor of address space ns that claims addr and
// translates addr into that descriptor's buffer. It returns false when nothing
// claims the address, which is the normal open bus case and not an error.
func (t *Table) Resolve(ns string, addr uint64) (Mapping, bool) {
	for _, i := range t.index.Lookup(ns) {
		d := &t.descs[i]
		if !d.Claims(addr) {
			continue
		}
		return Mapping{Index: i, Offset: d.Translate(addr)}, true
	}
	return Mapping{}, false
}
