package mapping

// Table is a validated, immutable descriptor table. All methods are safe for
// concurrent use.
type Table struct {
	descs []Descriptor
	index NamespaceIndex
	tops  map[string]uint64
}

var emptyTable = &Table{}

// Register validates descs and builds a Table from a private copy of them.
// No table is returned unless every descriptor is acceptable.
func Register(descs []Descriptor) (*Table, error) {
	eff, tops, err := prepare(descs)
	if err != nil {
		return nil, err
	}

	return &Table{
		descs: eff,
		index: BuildNamespaceIndex(eff),
		tops:  tops,
	}, nil
}

// Len returns the number of descriptors.
func (t *Table) Len() int { return len(t.descs) }

// Descriptor returns descriptor i with its effective select mask.
func (t *Table) Descriptor(i int) Descriptor { return t.descs[i] }

// Descriptors returns a copy of all descriptors in registration order.
func (t *Table) Descriptors() []Descriptor {
	out := make([]Descriptor, len(t.descs))
	copy(out, t.descs)
	return out
}

// Namespaces lists the registered address space names in sorted order.
func (t *Table) Namespaces() []string { return t.index.Names() }

// HasNamespace reports whether any descriptor uses the address space name.
func (t *Table) HasNamespace(ns string) bool { return t.index.Has(ns) }

// Indices returns the descriptor indices of an address space in registration
// order. The caller must not modify the returned slice.
func (t *Table) Indices(ns string) []int { return t.index.Lookup(ns) }

// Each calls fn for every descriptor of an address space in registration
// order until fn returns false.
func (t *Table) Each(ns string, fn func(i int, d Descriptor) bool) {
	for _, i := range t.index.Lookup(ns) {
		if !fn(i, t.descs[i]) {
			return
		}
	}
}

// TopAddress returns the highest address of an address space as inferred from
// its descriptors. Frontends use top+1 as the size of the space.
func (t *Table) TopAddress(ns string) (top uint64, ok bool) {
	top, ok = t.tops[ns]
	return
}

// Find returns the indices of descriptors whose flags include every bit of
// mask, in registration order.
func (t *Table) Find(mask Flags) []int {
	var found []int
	for i := range t.descs {
		if t.descs[i].Flags.Has(mask) {
			found = append(found, i)
		}
	}
	return found
}
