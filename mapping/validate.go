package mapping

import (
	"fmt"
	"go.uber.org/multierr"
)

// Validate checks a descriptor table without registering it. Every problem
// found is reported; the returned error matches ErrInvalidDescriptor and/or
// ErrAmbiguousNamespace with errors.Is.
func Validate(descs []Descriptor) error {
	_, _, err := prepare(descs)
	return err
}

// prepare validates descs and returns a copy with zero select masks replaced
// by their effective value, along with the top address of each address space.
func prepare(descs []Descriptor) (eff []Descriptor, tops map[string]uint64, err error) {
	eff = make([]Descriptor, len(descs))
	copy(eff, descs)

	index := BuildNamespaceIndex(eff)

	for i := range eff {
		if !validNamespace(eff[i].AddrSpace) {
			err = multierr.Append(err, &DescriptorError{
				Index:  i,
				Reason: fmt.Sprintf("address space name %q must be at most %d characters of a-z, A-Z, 0-9, _ or -", eff[i].AddrSpace, maxNamespaceLen),
			})
		}
	}

	names := index.Names()
	for _, name := range names {
		for _, other := range names {
			if name != other && shadows(name, other) {
				err = multierr.Append(err, &NamespaceError{Name: name, Other: other})
			}
		}
	}

	tops = make(map[string]uint64, index.Len())
	for _, name := range names {
		tops[name] = topAddress(eff, index.Lookup(name))
	}

	for i := range eff {
		d := &eff[i]
		if d.Select == 0 {
			if d.Len != 0 && !isPowerOfTwo(d.Len) {
				err = multierr.Append(err, &DescriptorError{
					Index:  i,
					Reason: fmt.Sprintf("len $%x must be a power of two when select is zero", d.Len),
				})
				continue
			}
			if d.Len != 0 {
				d.Select = tops[d.AddrSpace] &^ ((d.Len - 1) | d.Disconnect)
			}
		}
		if d.Start&^d.Select != 0 {
			err = multierr.Append(err, &DescriptorError{
				Index:  i,
				Reason: fmt.Sprintf("start $%x has bits outside select $%x", d.Start, d.Select),
			})
		}
	}

	if err != nil {
		return nil, nil, err
	}
	return eff, tops, nil
}

// topAddress finds the highest address reachable in an address space, rounded
// up so that every bit below the highest one is set.
func topAddress(descs []Descriptor, indices []int) uint64 {
	top := uint64(1)
	for _, i := range indices {
		d := &descs[i]
		switch {
		case d.Select != 0:
			top |= d.Start | d.Select
		case d.Len != 0:
			top |= d.Start + d.Len - 1
		default:
			// claims the entire space
			return ^uint64(0)
		}
	}
	return fillBitsDown(top)
}
