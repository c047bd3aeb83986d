package mapping

import (
	"golang.org/x/exp/slices"
	"strings"
)

const maxNamespaceLen = 8

// NamespaceIndex groups descriptor indices by address space name, keeping
// registration order inside each group.
type NamespaceIndex struct {
	byName map[string][]int
}

func BuildNamespaceIndex(descs []Descriptor) NamespaceIndex {
	x := NamespaceIndex{byName: make(map[string][]int)}
	for i := range descs {
		name := descs[i].AddrSpace
		x.byName[name] = append(x.byName[name], i)
	}
	return x
}

// Lookup returns the descriptor indices of the named address space in
// registration order. An unknown name has no descriptors.
func (x NamespaceIndex) Lookup(name string) []int {
	return x.byName[name]
}

// Has reports whether any descriptor was registered under name.
func (x NamespaceIndex) Has(name string) bool {
	_, ok := x.byName[name]
	return ok
}

// Names lists the address space names in sorted order.
func (x NamespaceIndex) Names() []string {
	names := make([]string, 0, len(x.byName))
	for name := range x.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (x NamespaceIndex) Len() int { return len(x.byName) }

func validNamespace(name string) bool {
	if len(name) > maxNamespaceLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

func isHexDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

// shadows reports whether other can be spelled as name followed by one or
// more uppercase hex digits, which makes "name"+address text ambiguous.
func shadows(name, other string) bool {
	return strings.HasPrefix(other, name) && isHexDigits(other[len(name):])
}
