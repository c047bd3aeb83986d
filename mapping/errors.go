package mapping

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDescriptor  = errors.New("invalid memory descriptor")
	ErrAmbiguousNamespace = errors.New("ambiguous address space name")
	ErrBadAddress         = errors.New("malformed address")
)

// DescriptorError reports a rejected descriptor by its table index.
type DescriptorError struct {
	Index  int
	Reason string
}

func (e *DescriptorError) Unwrap() error { return ErrInvalidDescriptor }
func (e *DescriptorError) Error() string {
	return fmt.Sprintf("descriptor %d: %s: %v", e.Index, e.Reason, ErrInvalidDescriptor)
}

// NamespaceError reports a pair of address space names where Name followed by
// hex digits spells Other.
type NamespaceError struct {
	Name  string
	Other string
}

func (e *NamespaceError) Unwrap() error { return ErrAmbiguousNamespace }
func (e *NamespaceError) Error() string {
	return fmt.Sprintf("address space %q is %q followed by hex digits: %v", e.Other, e.Name, ErrAmbiguousNamespace)
}
