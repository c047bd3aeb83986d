package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

const maxAddressDigits = 16

// FormatAddress renders an address space name followed by the address in
// uppercase hex, e.g. "S1F00" or "7E0010" for the default space.
func FormatAddress(ns string, addr uint64) string {
	return ns + strings.ToUpper(strconv.FormatUint(addr, 16))
}

// ParseAddress splits text produced by FormatAddress back into an address
// space name and an address. The name is the registered one that leaves only
// uppercase hex digits behind; table validation guarantees at most one does.
// Text matching no other space is read as a default space address. Hex digits
// are uppercase everywhere: with spaces "" and "a" registered, "a10" must not
// also read as $A10.
func (t *Table) ParseAddress(s string) (ns string, addr uint64, err error) {
	for _, name := range t.index.Names() {
		if name == "" || len(s) <= len(name) || s[:len(name)] != name {
			continue
		}
		if rest := s[len(name):]; isHexDigits(rest) {
			addr, err = parseHex(rest)
			return name, addr, err
		}
	}

	if !isHexDigits(s) {
		return "", 0, fmt.Errorf("%q: %w", s, ErrBadAddress)
	}
	addr, err = parseHex(s)
	return "", addr, err
}

func parseHex(s string) (uint64, error) {
	if s == "" || len(s) > maxAddressDigits {
		return 0, fmt.Errorf("%q: %w", s, ErrBadAddress)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrBadAddress)
	}
	return v, nil
}
