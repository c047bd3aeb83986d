package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// HexUint is a uint64 written in JSON either as a number or as a string in
// hex ("0x7E0000", "$7E0000") or decimal.
type HexUint uint64

func (h *HexUint) UnmarshalJSON(j []byte) (err error) {
	var n uint64
	if err = json.Unmarshal(j, &n); err == nil {
		*h = HexUint(n)
		return
	}

	var s string
	err = json.Unmarshal(j, &s)
	if err != nil {
		return
	}
	v, err := parseUint(s)
	if err != nil {
		return
	}
	*h = HexUint(v)
	return
}

func (h HexUint) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%X", uint64(h)))
}

func parseUint(s string) (uint64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		return strconv.ParseUint(s[2:], 16, 64)
	case strings.HasPrefix(s, "$"):
		return strconv.ParseUint(s[1:], 16, 64)
	case strings.HasPrefix(s, "~"):
		// complement, e.g. "~0x1FFF" for everything above 8KiB
		v, err := parseUint(s[1:])
		return ^v, err
	default:
		return strconv.ParseUint(s, 10, 64)
	}
}
