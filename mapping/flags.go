package mapping

import (
	"fmt"
	"strings"
)

// Flags carries the advisory metadata of a Descriptor. None of it takes part
// in address decoding.
type Flags uint64

const (
	// FlagConst marks a region the frontend never modifies once the game is loaded.
	FlagConst Flags = 1 << 0
	// FlagBigEndian marks a region holding big-endian data.
	FlagBigEndian Flags = 1 << 1
	// FlagSystemRAM marks the system's main RAM.
	FlagSystemRAM Flags = 1 << 2
	// FlagSaveRAM marks battery-backed cartridge RAM.
	FlagSaveRAM Flags = 1 << 3
	// FlagVideoRAM marks video RAM.
	FlagVideoRAM Flags = 1 << 4

	// All accesses are aligned to their own size or N, whichever is smaller.
	FlagAlign2 Flags = 1 << 16
	FlagAlign4 Flags = 2 << 16
	FlagAlign8 Flags = 3 << 16

	// All accesses are at least N bytes wide.
	FlagMinSize2 Flags = 1 << 24
	FlagMinSize4 Flags = 2 << 24
	FlagMinSize8 Flags = 3 << 24

	alignMask   Flags = 3 << 16
	minSizeMask Flags = 3 << 24
)

var flagNames = []struct {
	name string
	flag Flags
	mask Flags
}{
	{"const", FlagConst, FlagConst},
	{"bigendian", FlagBigEndian, FlagBigEndian},
	{"system_ram", FlagSystemRAM, FlagSystemRAM},
	{"save_ram", FlagSaveRAM, FlagSaveRAM},
	{"video_ram", FlagVideoRAM, FlagVideoRAM},
	{"align2", FlagAlign2, alignMask},
	{"align4", FlagAlign4, alignMask},
	{"align8", FlagAlign8, alignMask},
	{"minsize2", FlagMinSize2, minSizeMask},
	{"minsize4", FlagMinSize4, minSizeMask},
	{"minsize8", FlagMinSize8, minSizeMask},
}

// Has reports whether every bit of mask is set in f.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Align returns the alignment hint in bytes; 1 when no hint is given.
func (f Flags) Align() int { return 1 << ((f & alignMask) >> 16) }

// MinSize returns the minimum access size hint in bytes; 1 when no hint is given.
func (f Flags) MinSize() int { return 1 << ((f & minSizeMask) >> 24) }

func (f Flags) String() string {
	var sb strings.Builder
	known := Flags(0)
	for _, n := range flagNames {
		known |= n.mask
		if f&n.mask != n.flag {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(n.name)
	}
	if rest := f &^ known; rest != 0 {
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(fmt.Sprintf("$%x", uint64(rest)))
	}
	return sb.String()
}

// ParseFlag maps a flag name as printed by Flags.String back to its value.
func ParseFlag(name string) (Flags, error) {
	for _, n := range flagNames {
		if strings.EqualFold(n.name, name) {
			return n.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown memory descriptor flag %q", name)
}
