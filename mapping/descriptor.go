package mapping

import "fmt"

// BufferID refers to a backing buffer in a caller-owned buffer table.
// Valid IDs start at 1.
type BufferID int

// NoBuffer marks a descriptor with no backing storage, e.g. open bus or a
// trailing entry that only declares how large an address space is.
const NoBuffer BufferID = 0

// Descriptor declares how a bit pattern of an emulated address maps onto a
// byte of a backing buffer.
//
// To get from an emulated address to a buffer offset: subtract Start, clear
// Disconnect, fold into Len, add Offset.
type Descriptor struct {
	Flags Flags

	// Buffer is the backing storage, or NoBuffer.
	Buffer BufferID
	// Offset is added after decoding to locate the byte inside Buffer.
	Offset uint64

	// Start is where the mapping begins in the emulated address space.
	Start uint64
	// Select holds the address bits that must equal Start for this
	// descriptor to claim an address. Zero means every byte is mapped once.
	Select uint64
	// Disconnect holds address bits not wired to the chip.
	Disconnect uint64
	// Len is the size of the region; zero is unbounded.
	Len uint64

	// AddrSpace names the address space; empty is the default one.
	AddrSpace string
}

// Claims reports whether d owns addr.
func (d *Descriptor) Claims(addr uint64) bool {
	return addr&d.Select == d.Start&d.Select
}

// Translate converts a claimed address to an offset inside d's buffer.
func (d *Descriptor) Translate(addr uint64) uint64 {
	rel := addr - d.Start
	rel &^= d.Disconnect
	if d.Len != 0 && rel >= d.Len {
		rel = Fold(rel, d.Len)
	}
	return rel + d.Offset
}

func (d Descriptor) String() string {
	return fmt.Sprintf(
		"%q start=$%x select=$%x disconnect=$%x len=$%x offset=$%x buffer=%d flags=%s",
		d.AddrSpace,
		d.Start,
		d.Select,
		d.Disconnect,
		d.Len,
		d.Offset,
		d.Buffer,
		d.Flags,
	)
}
