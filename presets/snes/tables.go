// Package snes builds memory descriptor tables for the SNES A bus and the
// SPC700's private bus.
package snes

import "memmap/mapping"

const (
	bankSize     = 0x1_0000
	halfBankSize = 0x8000
	exHiROMSplit = 0x40_0000
)

// SPC700 is the address space name of the sound CPU's 64KiB RAM.
const SPC700 = "S"

// WRAM maps the 128KiB work RAM at $7E:0000-$7F:FFFF. It must come before
// any ROM mapping that would also claim banks $7E-$7F.
func WRAM(wram mapping.BufferID) []mapping.Descriptor {
	return []mapping.Descriptor{
		{Flags: mapping.FlagSystemRAM, Buffer: wram, Start: 0x7E_0000, Select: 0xFE_0000, Len: 0x2_0000},
	}
}

// WRAMMirrors maps the first 8KiB of WRAM into $0000-$1FFF of banks $00-$3F
// and $80-$BF.
func WRAMMirrors(wram mapping.BufferID) []mapping.Descriptor {
	return []mapping.Descriptor{
		{Flags: mapping.FlagSystemRAM, Buffer: wram, Start: 0x00_0000, Select: 0xC0_E000, Len: 0x2000},
		{Flags: mapping.FlagSystemRAM, Buffer: wram, Start: 0x80_0000, Select: 0xC0_E000, Len: 0x2000},
	}
}

// WRAMMirrorsAlt is WRAMMirrors expressed as a single descriptor with
// disconnected address lines.
func WRAMMirrorsAlt(wram mapping.BufferID) []mapping.Descriptor {
	return []mapping.Descriptor{
		{Flags: mapping.FlagSystemRAM, Buffer: wram, Select: 0x40_E000, Disconnect: ^uint64(0x1FFF)},
	}
}

// ARAM maps the SPC700 RAM into its own address space.
func ARAM(aram mapping.BufferID) []mapping.Descriptor {
	return []mapping.Descriptor{
		{Flags: mapping.FlagSystemRAM, Buffer: aram, AddrSpace: SPC700, Len: 0x1_0000},
	}
}

// LoROMSRAM maps cartridge SRAM into the lower halves of banks $70-$7D and
// $F0-$FF, 32KiB per bank.
func LoROMSRAM(sram mapping.BufferID, size uint64) []mapping.Descriptor {
	var descs []mapping.Descriptor
	for b := uint64(0); b*halfBankSize < size && b < 0x10; b++ {
		bank := b * bankSize
		descs = append(descs, mapping.Descriptor{
			Flags:  mapping.FlagSaveRAM,
			Buffer: sram,
			Offset: b * halfBankSize,
			Start:  0x70_0000 + bank,
			Select: 0x7F_8000,
			Len:    minU64(halfBankSize, size-b*halfBankSize),
		})
	}
	return descs
}

// HiROMSRAM maps cartridge SRAM into $6000-$7FFF of banks $20-$3F and $A0-$BF.
// Every bank sees the same first 8KiB.
func HiROMSRAM(sram mapping.BufferID, size uint64) []mapping.Descriptor {
	if size == 0 {
		return nil
	}
	return []mapping.Descriptor{
		{Flags: mapping.FlagSaveRAM, Buffer: sram, Start: 0x20_6000, Select: 0x60_E000, Disconnect: 0x9F_0000, Len: minU64(size, 0x2000)},
	}
}

// LoROM maps ROM into the upper half of every bank outside WRAM: $00-$7D
// and $80-$FF, 32KiB per bank. Banks past the end of a smaller ROM repeat
// it, so $40-$7D see the same ROM as $00-$3D for a 2MiB image.
func LoROM(rom mapping.BufferID, size uint64) []mapping.Descriptor {
	banks := (size + halfBankSize - 1) / halfBankSize
	if banks == 0 {
		return nil
	}

	bank := func(b, sel uint64) mapping.Descriptor {
		off := ((b & 0x7F) % banks) * halfBankSize
		return mapping.Descriptor{
			Flags:  mapping.FlagConst,
			Buffer: rom,
			Offset: off,
			Start:  b*bankSize | 0x8000,
			Select: sel,
			Len:    minU64(halfBankSize, size-off),
		}
	}

	descs := make([]mapping.Descriptor, 0, 0x80)
	// $00-$7D also select $80-$FD:
	for b := uint64(0); b < 0x7E; b++ {
		descs = append(descs, bank(b, 0x7F_8000))
	}
	// $7E-$7F are WRAM, but their FastROM twins are not:
	descs = append(descs, bank(0xFE, 0xFF_8000), bank(0xFF, 0xFF_8000))
	return descs
}

// HiROM maps up to 4MiB of ROM linearly into banks $40-$7F and $C0-$FF and
// its upper bank halves into $00-$3F and $80-$BF. Smaller ROMs repeat.
func HiROM(rom mapping.BufferID, size uint64) []mapping.Descriptor {
	size = minU64(size, exHiROMSplit)
	if size == 0 {
		return nil
	}
	descs := []mapping.Descriptor{
		{Flags: mapping.FlagConst, Buffer: rom, Start: 0x40_0000, Select: 0x40_0000, Len: size},
	}
	if size <= halfBankSize {
		// the whole image fits below $8000, so upper halves repeat it from 0:
		return append(descs, mapping.Descriptor{
			Flags: mapping.FlagConst, Buffer: rom, Start: 0x00_8000, Select: 0x40_8000, Len: size,
		})
	}
	// offset is added after folding, so fold into what remains above it:
	return append(descs, mapping.Descriptor{
		Flags: mapping.FlagConst, Buffer: rom, Offset: halfBankSize, Start: 0x00_8000, Select: 0x40_8000, Len: size - halfBankSize,
	})
}

// ExHiROM maps up to 8MiB of ROM; the first 4MiB live at $C0-$FF.
func ExHiROM(rom mapping.BufferID) []mapping.Descriptor {
	return []mapping.Descriptor{
		{Flags: mapping.FlagConst, Buffer: rom, Offset: 0, Start: 0xC0_0000, Select: 0xC0_0000, Len: exHiROMSplit},
		{Flags: mapping.FlagConst, Buffer: rom, Offset: exHiROMSplit, Start: 0x40_0000, Select: 0xC0_0000, Len: exHiROMSplit},
		{Flags: mapping.FlagConst, Buffer: rom, Offset: 0x8000, Start: 0x80_8000, Select: 0xC0_8000, Len: exHiROMSplit},
		{Flags: mapping.FlagConst, Buffer: rom, Offset: exHiROMSplit + 0x8000, Start: 0x00_8000, Select: 0xC0_8000, Len: exHiROMSplit},
	}
}

// AddressSpace24 declares the A bus as 24 bits wide. It must be last.
func AddressSpace24() []mapping.Descriptor {
	return []mapping.Descriptor{
		{Select: 0xFF_FFFF},
	}
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
