package snes

import (
	"fmt"
	"memmap/mapping"
	"memmap/memory"
)

// System is a SNES memory map with its backing buffers, ready for inspection.
type System struct {
	Arena   memory.Arena
	Session mapping.Session
	Memory  *memory.Inspector

	Mode   MapMode
	Header Header

	ROM  *memory.Buffer
	WRAM *memory.Buffer
	SRAM *memory.Buffer
	ARAM *memory.Buffer
}

// NewSystemForROM detects the map mode and SRAM size from the cartridge
// header and builds the matching System.
func NewSystemForROM(rom []byte) (*System, error) {
	mode, h := DetectMapMode(rom)
	q, err := NewSystem(rom, mode, uint64(h.DeclaredRAMSize()))
	if err != nil {
		return nil, err
	}
	q.Header = h
	return q, nil
}

// NewSystem allocates WRAM, SRAM and ARAM, wraps rom and registers the
// descriptor table for mode.
func NewSystem(rom []byte, mode MapMode, sramSize uint64) (q *System, err error) {
	q = &System{
		Mode: mode,
		ROM:  memory.NewBuffer("rom", rom),
		WRAM: memory.NewBufferSize("wram", 0x2_0000),
		ARAM: memory.NewBufferSize("aram", 0x1_0000),
	}
	if sramSize > 0 {
		q.SRAM = memory.NewBufferSize("sram", int(sramSize))
	}

	descs, err := q.CreateMap()
	if err != nil {
		return nil, err
	}
	if err = q.Session.Register(descs); err != nil {
		return nil, err
	}

	q.Memory = memory.NewInspector(&q.Session, &q.Arena)
	return q, nil
}

// CreateMap adds the system's buffers to its arena and returns the descriptor
// table, ordered so that WRAM wins over ROM where the two overlap.
func (q *System) CreateMap() (descs []mapping.Descriptor, err error) {
	q.Arena = memory.Arena{}
	rom := q.Arena.Add(q.ROM)
	wram := q.Arena.Add(q.WRAM)
	aram := q.Arena.Add(q.ARAM)

	descs = append(descs, WRAM(wram)...)
	descs = append(descs, WRAMMirrors(wram)...)

	if q.SRAM != nil {
		sram := q.Arena.Add(q.SRAM)
		switch q.Mode {
		case ModeLoROM:
			descs = append(descs, LoROMSRAM(sram, q.SRAM.Size())...)
		default:
			descs = append(descs, HiROMSRAM(sram, q.SRAM.Size())...)
		}
	}

	switch q.Mode {
	case ModeLoROM:
		descs = append(descs, LoROM(rom, q.ROM.Size())...)
	case ModeHiROM:
		descs = append(descs, HiROM(rom, q.ROM.Size())...)
	case ModeExHiROM:
		descs = append(descs, ExHiROM(rom)...)
	default:
		return nil, fmt.Errorf("snes: unsupported map mode %v", q.Mode)
	}

	descs = append(descs, ARAM(aram)...)
	descs = append(descs, AddressSpace24()...)
	return
}
