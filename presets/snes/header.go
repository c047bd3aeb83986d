package snes

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// MapMode selects how cartridge ROM is laid out on the SNES A bus.
type MapMode int

const (
	ModeLoROM MapMode = iota
	ModeHiROM
	ModeExHiROM
)

func (m MapMode) String() string {
	switch m {
	case ModeLoROM:
		return "lorom"
	case ModeHiROM:
		return "hirom"
	case ModeExHiROM:
		return "exhirom"
	default:
		return fmt.Sprintf("MapMode(%d)", int(m))
	}
}

// ParseMapMode accepts the names printed by MapMode.String.
func ParseMapMode(s string) (MapMode, error) {
	for _, m := range []MapMode{ModeLoROM, ModeHiROM, ModeExHiROM} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown map mode %q", s)
}

// Header is the cartridge header found at $FFB0 in bank $00.
type Header struct {
	MakerCode          uint16
	GameCode           uint32
	Fixed1             [7]byte
	ExpansionRAMSize   byte
	SpecialVersion     byte
	CartridgeSubType   byte
	Title              [21]byte
	MapMode            byte
	CartridgeType      byte
	ROMSize            byte
	RAMSize            byte
	DestinationCode    byte
	Fixed2             byte
	MaskROMVersion     byte
	ComplementCheckSum uint16
	CheckSum           uint16
}

const headerSize = 0x30

// headerOffsets lists where each map mode puts $00:FFB0 in the ROM file.
var headerOffsets = []struct {
	mode   MapMode
	offset uint32
	nibble byte
}{
	{ModeLoROM, 0x007FB0, 0x0},
	{ModeHiROM, 0x00FFB0, 0x1},
	{ModeExHiROM, 0x40FFB0, 0x5},
}

// ReadHeader decodes the cartridge header at offset.
func ReadHeader(contents []byte, offset uint32) (h Header, err error) {
	if uint64(len(contents)) < uint64(offset)+headerSize {
		err = fmt.Errorf("ROM file not big enough to contain SNES header at $%06x", offset)
		return
	}

	err = readBinaryStruct(bytes.NewReader(contents[offset:offset+headerSize]), &h)
	return
}

// DetectMapMode finds the header whose checksum and complement agree and whose
// map mode byte names its own layout. ROMs with no such header are LoROM.
func DetectMapMode(contents []byte) (MapMode, Header) {
	for _, c := range headerOffsets {
		h, err := ReadHeader(contents, c.offset)
		if err != nil {
			continue
		}
		if h.CheckSum^h.ComplementCheckSum != 0xFFFF {
			continue
		}
		if h.MapMode&0xE0 != 0x20 || h.MapMode&0x0F != c.nibble {
			continue
		}
		return c.mode, h
	}

	h, _ := ReadHeader(contents, headerOffsets[0].offset)
	return ModeLoROM, h
}

// DeclaredROMSize is the ROM size the header declares.
func (h *Header) DeclaredROMSize() uint32 {
	return 1024 << h.ROMSize
}

// DeclaredRAMSize is the cartridge SRAM size the header declares; zero when absent.
func (h *Header) DeclaredRAMSize() uint32 {
	if h.RAMSize == 0 {
		return 0
	}
	return 1024 << h.RAMSize
}

func readBinaryStruct(b *bytes.Reader, into interface{}) (err error) {
	hv := reflect.ValueOf(into).Elem()
	for i := 0; i < hv.NumField(); i++ {
		f := hv.Field(i)
		err = binary.Read(b, binary.LittleEndian, f.Addr().Interface())
		if err != nil {
			return fmt.Errorf("error reading struct field %s of type %s: %w", hv.Type().Field(i).Name, hv.Type().Name(), err)
		}
	}
	return
}
