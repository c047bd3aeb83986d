package mapwire

import (
	"errors"
	"google.golang.org/protobuf/encoding/protowire"
	"memmap/mapping"
	"reflect"
	"testing"
)

func TestMarshal_RoundTrip(t *testing.T) {
	descs := []mapping.Descriptor{
		{Flags: mapping.FlagSystemRAM, Buffer: 2, Start: 0x7E0000, Select: 0xFE0000, Len: 0x20000},
		{Flags: mapping.FlagConst | mapping.FlagAlign4, Buffer: 1, Offset: 0x8000, Start: 0x008000, Select: 0x408000, Len: 0x400000},
		{Buffer: 2, Select: 0x40E000, Disconnect: ^uint64(0x1FFF)},
		{Buffer: 3, AddrSpace: "S", Len: 0x10000},
		{Select: 0xFFFFFF},
		{},
	}

	got, err := Unmarshal(Marshal(descs))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, descs) {
		t.Errorf("round trip:\n got: %v\nwant: %v", got, descs)
	}
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	var msg []byte
	msg = protowire.AppendTag(msg, fieldStart, protowire.VarintType)
	msg = protowire.AppendVarint(msg, 0x7E0000)
	msg = protowire.AppendTag(msg, 15, protowire.BytesType)
	msg = protowire.AppendString(msg, "WRAM")
	msg = protowire.AppendTag(msg, fieldLen, protowire.VarintType)
	msg = protowire.AppendVarint(msg, 0x20000)

	var b []byte
	b = protowire.AppendTag(b, 9, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 42)
	b = protowire.AppendTag(b, fieldDescriptors, protowire.BytesType)
	b = protowire.AppendBytes(b, msg)

	got, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	want := []mapping.Descriptor{{Start: 0x7E0000, Len: 0x20000}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUnmarshal_Truncated(t *testing.T) {
	b := Marshal([]mapping.Descriptor{{Start: 0x7E0000, Select: 0xFE0000, AddrSpace: "WRAM"}})
	for n := 1; n < len(b); n++ {
		if _, err := Unmarshal(b[:n]); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Unmarshal(%d of %d bytes) error = %v, want ErrMalformed", n, len(b), err)
		}
	}
}

func TestUnmarshal_Empty(t *testing.T) {
	got, err := Unmarshal(nil)
	if err != nil || len(got) != 0 {
		t.Errorf("Unmarshal(nil) = %v, %v", got, err)
	}
}

func TestMarshalMap_RoundTrip(t *testing.T) {
	m := &Map{
		Buffers: []Buffer{
			{Name: "rom", Size: 0x20_0000, File: "/roms/game.sfc"},
			{Name: "wram", Size: 0x2_0000},
			{},
		},
		Descriptors: []mapping.Descriptor{
			{Flags: mapping.FlagSystemRAM, Buffer: 2, Start: 0x7E0000, Select: 0xFE0000, Len: 0x20000},
			{Flags: mapping.FlagConst, Buffer: 1, Start: 0x008000, Select: 0x7F8000, Len: 0x8000},
		},
	}

	got, err := UnmarshalMap(MarshalMap(m))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("round trip:\n got: %+v\nwant: %+v", got, m)
	}

	// descriptors alone still decode from a map that declares buffers:
	descs, err := Unmarshal(MarshalMap(m))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(descs, m.Descriptors) {
		t.Errorf("Unmarshal: got %v, want %v", descs, m.Descriptors)
	}
}

func TestUnmarshalMap_TruncatedBuffer(t *testing.T) {
	b := MarshalMap(&Map{Buffers: []Buffer{{Name: "wram", Size: 0x20000, File: "wram.bin"}}})
	for n := 1; n < len(b); n++ {
		if _, err := UnmarshalMap(b[:n]); !errors.Is(err, ErrMalformed) {
			t.Fatalf("UnmarshalMap(%d of %d bytes) error = %v, want ErrMalformed", n, len(b), err)
		}
	}
}
