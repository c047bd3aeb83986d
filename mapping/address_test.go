package mapping

import (
	"errors"
	"testing"
)

func TestTable_ParseAddress(t *testing.T) {
	tbl := mustRegister(t, []Descriptor{
		{Start: 0x7E0000, Select: 0xFE0000, Len: 0x20000},
		{AddrSpace: "S", Len: 0x10000},
		{AddrSpace: "ARB", Len: 0x100},
		{AddrSpace: "a", Len: 0x100},
	})

	tests := []struct {
		text    string
		ns      string
		addr    uint64
		wantErr bool
	}{
		{text: "7E0010", ns: "", addr: 0x7E0010},
		{text: "7e0010", wantErr: true},
		{text: "7E001f", wantErr: true},
		{text: "S1F00", ns: "S", addr: 0x1F00},
		{text: "SFFFF", ns: "S", addr: 0xFFFF},
		{text: "ARB10", ns: "ARB", addr: 0x10},
		{text: "aFF", ns: "a", addr: 0xFF},
		{text: "ABC", ns: "", addr: 0xABC},
		{text: "abc", wantErr: true},
		{text: "a10", ns: "a", addr: 0x10},
		{text: "+10", wantErr: true},
		{text: "S", wantErr: true},
		{text: "", wantErr: true},
		{text: "SZ", wantErr: true},
		{text: "12345678123456789", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ns, addr, err := tbl.ParseAddress(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrBadAddress) {
					t.Fatalf("ParseAddress(%q) error = %v, want ErrBadAddress", tt.text, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q): %v", tt.text, err)
			}
			if ns != tt.ns || addr != tt.addr {
				t.Errorf("ParseAddress(%q) = %q, $%x; want %q, $%x", tt.text, ns, addr, tt.ns, tt.addr)
			}
		})
	}
}

func TestFormatAddress_RoundTrip(t *testing.T) {
	tbl := mustRegister(t, []Descriptor{
		{Start: 0x7E0000, Select: 0xFE0000, Len: 0x20000},
		{AddrSpace: "S", Len: 0x10000},
		{AddrSpace: "VRAM", Len: 0x10000},
	})

	for _, ns := range tbl.Namespaces() {
		for _, addr := range []uint64{0, 0xF, 0x1F00, 0x7E0010, ^uint64(0)} {
			text := FormatAddress(ns, addr)
			gotNS, gotAddr, err := tbl.ParseAddress(text)
			if err != nil {
				t.Fatalf("ParseAddress(%q): %v", text, err)
			}
			if gotNS != ns || gotAddr != addr {
				t.Errorf("%q: actual = %q/$%x, expected = %q/$%x", text, gotNS, gotAddr, ns, addr)
			}
		}
	}

	if actual, expected := FormatAddress("S", 0x1f00), "S1F00"; actual != expected {
		t.Errorf("FormatAddress: actual = %q, expected = %q", actual, expected)
	}
}
