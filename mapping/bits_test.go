package mapping

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		name   string
		rel    uint64
		length uint64
		want   uint64
	}{
		{name: "in range", rel: 0x1000, length: 0x1800, want: 0x1000},
		{name: "msb first", rel: 0x1C00, length: 0x1800, want: 0x1400},
		{name: "drop single high bit", rel: 0x2000, length: 0x1800, want: 0x0000},
		{name: "all low bits", rel: 0x3FFF, length: 0x1800, want: 0x17FF},
		{name: "power of two", rel: 0x12345, length: 0x1000, want: 0x0345},
		{name: "exact length", rel: 0x10, length: 0x10, want: 0x00},
		{name: "unbounded", rel: 0xFFFF_FFFF, length: 0, want: 0xFFFF_FFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fold(tt.rel, tt.length); got != tt.want {
				t.Errorf("Fold($%x, $%x) = $%x, want $%x", tt.rel, tt.length, got, tt.want)
			}
		})
	}
}

func TestFold_StaysInRange(t *testing.T) {
	for _, length := range []uint64{1, 3, 0x600, 0x1800, 0x2000, 0x5000} {
		for rel := uint64(0); rel < 0x10000; rel++ {
			got := Fold(rel, length)
			if got >= length {
				t.Fatalf("Fold($%x, $%x) = $%x escapes the region", rel, length, got)
			}
			if rel < length && got != rel {
				t.Fatalf("Fold($%x, $%x) = $%x changed an in-range address", rel, length, got)
			}
		}
	}
}

func TestFold_PowerOfTwoIsMask(t *testing.T) {
	for _, length := range []uint64{0x100, 0x2000, 0x10000} {
		for rel := uint64(0); rel < 0x40000; rel += 7 {
			if actual, expected := Fold(rel, length), rel&(length-1); actual != expected {
				t.Fatalf("Fold($%x, $%x): actual = $%x, expected = $%x", rel, length, actual, expected)
			}
		}
	}
}

func TestBitHelpers(t *testing.T) {
	if actual, expected := highestBit(uint64(0x7E1234)), uint64(0x400000); actual != expected {
		t.Errorf("highestBit: actual = $%x, expected = $%x", actual, expected)
	}
	if actual, expected := fillBitsDown(uint64(0x408000)), uint64(0x7FFFFF); actual != expected {
		t.Errorf("fillBitsDown: actual = $%x, expected = $%x", actual, expected)
	}
	if actual := fillBitsDown(uint8(0)); actual != 0 {
		t.Errorf("fillBitsDown(0) = %d", actual)
	}
	if isPowerOfTwo(uint64(0x1800)) || !isPowerOfTwo(uint64(0x2000)) || isPowerOfTwo(uint64(0)) {
		t.Error("isPowerOfTwo misclassified")
	}
}
