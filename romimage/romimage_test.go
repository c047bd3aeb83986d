package romimage

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var testROM = bytes.Repeat([]byte{0x4C, 0x00, 0x80, 0xEA}, 0x2000)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func zipOf(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var b bytes.Buffer
	w := zip.NewWriter(&b)
	for name, data := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = f.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func gzipOf(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func tarOf(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	w := tar.NewWriter(&b)
	if err := w.WriteHeader(&tar.Header{Name: "README", Mode: 0644, Size: 2, Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(data)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantName string
	}{
		{"raw", writeFile(t, "game.sfc", testROM), "game.sfc"},
		{"zip", writeFile(t, "game.zip", zipOf(t, map[string][]byte{
			"docs/readme.txt": []byte("not a rom"),
			"roms/game.smc":   testROM,
		})), "game.smc"},
		{"zip without extension", writeFile(t, "archive", zipOf(t, map[string][]byte{"game.sfc": testROM})), "game.sfc"},
		{"gzip", writeFile(t, "game.sfc.gz", gzipOf(t, testROM)), "game.sfc"},
		{"tar.gz", writeFile(t, "game.tar.gz", gzipOf(t, tarOf(t, "game/game.sfc", testROM))), "game.sfc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Load(tt.path, SNES)
			if err != nil {
				t.Fatal(err)
			}
			if img.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", img.Name, tt.wantName)
			}
			if !bytes.Equal(img.Data, testROM) {
				t.Errorf("Data mismatch: %d bytes", len(img.Data))
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		want error
	}{
		{"unsupported", writeFile(t, "notes.txt", []byte("hello")), ErrUnsupportedFormat},
		{"no image in zip", writeFile(t, "docs.zip", zipOf(t, map[string][]byte{"readme.txt": []byte("x")})), ErrNoImage},
		{"no image in tar", writeFile(t, "docs.tgz", gzipOf(t, tarOf(t, "notes.txt", []byte("x")))), ErrNoImage},
		{"too large", writeFile(t, "huge.sfc", make([]byte, MaxSize+1)), ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path, SNES)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.sfc"), SNES); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v", err)
	}
}

func TestLoad_AnyExtension(t *testing.T) {
	path := writeFile(t, "wram.dump", testROM[:0x100])
	img, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Data) != 0x100 {
		t.Errorf("len = %d", len(img.Data))
	}
}
