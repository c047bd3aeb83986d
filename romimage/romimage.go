// Package romimage loads backing images for memory buffers from plain files
// or from the first matching entry of a zip, 7z, gzip, tar.gz or rar archive.
package romimage

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxSize bounds a single image. ExHiROM tops out at 8MiB; the rest is room
// for copier headers and oversized dumps.
const MaxSize = 16 << 20

var (
	ErrNoImage           = errors.New("romimage: no matching image in archive")
	ErrUnsupportedFormat = errors.New("romimage: unsupported file format")
	ErrTooLarge          = errors.New("romimage: image exceeds maximum size")
)

// SNES lists the usual SNES ROM file extensions.
var SNES = []string{".sfc", ".smc", ".swc", ".fig", ".bin"}

type format int

const (
	formatUnknown format = iota
	formatRaw
	formatZip
	format7z
	formatGzip
	formatRar
)

var magics = []struct {
	prefix []byte
	format format
}{
	{[]byte{'P', 'K', 0x03, 0x04}, formatZip},
	{[]byte{'P', 'K', 0x05, 0x06}, formatZip},
	{[]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}, format7z},
	{[]byte{0x1F, 0x8B}, formatGzip},
	{[]byte{'R', 'a', 'r', '!'}, formatRar},
}

// Image is a loaded backing image.
type Image struct {
	// Name is the base name of the file the bytes came from; for archives
	// it is the entry name.
	Name string
	Data []byte
}

// Load reads the image at path. Archives are searched for the first regular
// entry whose name ends in one of extensions. A file that is not an archive
// is loaded as-is when its own extension is listed, or when extensions is
// empty.
func Load(path string, extensions []string) (img Image, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	head := make([]byte, 8)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return
	}
	head = head[:n]
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return
	}

	switch detect(head, path, extensions) {
	case formatRaw:
		img.Name = filepath.Base(path)
		img.Data, err = readLimited(f)
	case formatZip:
		img, err = fromZip(path, extensions)
	case format7z:
		img, err = from7z(path, extensions)
	case formatGzip:
		img, err = fromGzip(f, path, extensions)
	case formatRar:
		img, err = fromRar(path, extensions)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return
}

func detect(head []byte, path string, extensions []string) format {
	for _, m := range magics {
		if bytes.HasPrefix(head, m.prefix) {
			return m.format
		}
	}

	lower := strings.ToLower(path)
	switch filepath.Ext(lower) {
	case ".zip":
		return formatZip
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRar
	}

	if len(extensions) == 0 || matches(lower, extensions) {
		return formatRaw
	}
	return formatUnknown
}

func matches(name string, extensions []string) bool {
	name = strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(name, strings.ToLower(ext)) {
			return true
		}
	}
	return len(extensions) == 0
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

func readEntry(name string, open func() (io.ReadCloser, error)) (img Image, err error) {
	rc, err := open()
	if err != nil {
		return img, fmt.Errorf("romimage: %s: %w", name, err)
	}
	defer rc.Close()

	img.Name = filepath.Base(name)
	if img.Data, err = readLimited(rc); err != nil {
		err = fmt.Errorf("romimage: %s: %w", name, err)
	}
	return
}

func fromZip(path string, extensions []string) (Image, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return Image{}, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !matches(f.Name, extensions) {
			continue
		}
		return readEntry(f.Name, f.Open)
	}
	return Image{}, ErrNoImage
}

func from7z(path string, extensions []string) (Image, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return Image{}, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !matches(f.Name, extensions) {
			continue
		}
		return readEntry(f.Name, f.Open)
	}
	return Image{}, ErrNoImage
}

func fromRar(path string, extensions []string) (Image, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return Image{}, err
	}
	defer r.Close()

	for {
		h, err := r.Next()
		if err == io.EOF {
			return Image{}, ErrNoImage
		}
		if err != nil {
			return Image{}, err
		}
		if h.IsDir || !matches(h.Name, extensions) {
			continue
		}
		return readEntry(h.Name, func() (io.ReadCloser, error) { return io.NopCloser(r), nil })
	}
}

// fromGzip unpacks a gzip stream, which may wrap a tar archive.
func fromGzip(f io.Reader, path string, extensions []string) (Image, error) {
	gz, err := gzip.NewReader(f)
	if err != nil {
		return Image{}, err
	}
	defer gz.Close()

	br := bufio.NewReaderSize(gz, 512)
	if isTar(br) {
		return fromTar(br, extensions)
	}

	name := filepath.Base(path)
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".gz") {
		name = name[:len(name)-len(ext)]
	}
	data, err := readLimited(br)
	if err != nil {
		return Image{}, err
	}
	return Image{Name: name, Data: data}, nil
}

// isTar looks for the ustar magic at offset 257 of the first header block.
func isTar(br *bufio.Reader) bool {
	head, _ := br.Peek(512)
	return len(head) == 512 && bytes.HasPrefix(head[257:], []byte("ustar"))
}

func fromTar(r io.Reader, extensions []string) (Image, error) {
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return Image{}, ErrNoImage
		}
		if err != nil {
			return Image{}, err
		}
		if h.Typeflag != tar.TypeReg || !matches(h.Name, extensions) {
			continue
		}
		return readEntry(h.Name, func() (io.ReadCloser, error) { return io.NopCloser(tr), nil })
	}
}
