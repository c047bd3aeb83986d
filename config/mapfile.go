package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"memmap/mapping"
	"memmap/mapwire"
	"memmap/memory"
	"os"
	"path/filepath"
	"strings"
)

// MapFile is the on-disk description of a memory map: either a preset layout
// for a ROM image, or explicit buffers and descriptors.
type MapFile struct {
	Preset      *PresetSpec      `json:"preset,omitempty"`
	Buffers     []BufferSpec     `json:"buffers,omitempty"`
	Descriptors []DescriptorSpec `json:"descriptors,omitempty"`
}

// PresetSpec selects a built-in SNES layout.
type PresetSpec struct {
	// Mode is "lorom", "hirom", "exhirom", or empty to detect from the ROM header.
	Mode string  `json:"mode,omitempty"`
	ROM  string  `json:"rom"`
	SRAM HexUint `json:"sram,omitempty"`
}

// BufferSpec declares backing storage, loaded from an image file, zero-filled
// to a size, or both (the image is padded or cut to the size).
type BufferSpec struct {
	Name string  `json:"name"`
	File string  `json:"file,omitempty"`
	Size HexUint `json:"size,omitempty"`
}

// DescriptorSpec mirrors mapping.Descriptor with names for flags and buffers.
type DescriptorSpec struct {
	Flags      []string  `json:"flags,omitempty"`
	Buffer     BufferRef `json:"buffer,omitempty"`
	Offset     HexUint   `json:"offset,omitempty"`
	Start      HexUint   `json:"start,omitempty"`
	Select     HexUint   `json:"select,omitempty"`
	Disconnect HexUint   `json:"disconnect,omitempty"`
	Len        HexUint   `json:"len,omitempty"`
	AddrSpace  string    `json:"addrspace,omitempty"`
}

// BufferRef names a buffer by its name in MapFile.Buffers or by its 1-based
// position there.
type BufferRef struct {
	Name string
	ID   mapping.BufferID
}

func (r *BufferRef) UnmarshalJSON(j []byte) error {
	var id int
	if err := json.Unmarshal(j, &id); err == nil {
		r.ID = mapping.BufferID(id)
		return nil
	}
	return json.Unmarshal(j, &r.Name)
}

func (r BufferRef) MarshalJSON() ([]byte, error) {
	if r.Name != "" {
		return json.Marshal(r.Name)
	}
	return json.Marshal(int(r.ID))
}

var ErrNoMap = errors.New("config: map file has neither a preset nor descriptors")

// ImageLoader reads a backing image from a file.
type ImageLoader func(path string) ([]byte, error)

// LoadMap reads a JSON map file, or a protobuf-encoded table with its buffer
// list when the extension is .pb or .bin.
func LoadMap(path string) (m *MapFile, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pb", ".bin":
		m, err = parseWireMap(data)
	default:
		m, err = ParseMap(data)
	}
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	m.resolvePaths(filepath.Dir(path))
	return m, nil
}

func parseWireMap(data []byte) (*MapFile, error) {
	w, err := mapwire.UnmarshalMap(data)
	if err != nil {
		return nil, err
	}
	if len(w.Descriptors) == 0 {
		return nil, ErrNoMap
	}
	for i, d := range w.Descriptors {
		if d.Buffer < mapping.NoBuffer || int(d.Buffer) > len(w.Buffers) {
			return nil, fmt.Errorf("descriptor %d refers to buffer %d but the table declares %d", i, d.Buffer, len(w.Buffers))
		}
	}

	m := FromDescriptors(w.Descriptors)
	m.Buffers = make([]BufferSpec, len(w.Buffers))
	for i, b := range w.Buffers {
		m.Buffers[i] = BufferSpec{Name: b.Name, File: b.File, Size: HexUint(b.Size)}
	}
	return m, nil
}

// Wire converts a map built in arena into its protobuf form. files gives the
// image each buffer was loaded from, indexed by BufferID-1; missing entries
// are zero-filled on load.
func Wire(arena *memory.Arena, descs []mapping.Descriptor, files []string) *mapwire.Map {
	w := &mapwire.Map{
		Buffers:     make([]mapwire.Buffer, arena.Len()),
		Descriptors: descs,
	}
	for i := range w.Buffers {
		buf := arena.Get(mapping.BufferID(i + 1))
		w.Buffers[i] = mapwire.Buffer{Name: buf.Name(), Size: buf.Size()}
		if i < len(files) {
			w.Buffers[i].File = files[i]
		}
	}
	return w
}

// ParseMap decodes a JSON map file.
func ParseMap(data []byte) (*MapFile, error) {
	m := &MapFile{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	if m.Preset == nil && len(m.Descriptors) == 0 {
		return nil, ErrNoMap
	}
	return m, nil
}

// FromDescriptors wraps a decoded table whose buffers are referred to by ID.
func FromDescriptors(descs []mapping.Descriptor) *MapFile {
	m := &MapFile{Descriptors: make([]DescriptorSpec, len(descs))}
	for i, d := range descs {
		spec := DescriptorSpec{
			Buffer:     BufferRef{ID: d.Buffer},
			Offset:     HexUint(d.Offset),
			Start:      HexUint(d.Start),
			Select:     HexUint(d.Select),
			Disconnect: HexUint(d.Disconnect),
			Len:        HexUint(d.Len),
			AddrSpace:  d.AddrSpace,
		}
		if d.Flags != 0 {
			spec.Flags = strings.Split(d.Flags.String(), "|")
		}
		m.Descriptors[i] = spec
	}
	return m
}

// relative image paths are taken from the map file's directory
func (m *MapFile) resolvePaths(dir string) {
	if m.Preset != nil && m.Preset.ROM != "" && !filepath.IsAbs(m.Preset.ROM) {
		m.Preset.ROM = filepath.Join(dir, m.Preset.ROM)
	}
	for i := range m.Buffers {
		if f := m.Buffers[i].File; f != "" && !filepath.IsAbs(f) {
			m.Buffers[i].File = filepath.Join(dir, f)
		}
	}
}

// Build creates the declared buffers in arena and returns the descriptor
// table referring to them. The table is not validated here.
func (m *MapFile) Build(arena *memory.Arena, load ImageLoader) (descs []mapping.Descriptor, err error) {
	ids := make(map[string]mapping.BufferID, len(m.Buffers))
	for _, b := range m.Buffers {
		var buf *memory.Buffer
		buf, err = b.create(load)
		if err != nil {
			return nil, err
		}
		id := arena.Add(buf)
		if b.Name != "" {
			ids[b.Name] = id
		}
	}

	descs = make([]mapping.Descriptor, len(m.Descriptors))
	for i, spec := range m.Descriptors {
		d := mapping.Descriptor{
			Buffer:     spec.Buffer.ID,
			Offset:     uint64(spec.Offset),
			Start:      uint64(spec.Start),
			Select:     uint64(spec.Select),
			Disconnect: uint64(spec.Disconnect),
			Len:        uint64(spec.Len),
			AddrSpace:  spec.AddrSpace,
		}
		if spec.Buffer.Name != "" {
			id, ok := ids[spec.Buffer.Name]
			if !ok {
				return nil, fmt.Errorf("config: descriptor %d: unknown buffer %q", i, spec.Buffer.Name)
			}
			d.Buffer = id
		}
		for _, name := range spec.Flags {
			var f mapping.Flags
			f, err = mapping.ParseFlag(name)
			if err != nil {
				return nil, fmt.Errorf("config: descriptor %d: %w", i, err)
			}
			d.Flags |= f
		}
		descs[i] = d
	}
	return descs, nil
}

func (b *BufferSpec) create(load ImageLoader) (*memory.Buffer, error) {
	var data []byte
	if b.File != "" {
		if load == nil {
			return nil, fmt.Errorf("config: buffer %q: no image loader", b.Name)
		}
		img, err := load(b.File)
		if err != nil {
			return nil, fmt.Errorf("config: buffer %q: %w", b.Name, err)
		}
		data = img
	}

	if size := int(b.Size); size > 0 && size != len(data) {
		sized := make([]byte, size)
		copy(sized, data)
		data = sized
	}
	if data == nil {
		return nil, fmt.Errorf("config: buffer %q needs a file or a size", b.Name)
	}
	return memory.NewBuffer(b.Name, data), nil
}
