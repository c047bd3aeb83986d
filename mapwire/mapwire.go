// Package mapwire encodes descriptor tables in protobuf wire format:
//
//	message MemoryMap  { repeated Descriptor descriptors = 1; repeated Buffer buffers = 2; }
//	message Buffer     { string name = 1; uint64 size = 2; string file = 3; }
//	message Descriptor {
//	  uint64 flags = 1; int64 buffer = 2; uint64 offset = 3; uint64 start = 4;
//	  uint64 select = 5; uint64 disconnect = 6; uint64 len = 7; string addrspace = 8;
//	}
package mapwire

import (
	"errors"
	"fmt"
	"google.golang.org/protobuf/encoding/protowire"
	"memmap/mapping"
)

const (
	fieldDescriptors protowire.Number = 1
	fieldBuffers     protowire.Number = 2

	fieldBufferName protowire.Number = 1
	fieldBufferSize protowire.Number = 2
	fieldBufferFile protowire.Number = 3

	fieldFlags      protowire.Number = 1
	fieldBuffer     protowire.Number = 2
	fieldOffset     protowire.Number = 3
	fieldStart      protowire.Number = 4
	fieldSelect     protowire.Number = 5
	fieldDisconnect protowire.Number = 6
	fieldLen        protowire.Number = 7
	fieldAddrSpace  protowire.Number = 8
)

var ErrMalformed = errors.New("mapwire: malformed memory map")

// Buffer declares the storage behind one buffer ID. The n-th entry of
// Map.Buffers backs mapping.BufferID(n+1).
type Buffer struct {
	Name string
	Size uint64
	File string
}

// Map is a descriptor table together with the buffers it refers to.
type Map struct {
	Buffers     []Buffer
	Descriptors []mapping.Descriptor
}

// Marshal encodes descs as a MemoryMap message with no buffers. Zero fields
// are omitted.
func Marshal(descs []mapping.Descriptor) []byte {
	return MarshalMap(&Map{Descriptors: descs})
}

// MarshalMap encodes m as a MemoryMap message.
func MarshalMap(m *Map) []byte {
	var b []byte
	for i := range m.Descriptors {
		msg := appendDescriptor(nil, &m.Descriptors[i])
		b = protowire.AppendTag(b, fieldDescriptors, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	for i := range m.Buffers {
		msg := appendBuffer(nil, &m.Buffers[i])
		b = protowire.AppendTag(b, fieldBuffers, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return b
}

func appendBuffer(b []byte, buf *Buffer) []byte {
	b = appendString(b, fieldBufferName, buf.Name)
	b = appendUvarint(b, fieldBufferSize, buf.Size)
	b = appendString(b, fieldBufferFile, buf.File)
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendDescriptor(b []byte, d *mapping.Descriptor) []byte {
	b = appendUvarint(b, fieldFlags, uint64(d.Flags))
	if d.Buffer != 0 {
		b = protowire.AppendTag(b, fieldBuffer, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(d.Buffer)))
	}
	b = appendUvarint(b, fieldOffset, d.Offset)
	b = appendUvarint(b, fieldStart, d.Start)
	b = appendUvarint(b, fieldSelect, d.Select)
	b = appendUvarint(b, fieldDisconnect, d.Disconnect)
	b = appendUvarint(b, fieldLen, d.Len)
	b = appendString(b, fieldAddrSpace, d.AddrSpace)
	return b
}

func appendUvarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// Unmarshal decodes the descriptors of a MemoryMap message, ignoring any
// buffers it declares.
func Unmarshal(b []byte) ([]mapping.Descriptor, error) {
	m, err := UnmarshalMap(b)
	if err != nil {
		return nil, err
	}
	return m.Descriptors, nil
}

// UnmarshalMap decodes a MemoryMap message. Unknown fields are skipped.
func UnmarshalMap(b []byte) (m *Map, err error) {
	m = &Map{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireError(n)
		}
		b = b[n:]

		if (num != fieldDescriptors && num != fieldBuffers) || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireError(n)
			}
			b = b[n:]
			continue
		}

		msg, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, wireError(n)
		}
		b = b[n:]

		if num == fieldBuffers {
			var buf Buffer
			if err = unmarshalBuffer(msg, &buf); err != nil {
				return nil, fmt.Errorf("buffer %d: %w", len(m.Buffers), err)
			}
			m.Buffers = append(m.Buffers, buf)
			continue
		}

		var d mapping.Descriptor
		if err = unmarshalDescriptor(msg, &d); err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", len(m.Descriptors), err)
		}
		m.Descriptors = append(m.Descriptors, d)
	}
	return m, nil
}

func unmarshalBuffer(b []byte, buf *Buffer) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return wireError(n)
		}
		b = b[n:]

		switch {
		case (num == fieldBufferName || num == fieldBufferFile) && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return wireError(n)
			}
			if num == fieldBufferName {
				buf.Name = s
			} else {
				buf.File = s
			}
			b = b[n:]
			continue
		case num == fieldBufferSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return wireError(n)
			}
			buf.Size = v
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return wireError(n)
		}
		b = b[n:]
	}
	return nil
}

func unmarshalDescriptor(b []byte, d *mapping.Descriptor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return wireError(n)
		}
		b = b[n:]

		switch {
		case num == fieldAddrSpace && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return wireError(n)
			}
			d.AddrSpace = s
			b = b[n:]
			continue
		case num >= fieldFlags && num <= fieldLen && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return wireError(n)
			}
			setField(d, num, v)
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return wireError(n)
		}
		b = b[n:]
	}
	return nil
}

func setField(d *mapping.Descriptor, num protowire.Number, v uint64) {
	switch num {
	case fieldFlags:
		d.Flags = mapping.Flags(v)
	case fieldBuffer:
		d.Buffer = mapping.BufferID(int64(v))
	case fieldOffset:
		d.Offset = v
	case fieldStart:
		d.Start = v
	case fieldSelect:
		d.Select = v
	case fieldDisconnect:
		d.Disconnect = v
	case fieldLen:
		d.Len = v
	}
}

func wireError(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}
