package racmd

import (
	"context"
	"errors"
	"memmap/mapping"
	"memmap/memory"
	"memmap/util"
	"testing"
	"time"
)

type testSystem struct {
	session mapping.Session
	arena   memory.Arena
	mem     *memory.Inspector
	wram    *memory.Buffer
	rom     *memory.Buffer
	aram    *memory.Buffer
}

func newTestSystem(t *testing.T) *testSystem {
	t.Helper()
	s := &testSystem{
		wram: memory.NewBufferSize("wram", 0x20000),
		rom:  memory.NewBufferSize("rom", 0x8000),
		aram: memory.NewBufferSize("aram", 0x10000),
	}
	wram := s.arena.Add(s.wram)
	rom := s.arena.Add(s.rom)
	aram := s.arena.Add(s.aram)
	s.mem = memory.NewInspector(&s.session, &s.arena)
	s.mem.Logger = util.NewTestingLogger(t)

	for i := range s.rom.Bytes() {
		s.rom.Write(uint64(i), byte(i))
	}

	err := s.session.Register([]mapping.Descriptor{
		{Flags: mapping.FlagSystemRAM, Buffer: wram, Start: 0x7E0000, Select: 0xFE0000, Len: 0x20000},
		{Flags: mapping.FlagSystemRAM, Buffer: wram, Start: 0x000000, Select: 0x40E000, Disconnect: ^uint64(0x1FFF)},
		{Flags: mapping.FlagConst, Buffer: rom, Start: 0x008000, Select: 0x408000, Len: 0x8000},
		{Buffer: aram, AddrSpace: "S", Len: 0x10000},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestServer_handle(t *testing.T) {
	s := newTestSystem(t)
	s.wram.Write(0x10, 0x07)
	s.wram.Write(0x11, 0x7F)
	s.wram.Write(0x1FFE, 0xAB)
	s.wram.Write(0x1FFF, 0xCD)
	s.aram.Write(0x1F00, 0xCD)
	srv := NewServer(&s.session, s.mem)

	tests := []struct {
		line string
		want string
	}{
		{"VERSION", Version},
		{"READ_CORE_MEMORY 7E0010 2", "READ_CORE_MEMORY 7E0010 07 7f"},
		{"READ_CORE_MEMORY 10 2", "READ_CORE_MEMORY 10 07 7f"},
		{"READ_CORE_MEMORY 7e0010 1", "READ_CORE_MEMORY 7e0010 -1 invalid address"},
		{"READ_CORE_MEMORY S1F00 1", "READ_CORE_MEMORY S1F00 cd"},
		{"READ_CORE_MEMORY 808000 4", "READ_CORE_MEMORY 808000 00 01 02 03"},
		// runs off the end of the low WRAM mirror into unmapped space:
		{"READ_CORE_MEMORY 1FFE 4", "READ_CORE_MEMORY 1FFE ab cd"},
		{"READ_CORE_MEMORY 2100 1", "READ_CORE_MEMORY 2100 -1 no descriptor for address"},
		{"READ_CORE_MEMORY Q10 1", "READ_CORE_MEMORY Q10 -1 invalid address"},
		{"READ_CORE_MEMORY 10 0", "READ_CORE_MEMORY 10 -1 invalid size"},
		{"READ_CORE_MEMORY 10", "READ_CORE_MEMORY 10 -1 usage: READ_CORE_MEMORY <address> <size>"},
		{"WRITE_CORE_MEMORY 7E0100 de ad", "WRITE_CORE_MEMORY 7E0100 2"},
		{"WRITE_CORE_MEMORY S0 1", "WRITE_CORE_MEMORY S0 1"},
		{"WRITE_CORE_MEMORY 8000 00", "WRITE_CORE_MEMORY 8000 -1 descriptor is read-only"},
		{"WRITE_CORE_MEMORY 7E0100 zz", `WRITE_CORE_MEMORY 7E0100 -1 invalid byte "zz"`},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := srv.handle(tt.line)
			if !ok {
				t.Fatal("no reply")
			}
			if got != tt.want {
				t.Errorf("handle(%q)\n got: %q\nwant: %q", tt.line, got, tt.want)
			}
		})
	}

	if v := s.wram.Read(0x100); v != 0xDE {
		t.Errorf("wram[$100] = $%02x, want $de", v)
	}
	if v := s.aram.Read(0); v != 0x01 {
		t.Errorf("aram[0] = $%02x, want $01", v)
	}

	for _, line := range []string{"", "   ", "RESET", "READ_CORE_RAM 7E0010 1"} {
		if _, ok := srv.handle(line); ok {
			t.Errorf("handle(%q): expected no reply", line)
		}
	}
}

func TestServer_NoMap(t *testing.T) {
	var session mapping.Session
	srv := NewServer(&session, memory.NewInspector(&session, &memory.Arena{}))

	got, _ := srv.handle("READ_CORE_MEMORY 7E0010 1")
	if want := "READ_CORE_MEMORY 7E0010 -1 no memory map defined"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClient(t *testing.T) {
	s := newTestSystem(t)
	srv := NewServer(&s.session, s.mem)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve() = %v", err)
			}
		case <-time.After(time.Second):
			t.Error("Serve did not stop")
		}
	}()

	c := NewClient("test")
	if err := c.Connect(srv.LocalAddr().String()); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	v, err := c.Version()
	if err != nil {
		t.Fatal(err)
	}
	if v != Version {
		t.Errorf("Version() = %q", v)
	}

	n, err := c.WriteCoreMemory("7E0020", []byte{0x12, 0x34, 0x56})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("WriteCoreMemory() = %d, want 3", n)
	}

	// read back through the low mirror:
	data, err := c.ReadCoreMemory("20", 3)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "\x12\x34\x56" {
		t.Errorf("ReadCoreMemory() = % x", data)
	}

	_, err = c.WriteCoreMemory("808000", []byte{0})
	var cerr *CommandError
	if !errors.As(err, &cerr) || cerr.Reason != "descriptor is read-only" {
		t.Errorf("WriteCoreMemory(ROM) err = %v", err)
	}
	if !errors.Is(err, ErrCommandFailed) {
		t.Errorf("expected ErrCommandFailed, got %v", err)
	}
}
