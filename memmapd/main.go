package main

import (
	"context"
	"fmt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"log"
	"memmap/config"
	"memmap/mapping"
	"memmap/mapwire"
	"memmap/memory"
	"memmap/presets/snes"
	"memmap/racmd"
	"memmap/romimage"
	"memmap/util"
	"memmap/wsapi"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

// serviceName is the health service reported alongside the overall status.
const serviceName = "memmap"

func main() {
	settings := config.FromEnv()
	if len(os.Args) > 1 {
		settings.MapPath = os.Args[1]
	}

	logger, err := util.OpenLogFile(settings.LogPath)
	if err != nil {
		log.Fatalln(err)
	}
	if logger != nil {
		defer logger.Close()
	}

	defer func() {
		if err := recover(); err != nil {
			util.LogPanic(err)
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, settings); err != nil {
		log.Printf("memmapd: %v\n", err)
		_ = util.FlushLogger()
		os.Exit(1)
	}
}

func run(ctx context.Context, settings config.Settings) (err error) {
	if settings.MapPath == "" {
		return fmt.Errorf("no memory map given; set MEMMAPD_MAP or pass a path")
	}

	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	gs, err := serveHealth(settings.GRPCAddr, hs)
	if err != nil {
		return
	}
	defer gs.Stop()

	m, err := config.LoadMap(settings.MapPath)
	if err != nil {
		return
	}

	b, err := load(m)
	if err != nil {
		return
	}
	if err = b.arena.Check(b.session.Table()); err != nil {
		return
	}
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	dumpTable(b.session.Table())
	if settings.DumpPath != "" {
		if err = b.dump(settings.DumpPath); err != nil {
			return
		}
		log.Printf("memmapd: wrote table to %s\n", settings.DumpPath)
	}

	b.mem.Logger = util.NewLogLogger()

	errs := make(chan error, 2)
	running := 0

	if !settings.UDPDisabled {
		rs := racmd.NewServer(b.session, b.mem)
		if err = rs.Listen(settings.UDPAddr); err != nil {
			return
		}
		running++
		go func() { errs <- rs.Serve(ctx) }()
	}

	if !settings.WSDisabled {
		ws := wsapi.NewServer(b.session, b.mem)
		running++
		go func() { errs <- ws.ListenAndServe(ctx, settings.WSAddr) }()
	}

	if running == 0 {
		log.Printf("memmapd: all network surfaces disabled; serving health only\n")
		<-ctx.Done()
		return nil
	}

	// servers return nil once ctx is done:
	for ; running > 0; running-- {
		if err = <-errs; err != nil {
			return
		}
	}
	return nil
}

type backend struct {
	session *mapping.Session
	arena   *memory.Arena
	mem     *memory.Inspector
	// image file per buffer, indexed by BufferID-1
	files []string
}

// dump writes the registered table and its buffer list so that path can be
// served again as a map file.
func (b backend) dump(path string) error {
	files := make([]string, len(b.files))
	for i, f := range b.files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		files[i] = abs
	}
	w := config.Wire(b.arena, b.session.Table().Descriptors(), files)
	return os.WriteFile(path, mapwire.MarshalMap(w), 0644)
}

// load builds and registers the table described by m.
func load(m *config.MapFile) (b backend, err error) {
	if m.Preset != nil {
		return loadPreset(m.Preset)
	}

	b = backend{
		session: &mapping.Session{},
		arena:   &memory.Arena{},
	}
	descs, err := m.Build(b.arena, loadImage)
	if err != nil {
		return
	}
	if err = b.session.Register(descs); err != nil {
		return
	}
	b.mem = memory.NewInspector(b.session, b.arena)
	for _, spec := range m.Buffers {
		b.files = append(b.files, spec.File)
	}
	return
}

func loadPreset(p *config.PresetSpec) (b backend, err error) {
	img, err := romimage.Load(p.ROM, romimage.SNES)
	if err != nil {
		return
	}
	log.Printf("memmapd: loaded %s ($%x bytes)\n", img.Name, len(img.Data))

	mode, h := snes.DetectMapMode(img.Data)
	if p.Mode != "" {
		if mode, err = snes.ParseMapMode(p.Mode); err != nil {
			return
		}
	}
	sram := uint64(h.DeclaredRAMSize())
	if p.SRAM != 0 {
		sram = uint64(p.SRAM)
	}

	q, err := snes.NewSystem(img.Data, mode, sram)
	if err != nil {
		return
	}
	q.Header = h
	log.Printf("memmapd: %s cartridge with $%x bytes of SRAM\n", q.Mode, sram)

	// the ROM is always the first buffer of a preset system:
	return backend{session: &q.Session, arena: &q.Arena, mem: q.Memory, files: []string{p.ROM}}, nil
}

func loadImage(path string) ([]byte, error) {
	img, err := romimage.Load(path, nil)
	return img.Data, err
}

func serveHealth(addr string, hs *health.Server) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	go func() {
		if err := gs.Serve(lis); err != nil {
			log.Printf("memmapd: grpc: %v\n", err)
		}
	}()
	log.Printf("memmapd: health on %s\n", lis.Addr())
	return gs, nil
}

func dumpTable(t *mapping.Table) {
	l := util.NewLogLogger()
	l.Reserve(96)
	for _, ns := range t.Namespaces() {
		top, _ := t.TopAddress(ns)
		_, _ = fmt.Fprintf(l, "memmapd: address space %q up to $%x", ns, top)
		l.Commit()
		t.Each(ns, func(i int, d mapping.Descriptor) bool {
			_, _ = fmt.Fprintf(l, "memmapd:   [%2d] %v", i, d)
			l.Commit()
			return true
		})
	}
}
