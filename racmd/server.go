// Package racmd speaks RetroArch's network command protocol over UDP for the
// memory commands: VERSION, READ_CORE_MEMORY and WRITE_CORE_MEMORY.
package racmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"memmap/mapping"
	"memmap/memory"
	"net"
	"strconv"
	"strings"
)

// Version is reported in reply to VERSION.
const Version = "1.15.0"

// maxReadSize keeps a READ_CORE_MEMORY reply inside one datagram.
const maxReadSize = 8192

const (
	cmdVersion = "VERSION"
	cmdRead    = "READ_CORE_MEMORY"
	cmdWrite   = "WRITE_CORE_MEMORY"
)

// Server answers memory commands against the current descriptor table.
type Server struct {
	tables memory.TableSource
	mem    *memory.Inspector

	conn *net.UDPConn
}

func NewServer(tables memory.TableSource, mem *memory.Inspector) *Server {
	return &Server{tables: tables, mem: mem}
}

// Listen binds the UDP socket; addr is host:port.
func (s *Server) Listen(addr string) (err error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return
	}
	s.conn, err = net.ListenUDP("udp", laddr)
	if err != nil {
		return
	}
	log.Printf("racmd: listening on %s\n", s.conn.LocalAddr())
	return
}

func (s *Server) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Serve handles datagrams until ctx is done or the socket fails.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.conn.Close()
	}()

	b := make([]byte, 65536)
	for {
		n, raddr, err := s.conn.ReadFromUDP(b)
		if err != nil {
			if errors.Is(err, net.ErrClosed) && ctx.Err() != nil {
				log.Printf("racmd: stopped\n")
				return nil
			}
			return err
		}

		// a datagram may carry several newline-separated commands:
		for _, line := range strings.Split(string(b[:n]), "\n") {
			reply, ok := s.handle(line)
			if !ok {
				continue
			}
			if _, err = s.conn.WriteToUDP([]byte(reply+"\n"), raddr); err != nil {
				log.Printf("racmd: reply to %s: %v\n", raddr, err)
			}
		}
	}
}

func (s *Server) Close() error { return s.conn.Close() }

// handle executes a single command line; ok is false when there is nothing to
// reply, which is how RetroArch treats unknown commands.
func (s *Server) handle(line string) (reply string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}

	switch fields[0] {
	case cmdVersion:
		return Version, true
	case cmdRead:
		return s.read(fields[1:]), true
	case cmdWrite:
		return s.write(fields[1:]), true
	default:
		log.Printf("racmd: ignoring unknown command %q\n", fields[0])
		return "", false
	}
}

func (s *Server) read(args []string) string {
	if len(args) != 2 {
		return failure(cmdRead, strings.Join(args, " "), "usage: READ_CORE_MEMORY <address> <size>")
	}

	t := s.tables.Table()
	if t.Len() == 0 {
		return failure(cmdRead, args[0], "no memory map defined")
	}
	ns, addr, err := t.ParseAddress(args[0])
	if err != nil {
		return failure(cmdRead, args[0], "invalid address")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n <= 0 {
		return failure(cmdRead, args[0], "invalid size")
	}
	if n > maxReadSize {
		n = maxReadSize
	}

	data, err := s.mem.Read(ns, addr, n)
	if len(data) == 0 {
		// a read running off the end of a region returns what it got:
		return failure(cmdRead, args[0], reason(err))
	}

	var sb strings.Builder
	sb.Grow(len(cmdRead) + len(args[0]) + 3*len(data) + 1)
	sb.WriteString(cmdRead)
	sb.WriteByte(' ')
	sb.WriteString(mapping.FormatAddress(ns, addr))
	for _, v := range data {
		sb.WriteString(fmt.Sprintf(" %02x", v))
	}
	return sb.String()
}

func (s *Server) write(args []string) string {
	if len(args) < 2 {
		return failure(cmdWrite, strings.Join(args, " "), "usage: WRITE_CORE_MEMORY <address> <byte>...")
	}

	t := s.tables.Table()
	if t.Len() == 0 {
		return failure(cmdWrite, args[0], "no memory map defined")
	}
	ns, addr, err := t.ParseAddress(args[0])
	if err != nil {
		return failure(cmdWrite, args[0], "invalid address")
	}

	data := make([]byte, len(args)-1)
	for i, a := range args[1:] {
		v, err := strconv.ParseUint(a, 16, 8)
		if err != nil {
			return failure(cmdWrite, args[0], fmt.Sprintf("invalid byte %q", a))
		}
		data[i] = byte(v)
	}

	if err = s.mem.Write(ns, addr, data); err != nil {
		return failure(cmdWrite, args[0], reason(err))
	}
	return fmt.Sprintf("%s %s %d", cmdWrite, mapping.FormatAddress(ns, addr), len(data))
}

func failure(cmd, addr, why string) string {
	return fmt.Sprintf("%s %s -1 %s", cmd, addr, why)
}

func reason(err error) string {
	switch {
	case errors.Is(err, memory.ErrUnmapped):
		return "no descriptor for address"
	case errors.Is(err, memory.ErrUnbacked):
		return "no data for descriptor"
	case errors.Is(err, memory.ErrOutOfRange):
		return "address out of range"
	case errors.Is(err, memory.ErrReadOnly):
		return "descriptor is read-only"
	case err != nil:
		return err.Error()
	default:
		return "unknown error"
	}
}
