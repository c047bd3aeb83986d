package wsapi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"io"
	"log"
	"memmap/memory"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Server answers WebSocket commands against the current descriptor table.
type Server struct {
	tables memory.TableSource
	mem    *memory.Inspector

	mux *http.ServeMux
}

func NewServer(tables memory.TableSource, mem *memory.Inspector) *Server {
	s := &Server{
		tables: tables,
		mem:    mem,
		mux:    http.NewServeMux(),
	}

	s.mux.Handle("/", http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(req, rw)
		if err != nil {
			log.Println(fmt.Errorf("wsapi: upgrade: %w", err))
			return
		}

		go s.serveConn(conn, req.RemoteAddr)
	}))

	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Shutdown(sctx)
	}()

	log.Printf("wsapi: listening on %s\n", addr)
	err := hs.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// the reader is in control of the lifetime of the socket
func (s *Server) serveConn(conn net.Conn, remote string) {
	log.Printf("wsapi: [%s] connected\n", remote)
	defer func() {
		_ = conn.Close()
		log.Printf("wsapi: [%s] disconnected\n", remote)
	}()

	var (
		r       = wsutil.NewReader(conn, ws.StateServerSide)
		control = wsutil.ControlFrameHandler(conn, ws.StateServerSide)
		name    = remote
	)

	for {
		hdr, err := r.NextFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Println(fmt.Errorf("wsapi: [%s] error reading next websocket frame: %w", name, err))
			}
			return
		}
		if hdr.OpCode.IsControl() {
			if err = control(hdr, r); err != nil {
				return
			}
			continue
		}
		if hdr.OpCode != ws.OpText {
			if err = r.Discard(); err != nil {
				return
			}
			continue
		}

		payload, err := io.ReadAll(r)
		if err != nil {
			log.Println(fmt.Errorf("wsapi: [%s] error reading json command: %w", name, err))
			return
		}

		var cmd Command
		if err = json.Unmarshal(payload, &cmd); err != nil {
			log.Println(fmt.Errorf("wsapi: [%s] error decoding json command: %w", name, err))
			continue
		}

		if cmd.Opcode == OpName {
			if len(cmd.Operands) > 0 {
				name = cmd.Operands[0]
			}
			continue
		}

		if err = s.execute(conn, &cmd); err != nil {
			log.Println(fmt.Errorf("wsapi: [%s] %s reply: %w", name, cmd.Opcode, err))
			return
		}
	}
}

func (s *Server) execute(w io.Writer, cmd *Command) error {
	switch cmd.Opcode {
	case OpInfo:
		return writeResult(w, Result{Results: s.tables.Table().Namespaces()})
	case OpResolve:
		return s.resolve(w, cmd)
	case OpGetAddress:
		return s.getAddress(w, cmd)
	case OpPutAddress:
		return s.putAddress(w, cmd)
	default:
		return writeError(w, fmt.Errorf("unknown opcode %q", cmd.Opcode))
	}
}

func (s *Server) resolve(w io.Writer, cmd *Command) error {
	if len(cmd.Operands) != 1 {
		return writeError(w, errors.New("usage: Resolve <address>"))
	}
	addr, err := parseHex(cmd.Operands[0])
	if err != nil {
		return writeError(w, err)
	}

	mp, ok := s.tables.Table().Resolve(cmd.Space, addr)
	if !ok {
		// open bus:
		return writeResult(w, Result{Results: []string{}})
	}
	return writeResult(w, Result{Results: []string{
		strconv.Itoa(mp.Index),
		strconv.FormatUint(mp.Offset, 16),
	}})
}

func (s *Server) getAddress(w io.Writer, cmd *Command) error {
	if len(cmd.Operands) != 2 {
		return writeError(w, errors.New("usage: GetAddress <address> <size>"))
	}
	addr, err := parseHex(cmd.Operands[0])
	if err != nil {
		return writeError(w, err)
	}
	size, err := parseHex(cmd.Operands[1])
	if err != nil {
		return writeError(w, err)
	}
	if size == 0 || size > maxGetSize {
		return writeError(w, fmt.Errorf("size $%x out of range", size))
	}

	data, err := s.mem.Read(cmd.Space, addr, int(size))
	if err != nil {
		return writeError(w, err)
	}
	return wsutil.WriteServerBinary(w, data)
}

func (s *Server) putAddress(w io.Writer, cmd *Command) error {
	if len(cmd.Operands) != 2 {
		return writeError(w, errors.New("usage: PutAddress <address> <hexdata>"))
	}
	addr, err := parseHex(cmd.Operands[0])
	if err != nil {
		return writeError(w, err)
	}
	data, err := hex.DecodeString(cmd.Operands[1])
	if err != nil || len(data) == 0 {
		return writeError(w, fmt.Errorf("bad data %q", cmd.Operands[1]))
	}

	if err = s.mem.Write(cmd.Space, addr, data); err != nil {
		return writeError(w, err)
	}
	return writeResult(w, Result{Results: []string{strconv.Itoa(len(data))}})
}

func writeResult(w io.Writer, rsp Result) error {
	b, err := json.Marshal(rsp)
	if err != nil {
		return err
	}
	return wsutil.WriteServerText(w, b)
}

func writeError(w io.Writer, err error) error {
	return writeResult(w, Result{Results: []string{}, Error: err.Error()})
}

func parseHex(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("bad hex number %q", s)
	}
	return v, nil
}
