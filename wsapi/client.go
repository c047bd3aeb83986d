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
	"net"
	"strconv"
)

var ErrCommandFailed = errors.New("wsapi: command failed")

type Client struct {
	urlstr  string
	appName string

	ws net.Conn
	r  *wsutil.Reader
	w  *wsutil.Writer

	encoder *json.Encoder
}

// Dial connects to urlstr and announces appName.
func Dial(ctx context.Context, urlstr string, appName string) (c *Client, err error) {
	c = &Client{urlstr: urlstr, appName: appName}

	log.Printf("wsapi: [%s] dial %s\n", appName, urlstr)
	c.ws, _, _, err = ws.Dial(ctx, urlstr)
	if err != nil {
		return nil, fmt.Errorf("wsapi: [%s] dial: %w", appName, err)
	}

	c.r = wsutil.NewClientSideReader(c.ws)
	c.r.OnIntermediate = wsutil.ControlFrameHandler(c.ws, ws.StateClientSide)
	c.w = wsutil.NewWriter(c.ws, ws.StateClientSide, ws.OpText)
	c.encoder = json.NewEncoder(c.w)

	if err = c.SendCommand(Command{Opcode: OpName, Operands: []string{appName}}); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() (err error) {
	if c.ws == nil {
		return nil
	}
	log.Printf("wsapi: [%s] close websocket\n", c.appName)
	err = c.ws.Close()
	c.ws = nil
	return
}

func (c *Client) SendCommand(cmd Command) (err error) {
	if err = c.encoder.Encode(cmd); err != nil {
		return fmt.Errorf("wsapi: [%s] %s command encode: %w", c.appName, cmd.Opcode, err)
	}
	if err = c.w.Flush(); err != nil {
		return fmt.Errorf("wsapi: [%s] %s command flush: %w", c.appName, cmd.Opcode, err)
	}
	return
}

// readFrame returns the next data frame's opcode and payload.
func (c *Client) readFrame(name string) (op ws.OpCode, payload []byte, err error) {
	for {
		var hdr ws.Header
		hdr, err = c.r.NextFrame()
		if err != nil {
			err = fmt.Errorf("wsapi: [%s] %s command response: error reading next websocket frame: %w", c.appName, name, err)
			return
		}
		if hdr.OpCode.IsControl() {
			if err = c.r.OnIntermediate(hdr, c.r); err != nil {
				return
			}
			continue
		}
		payload, err = io.ReadAll(c.r)
		return hdr.OpCode, payload, err
	}
}

func (c *Client) ReadCommandResponse(name string, rsp *Result) (err error) {
	op, payload, err := c.readFrame(name)
	if err != nil {
		return
	}
	if op != ws.OpText {
		return fmt.Errorf("wsapi: [%s] %s command response: unexpected %v frame", c.appName, name, op)
	}
	if err = json.Unmarshal(payload, rsp); err != nil {
		return fmt.Errorf("wsapi: [%s] %s command response: decode response: %w", c.appName, name, err)
	}
	if rsp.Error != "" {
		return fmt.Errorf("%w: %s: %s", ErrCommandFailed, name, rsp.Error)
	}
	return
}

func (c *Client) do(cmd Command) (rsp Result, err error) {
	if err = c.SendCommand(cmd); err != nil {
		return
	}
	err = c.ReadCommandResponse(cmd.Opcode, &rsp)
	return
}

// Info lists the registered address spaces.
func (c *Client) Info() ([]string, error) {
	rsp, err := c.do(Command{Opcode: OpInfo})
	return rsp.Results, err
}

// Resolve returns the descriptor index and buffer offset for addr; ok is
// false when nothing maps it.
func (c *Client) Resolve(space string, addr uint64) (index int, offset uint64, ok bool, err error) {
	rsp, err := c.do(Command{
		Opcode:   OpResolve,
		Space:    space,
		Operands: []string{strconv.FormatUint(addr, 16)},
	})
	if err != nil || len(rsp.Results) == 0 {
		return
	}
	if len(rsp.Results) != 2 {
		err = fmt.Errorf("wsapi: [%s] Resolve: unexpected results %q", c.appName, rsp.Results)
		return
	}
	if index, err = strconv.Atoi(rsp.Results[0]); err != nil {
		return
	}
	if offset, err = strconv.ParseUint(rsp.Results[1], 16, 64); err != nil {
		return
	}
	return index, offset, true, nil
}

func (c *Client) GetAddress(space string, addr uint64, size int) ([]byte, error) {
	cmd := Command{
		Opcode:   OpGetAddress,
		Space:    space,
		Operands: []string{strconv.FormatUint(addr, 16), strconv.FormatInt(int64(size), 16)},
	}
	if err := c.SendCommand(cmd); err != nil {
		return nil, err
	}

	op, payload, err := c.readFrame(cmd.Opcode)
	if err != nil {
		return nil, err
	}
	if op == ws.OpBinary {
		return payload, nil
	}

	// failures come back as a JSON result:
	var rsp Result
	if err = json.Unmarshal(payload, &rsp); err != nil {
		return nil, fmt.Errorf("wsapi: [%s] GetAddress response: decode response: %w", c.appName, err)
	}
	return nil, fmt.Errorf("%w: %s: %s", ErrCommandFailed, cmd.Opcode, rsp.Error)
}

func (c *Client) PutAddress(space string, addr uint64, data []byte) error {
	_, err := c.do(Command{
		Opcode:   OpPutAddress,
		Space:    space,
		Operands: []string{strconv.FormatUint(addr, 16), hex.EncodeToString(data)},
	})
	return err
}
