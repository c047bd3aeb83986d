package racmd

import (
	"errors"
	"fmt"
	"memmap/udpclient"
	"strconv"
	"strings"
	"sync"
	"time"
)

var ErrCommandFailed = errors.New("racmd: command failed")

// CommandError carries the reason a server gave for a -1 reply.
type CommandError struct {
	Command string
	Address string
	Reason  string
}

func (e *CommandError) Unwrap() error { return ErrCommandFailed }
func (e *CommandError) Error() string {
	return fmt.Sprintf("racmd: %s %s: %s", e.Command, e.Address, e.Reason)
}

// Client sends memory commands to a RetroArch-compatible server, one request
// in flight at a time.
type Client struct {
	udpclient.UDPClient

	Timeout time.Duration

	lock sync.Mutex
}

func NewClient(name string) *Client {
	c := &Client{Timeout: time.Second}
	udpclient.MakeUDPClient(name, &c.UDPClient)
	return c
}

func (c *Client) exchange(req string) (rsp string, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	// replies to requests that already timed out would be taken for ours:
	c.Drain()

	if err = c.WriteTimeout([]byte(req+"\n"), c.Timeout); err != nil {
		return
	}
	b, err := c.ReadTimeout(c.Timeout)
	if err != nil {
		return
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func (c *Client) Version() (string, error) {
	return c.exchange(cmdVersion)
}

// ReadCoreMemory reads up to n bytes at addr, given in address text form. The
// server may return fewer when the read runs off the end of a region.
func (c *Client) ReadCoreMemory(addr string, n int) ([]byte, error) {
	rsp, err := c.exchange(fmt.Sprintf("%s %s %d", cmdRead, addr, n))
	if err != nil {
		return nil, err
	}

	fields, err := parseReply(cmdRead, rsp)
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("racmd: %s reply: bad byte %q", cmdRead, f)
		}
		data[i] = byte(v)
	}
	return data, nil
}

// WriteCoreMemory writes data at addr and returns the byte count the server
// reports as written.
func (c *Client) WriteCoreMemory(addr string, data []byte) (int, error) {
	var sb strings.Builder
	sb.WriteString(cmdWrite)
	sb.WriteByte(' ')
	sb.WriteString(addr)
	for _, v := range data {
		sb.WriteString(fmt.Sprintf(" %02x", v))
	}

	rsp, err := c.exchange(sb.String())
	if err != nil {
		return 0, err
	}

	fields, err := parseReply(cmdWrite, rsp)
	if err != nil {
		return 0, err
	}
	if len(fields) != 1 {
		return 0, fmt.Errorf("racmd: %s reply: %q", cmdWrite, rsp)
	}
	return strconv.Atoi(fields[0])
}

// parseReply checks the command echo and returns the fields after the address.
func parseReply(cmd, rsp string) ([]string, error) {
	fields := strings.Fields(rsp)
	if len(fields) < 2 || fields[0] != cmd {
		return nil, fmt.Errorf("racmd: unexpected reply %q", rsp)
	}
	rest := fields[2:]
	if len(rest) > 0 && rest[0] == "-1" {
		return nil, &CommandError{Command: cmd, Address: fields[1], Reason: strings.Join(rest[1:], " ")}
	}
	return rest, nil
}
