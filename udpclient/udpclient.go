package udpclient

import (
	"errors"
	"fmt"
	"go.uber.org/atomic"
	"log"
	"net"
	"time"
)

var (
	ErrTimeout      = errors.New("udpclient: timed out")
	ErrDisconnected = errors.New("udpclient: disconnected")
)

// UDPClient exchanges datagrams with a single server over a pair of
// channels serviced by a read loop and a write loop.
type UDPClient struct {
	name string

	c *net.UDPConn

	isConnected atomic.Bool
	read        chan []byte
	write       chan []byte

	addr string
}

func NewUDPClient(name string) *UDPClient {
	return MakeUDPClient(name, &UDPClient{})
}

func MakeUDPClient(name string, c *UDPClient) *UDPClient {
	c.name = name
	c.read = make(chan []byte, 64)
	c.write = make(chan []byte, 64)
	return c
}

func (c *UDPClient) Name() string { return c.name }
func (c *UDPClient) Addr() string { return c.addr }

func (c *UDPClient) Write() chan<- []byte { return c.write }
func (c *UDPClient) Read() <-chan []byte  { return c.read }

func (c *UDPClient) IsConnected() bool { return c.isConnected.Load() }

// Connect dials addr in host:port form and starts the read and write loops.
func (c *UDPClient) Connect(addr string) (err error) {
	log.Printf("%s: connect to server '%s'\n", c.name, addr)

	if c.isConnected.Load() {
		return fmt.Errorf("%s: already connected", c.name)
	}

	c.addr = addr

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return
	}

	c.c, err = net.DialUDP("udp", nil, raddr)
	if err != nil {
		return
	}

	c.isConnected.Store(true)
	log.Printf("%s: connected to server '%s'\n", c.name, addr)

	go c.readLoop(c.c)
	go c.writeLoop(c.c)

	return
}

func (c *UDPClient) Disconnect() {
	// both loops call this on exit; only the first one tears down.
	if !c.isConnected.CompareAndSwap(true, false) {
		return
	}

	log.Printf("%s: disconnect from server '%s'\n", c.name, c.addr)

	err := c.c.SetReadDeadline(time.Now())
	if err != nil {
		log.Printf("%s: setreaddeadline: %v\n", c.name, err)
	}

	err = c.c.SetWriteDeadline(time.Now())
	if err != nil {
		log.Printf("%s: setwritedeadline: %v\n", c.name, err)
	}

	// signal a disconnect took place:
	select {
	case c.read <- nil:
	default:
	}
	select {
	case c.write <- nil:
	default:
	}

	// close the underlying connection:
	err = c.c.Close()
	if err != nil {
		log.Printf("%s: close: %v\n", c.name, err)
	}

	log.Printf("%s: disconnected from server '%s'\n", c.name, c.addr)
}

// WriteTimeout queues a datagram for sending.
func (c *UDPClient) WriteTimeout(b []byte, timeout time.Duration) error {
	if !c.isConnected.Load() {
		return ErrDisconnected
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c.write <- b:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

// ReadTimeout waits for the next datagram from the server.
func (c *UDPClient) ReadTimeout(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case b := <-c.read:
		if b == nil {
			return nil, ErrDisconnected
		}
		return b, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Drain discards datagrams that arrived after their reader gave up.
func (c *UDPClient) Drain() {
	for {
		select {
		case b := <-c.read:
			if b == nil {
				return
			}
		default:
			return
		}
	}
}

// must run in a goroutine
func (c *UDPClient) readLoop(conn *net.UDPConn) {
	log.Printf("%s: readLoop started\n", c.name)

	defer func() {
		c.Disconnect()
		log.Printf("%s: disconnected; readLoop exited\n", c.name)
	}()

	// we only need a single receive buffer:
	b := make([]byte, 65536)

	for c.isConnected.Load() {
		// wait for a packet from UDP socket:
		var n, _, err = conn.ReadFromUDP(b)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && c.isConnected.Load() {
				log.Print(err)
			}
			return
		}

		// copy the envelope:
		envelope := make([]byte, n)
		copy(envelope, b[:n])

		c.read <- envelope
	}
}

// must run in a goroutine
func (c *UDPClient) writeLoop(conn *net.UDPConn) {
	log.Printf("%s: writeLoop started\n", c.name)

	defer func() {
		c.Disconnect()
		log.Printf("%s: disconnected; writeLoop exited\n", c.name)
	}()

	for w := range c.write {
		if w == nil {
			return
		}

		var _, err = conn.Write(w)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Print(err)
			}
			return
		}
	}
}
