package hal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

type tcpNetwork struct{}

func (tcpNetwork) Client(addr string) Client { return NewTCPClient(addr) }

// TCPClient buffers everything the peer sends so that Available and Read
// never block the caller.
type TCPClient struct {
	addr   string
	dialer net.Dialer

	mu   sync.Mutex
	conn net.Conn
	buf  []byte
	err  error
	done chan struct{}
}

// NewTCPClient returns an unconnected client for addr.
func NewTCPClient(addr string) *TCPClient {
	return &TCPClient{addr: addr, dialer: net.Dialer{Timeout: 5 * time.Second}}
}

func (c *TCPClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", c.addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.buf = c.buf[:0]
	c.err = nil
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.receive(conn, done)
	return nil
}

func (c *TCPClient) receive(conn net.Conn, done chan struct{}) {
	defer close(done)
	var chunk [256]byte
	for {
		n, err := conn.Read(chunk[:])
		c.mu.Lock()
		c.buf = append(c.buf, chunk[:n]...)
		if err != nil {
			c.err = err
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// Connected reports whether the stream is open. Buffered bytes that
// arrived before the peer closed are still readable.
func (c *TCPClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && (c.err == nil || len(c.buf) > 0)
}

func (c *TCPClient) Available() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

func (c *TCPClient) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return 0, ErrNotConnected
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	if n == 0 && c.err != nil {
		if errors.Is(c.err, net.ErrClosed) {
			return 0, io.EOF
		}
		return 0, c.err
	}
	return n, nil
}

func (c *TCPClient) Write(p []byte) (int, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return 0, ErrNotConnected
	}
	return conn.Write(p)
}

// Stop closes the connection and waits for the receiver to exit.
func (c *TCPClient) Stop() error {
	c.mu.Lock()
	conn, done := c.conn, c.done
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	return err
}
