// Package pstask is a small publish/subscribe protocol client that runs over
// any hal.Client byte stream. It is driven by polling: call Loop regularly
// from the owning task.
package pstask

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ember/hal"
)

// DefaultKeepAlive is used when Options.KeepAlive is zero.
const DefaultKeepAlive = 15 * time.Second

var (
	ErrTimeout        = errors.New("pstask: keepalive timeout")
	ErrRefused        = errors.New("pstask: connection refused")
	ErrInvalidQoS     = errors.New("pstask: qos must be 0 or 1")
	ErrAlreadyStarted = errors.New("pstask: already connected")
)

// Callback receives every incoming PUBLISH.
type Callback func(m Message)

type Options struct {
	KeepAlive time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Idle is called while waiting for bytes. It defaults to
	// runtime.Gosched; a kernel task passes its Delay.
	Idle   func()
	Logger *zap.Logger
}

type Client struct {
	conn hal.Client
	cb   Callback
	opts Options
	log  *zap.Logger

	nextMsgID       uint16
	lastIn          time.Time
	lastOut         time.Time
	pingOutstanding bool
}

// DefaultID returns a random client id.
func DefaultID() string {
	return "ember-" + uuid.NewString()[:8]
}

func New(conn hal.Client, cb Callback, opts Options) *Client {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Idle == nil {
		opts.Idle = runtime.Gosched
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{conn: conn, cb: cb, opts: opts, log: opts.Logger}
}

// Connected reports whether the session is up. A dropped stream is stopped.
func (c *Client) Connected() bool {
	if c.conn == nil {
		return false
	}
	if !c.conn.Connected() {
		c.conn.Stop()
		return false
	}
	return true
}

// Connect opens the stream, sends CONNECT and waits for CONNACK for at most
// one keepalive interval.
func (c *Client) Connect(ctx context.Context, id string) error {
	if c.conn == nil {
		return hal.ErrNotConnected
	}
	if c.Connected() {
		return ErrAlreadyStarted
	}
	if id == "" {
		id = DefaultID()
	}
	if err := c.conn.Connect(ctx); err != nil {
		return err
	}

	c.nextMsgID = 1
	pkt, err := encodeConnect(id, uint16(c.opts.KeepAlive/time.Second))
	if err != nil {
		c.conn.Stop()
		return err
	}
	if err := c.write(pkt); err != nil {
		c.conn.Stop()
		return err
	}
	c.lastIn = c.lastOut

	for c.conn.Available() == 0 {
		if err := ctx.Err(); err != nil {
			c.conn.Stop()
			return err
		}
		if c.opts.Clock().Sub(c.lastIn) > c.opts.KeepAlive {
			c.conn.Stop()
			return ErrTimeout
		}
		c.opts.Idle()
	}

	p, err := c.readPacket()
	if err != nil {
		c.conn.Stop()
		return err
	}
	if p.Type() != ConnAck || len(p.Body) != 2 || p.Body[1] != 0 {
		c.conn.Stop()
		if p.Type() == ConnAck && len(p.Body) == 2 {
			return fmt.Errorf("%w: code %d", ErrRefused, p.Body[1])
		}
		return fmt.Errorf("%w: unexpected %s", ErrRefused, p.Type())
	}
	c.lastIn = c.opts.Clock()
	c.pingOutstanding = false
	c.log.Info("pstask connected", zap.String("id", id))
	return nil
}

// Loop services the session once: keepalive first, then at most one
// incoming packet. It returns an error once the session is gone.
func (c *Client) Loop() error {
	if !c.Connected() {
		return hal.ErrNotConnected
	}

	t := c.opts.Clock()
	if t.Sub(c.lastIn) > c.opts.KeepAlive || t.Sub(c.lastOut) > c.opts.KeepAlive {
		if c.pingOutstanding {
			c.log.Warn("pstask ping unanswered")
			c.conn.Stop()
			return ErrTimeout
		}
		if err := c.write(encodeEmpty(PingReq)); err != nil {
			return err
		}
		c.lastOut = t
		c.lastIn = t
		c.pingOutstanding = true
	}

	if c.conn.Available() == 0 {
		return nil
	}
	p, err := c.readPacket()
	if err != nil {
		return err
	}
	if p.Header == 0 {
		return nil
	}
	c.lastIn = t

	switch p.Type() {
	case Publish:
		m, err := decodePublish(p)
		if err != nil {
			c.log.Warn("pstask dropped publish", zap.Error(err))
			return nil
		}
		if c.cb != nil {
			c.cb(m)
		}
		if m.QoS == 1 {
			if err := c.write(encodeAck(PubAck, m.MsgID)); err != nil {
				return err
			}
		}
	case PingReq:
		return c.write(encodeEmpty(PingResp))
	case PingResp:
		c.pingOutstanding = false
	default:
		c.log.Debug("pstask ignored packet", zap.Stringer("type", p.Type()))
	}
	return nil
}

func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if !c.Connected() {
		return hal.ErrNotConnected
	}
	pkt, err := encodePublish(topic, payload, retained)
	if err != nil {
		return err
	}
	return c.write(pkt)
}

func (c *Client) Subscribe(topic string, qos uint8) error {
	if qos > 1 {
		return ErrInvalidQoS
	}
	if !c.Connected() {
		return hal.ErrNotConnected
	}
	pkt, err := encodeSubscribe(c.msgID(), topic, qos)
	if err != nil {
		return err
	}
	return c.write(pkt)
}

func (c *Client) Unsubscribe(topic string) error {
	if !c.Connected() {
		return hal.ErrNotConnected
	}
	pkt, err := encodeUnsubscribe(c.msgID(), topic)
	if err != nil {
		return err
	}
	return c.write(pkt)
}

// Disconnect sends DISCONNECT and closes the stream.
func (c *Client) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	err := c.write(encodeEmpty(Disconnect))
	if stopErr := c.conn.Stop(); err == nil {
		err = stopErr
	}
	return err
}

// msgID advances the message id, skipping zero.
func (c *Client) msgID() uint16 {
	c.nextMsgID++
	if c.nextMsgID == 0 {
		c.nextMsgID = 1
	}
	return c.nextMsgID
}

func (c *Client) write(pkt []byte) error {
	n, err := c.conn.Write(pkt)
	c.lastOut = c.opts.Clock()
	if err != nil {
		return fmt.Errorf("pstask: write %s: %w", PacketType(pkt[0]&0xF0), err)
	}
	if n != len(pkt) {
		return fmt.Errorf("pstask: write %s: %w", PacketType(pkt[0]&0xF0), io.ErrShortWrite)
	}
	return nil
}

// readByte waits for one byte, giving up after a keepalive without input.
func (c *Client) readByte() (byte, error) {
	start := c.opts.Clock()
	for c.conn.Available() == 0 {
		if !c.conn.Connected() {
			return 0, io.ErrUnexpectedEOF
		}
		if c.opts.Clock().Sub(start) > c.opts.KeepAlive {
			return 0, ErrTimeout
		}
		c.opts.Idle()
	}
	var b [1]byte
	if _, err := c.conn.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// readPacket reads one whole packet. Packets larger than MaxPacketSize are
// consumed and returned as the zero Packet.
func (c *Client) readPacket() (Packet, error) {
	header, err := c.readByte()
	if err != nil {
		return Packet{}, err
	}

	length, multiplier, llen := 0, 1, 0
	for {
		digit, err := c.readByte()
		if err != nil {
			return Packet{}, err
		}
		llen++
		length += int(digit&127) * multiplier
		multiplier *= 128
		if digit&128 == 0 {
			break
		}
		if llen == 4 {
			return Packet{}, ErrMalformed
		}
	}

	body := make([]byte, 0, min(length, MaxPacketSize))
	for i := 0; i < length; i++ {
		b, err := c.readByte()
		if err != nil {
			return Packet{}, err
		}
		if 1+llen+len(body) < MaxPacketSize {
			body = append(body, b)
		}
	}
	if 1+llen+length > MaxPacketSize {
		c.log.Warn("pstask dropped oversized packet",
			zap.Stringer("type", PacketType(header&0xF0)), zap.Int("length", length))
		return Packet{}, nil
	}
	return Packet{Header: header, Body: body}, nil
}
