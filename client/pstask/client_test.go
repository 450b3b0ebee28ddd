package pstask

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ember/hal"
)

type fakeConn struct {
	in      []byte
	out     bytes.Buffer
	up      bool
	dialErr error
	stops   int
}

func (f *fakeConn) Connect(context.Context) error {
	if f.dialErr != nil {
		return f.dialErr
	}
	f.up = true
	return nil
}

func (f *fakeConn) Connected() bool { return f.up }
func (f *fakeConn) Available() int  { return len(f.in) }

func (f *fakeConn) Read(p []byte) (int, error) {
	n := copy(p, f.in)
	f.in = f.in[n:]
	return n, nil
}

func (f *fakeConn) Write(p []byte) (int, error) {
	if !f.up {
		return 0, hal.ErrNotConnected
	}
	return f.out.Write(p)
}

func (f *fakeConn) Stop() error {
	f.up = false
	f.stops++
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestClient(t *testing.T, cb Callback) (*Client, *fakeConn, *fakeClock) {
	t.Helper()
	conn := &fakeConn{}
	clk := &fakeClock{now: time.Unix(1000, 0)}
	c := New(conn, cb, Options{
		Clock:  clk.Now,
		Idle:   func() { clk.Advance(time.Second) },
		Logger: zaptest.NewLogger(t),
	})
	return c, conn, clk
}

func connectedClient(t *testing.T, cb Callback) (*Client, *fakeConn, *fakeClock) {
	t.Helper()
	c, conn, clk := newTestClient(t, cb)
	conn.in = []byte{byte(ConnAck), 2, 0, 0}
	require.NoError(t, c.Connect(context.Background(), "ember"))
	conn.out.Reset()
	return c, conn, clk
}

func TestConnect(t *testing.T) {
	c, conn, _ := newTestClient(t, nil)
	conn.in = []byte{0x20, 2, 0, 0}

	require.NoError(t, c.Connect(context.Background(), "ember"))
	assert.True(t, c.Connected())
	assert.Equal(t, []byte{
		0x10, 13,
		0x00, 0x06, 0x01, 0x02,
		0x00, 0x0F,
		0x00, 0x05, 'e', 'm', 'b', 'e', 'r',
	}, conn.out.Bytes())
	assert.Empty(t, conn.in)

	require.ErrorIs(t, c.Connect(context.Background(), "ember"), ErrAlreadyStarted)
}

func TestConnectRefused(t *testing.T) {
	c, conn, _ := newTestClient(t, nil)
	conn.in = []byte{0x20, 2, 0, 5}

	err := c.Connect(context.Background(), "ember")
	require.ErrorIs(t, err, ErrRefused)
	assert.Contains(t, err.Error(), "code 5")
	assert.False(t, conn.up)
}

func TestConnectTimeout(t *testing.T) {
	c, conn, clk := newTestClient(t, nil)
	start := clk.now

	require.ErrorIs(t, c.Connect(context.Background(), "ember"), ErrTimeout)
	assert.False(t, conn.up)
	assert.Greater(t, clk.now.Sub(start), DefaultKeepAlive)
}

func TestConnectDialError(t *testing.T) {
	c, conn, _ := newTestClient(t, nil)
	conn.dialErr = errors.New("no route")
	require.EqualError(t, c.Connect(context.Background(), "ember"), "no route")
	assert.Zero(t, conn.out.Len())
}

func TestConnectDefaultID(t *testing.T) {
	c, conn, _ := newTestClient(t, nil)
	conn.in = []byte{0x20, 2, 0, 0}
	require.NoError(t, c.Connect(context.Background(), ""))

	out := conn.out.Bytes()
	idLen := int(out[8])<<8 | int(out[9])
	id := string(out[10 : 10+idLen])
	assert.True(t, strings.HasPrefix(id, "ember-"), id)
	assert.Len(t, id, 14)
}

func TestPublish(t *testing.T) {
	c, conn, _ := connectedClient(t, nil)

	require.NoError(t, c.Publish("t", []byte("hi"), true))
	assert.Equal(t, []byte{0x31, 5, 0, 1, 't', 'h', 'i'}, conn.out.Bytes())

	conn.out.Reset()
	err := c.Publish("t", bytes.Repeat([]byte{'x'}, 130), false)
	require.ErrorIs(t, err, ErrPacketTooLarge)
	assert.Zero(t, conn.out.Len())
}

func TestSubscribe(t *testing.T) {
	c, conn, _ := connectedClient(t, nil)

	require.NoError(t, c.Subscribe("a", 1))
	assert.Equal(t, []byte{0x82, 6, 0, 2, 0, 1, 'a', 1}, conn.out.Bytes())

	require.ErrorIs(t, c.Subscribe("a", 2), ErrInvalidQoS)
}

func TestMessageIDSkipsZero(t *testing.T) {
	c, conn, _ := connectedClient(t, nil)
	c.nextMsgID = 0xFFFF

	require.NoError(t, c.Unsubscribe("a"))
	assert.Equal(t, []byte{0xA2, 5, 0, 1, 0, 1, 'a'}, conn.out.Bytes())
}

func TestLoopPublishQoS1(t *testing.T) {
	var got []Message
	c, conn, _ := connectedClient(t, func(m Message) { got = append(got, m) })
	conn.in = []byte{0x32, 9, 0, 3, 'a', '/', 'b', 0, 7, 'x', 'y'}

	require.NoError(t, c.Loop())
	require.Len(t, got, 1)
	assert.Equal(t, Message{Topic: "a/b", Payload: []byte("xy"), MsgID: 7, QoS: 1}, got[0])
	assert.Equal(t, []byte{0x40, 2, 0, 7}, conn.out.Bytes())
}

func TestLoopPublishQoS0(t *testing.T) {
	var got []Message
	c, conn, _ := connectedClient(t, func(m Message) { got = append(got, m) })
	conn.in = []byte{0x31, 6, 0, 1, 't', 'h', 'e', 'y'}

	require.NoError(t, c.Loop())
	require.Len(t, got, 1)
	assert.Equal(t, Message{Topic: "t", Payload: []byte("hey"), Retained: true}, got[0])
	assert.Zero(t, conn.out.Len(), "no ack for qos 0")
}

func TestLoopAnswersPing(t *testing.T) {
	c, conn, _ := connectedClient(t, nil)
	conn.in = []byte{0xC0, 0}

	require.NoError(t, c.Loop())
	assert.Equal(t, []byte{0xD0, 0}, conn.out.Bytes())
}

func TestLoopKeepAlive(t *testing.T) {
	c, conn, clk := connectedClient(t, nil)

	require.NoError(t, c.Loop())
	assert.Zero(t, conn.out.Len(), "idle within keepalive")

	clk.Advance(16 * time.Second)
	require.NoError(t, c.Loop())
	assert.Equal(t, []byte{0xC0, 0}, conn.out.Bytes())

	conn.in = []byte{0xD0, 0}
	require.NoError(t, c.Loop())
	assert.False(t, c.pingOutstanding)

	clk.Advance(16 * time.Second)
	require.NoError(t, c.Loop())
	assert.True(t, c.pingOutstanding)

	clk.Advance(16 * time.Second)
	require.ErrorIs(t, c.Loop(), ErrTimeout)
	assert.False(t, conn.up)
	require.ErrorIs(t, c.Loop(), hal.ErrNotConnected)
}

func TestLoopDropsOversizedPacket(t *testing.T) {
	called := false
	c, conn, _ := connectedClient(t, func(Message) { called = true })
	conn.in = append([]byte{0x30, 0xC8, 0x01}, make([]byte, 200)...)

	require.NoError(t, c.Loop())
	assert.False(t, called)
	assert.Empty(t, conn.in)
	assert.True(t, c.Connected())
}

func TestDisconnect(t *testing.T) {
	c, conn, _ := connectedClient(t, nil)

	require.NoError(t, c.Disconnect())
	assert.Equal(t, []byte{0xE0, 0}, conn.out.Bytes())
	assert.False(t, c.Connected())
	require.ErrorIs(t, c.Publish("t", nil, false), hal.ErrNotConnected)
}

func TestAppendLength(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0}},
		{127, []byte{127}},
		{128, []byte{0x80, 0x01}},
		{200, []byte{0xC8, 0x01}},
		{16383, []byte{0xFF, 0x7F}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, appendLength(nil, tt.n), "n=%d", tt.n)
	}
}

func TestPacketTypeString(t *testing.T) {
	assert.Equal(t, "CONNACK", ConnAck.String())
	assert.Equal(t, "packet(0xf0)", PacketType(0xF0).String())
}
