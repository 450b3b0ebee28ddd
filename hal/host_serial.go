package hal

import (
	"fmt"
	"io"
	"sync"

	tty "github.com/mattn/go-tty"
)

// hostSerial shares the console lock with the logger so that lines from
// both never interleave.
type hostSerial struct {
	mu *sync.Mutex
	r  io.Reader
	w  io.Writer
}

func (s *hostSerial) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, ErrNotImplemented
	}
	return s.r.Read(p)
}

func (s *hostSerial) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, ErrNotImplemented
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// ttySerial is a real serial device put into raw mode.
type ttySerial struct {
	mu      sync.Mutex
	t       *tty.TTY
	restore func() error
}

func openTTYSerial(path string) (*ttySerial, error) {
	t, err := tty.OpenDevice(path)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", path, err)
	}
	restore, err := t.Raw()
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("serial: raw %s: %w", path, err)
	}
	return &ttySerial{t: t, restore: restore}, nil
}

func (s *ttySerial) Read(p []byte) (int, error) {
	return s.t.Input().Read(p)
}

func (s *ttySerial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.Output().Write(p)
}

func (s *ttySerial) Close() error {
	if s.restore != nil {
		s.restore()
	}
	return s.t.Close()
}
