package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HostConfig selects the devices of the host HAL.
type HostConfig struct {
	// SerialDevice is a tty path for the diagnostic sink. Empty means stdout.
	SerialDevice string
	// Console receives logger lines. Nil means stdout.
	Console io.Writer
	Width   int
	Height  int
	// GPIOPins is the number of virtual GPIO pins besides the LED pin.
	GPIOPins int
}

const ledPinName = "LED"

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	gpio   GPIO
	fb     *hostFramebuffer
	t      *hostTime
	net    Network
	serial Serial
	closer io.Closer
}

// New returns a host HAL on stdout.
func New() HAL {
	h, err := newHost(HostConfig{})
	if err != nil {
		panic(err)
	}
	return h
}

func newHost(cfg HostConfig) (*hostHAL, error) {
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if cfg.Width <= 0 {
		cfg.Width = 320
	}
	if cfg.Height <= 0 {
		cfg.Height = 320
	}
	if cfg.GPIOPins <= 0 {
		cfg.GPIOPins = 7
	}

	logger := &hostLogger{w: cfg.Console}
	led := &hostLED{logger: logger}
	pins := []GPIOPin{newLEDPin(ledPinName, led)}
	for i := 0; i < cfg.GPIOPins; i++ {
		pins = append(pins, newVirtualPin(fmt.Sprintf("GPIO%d", i+1), GPIOCapInput|GPIOCapOutput|GPIOCapPullUp|GPIOCapPullDown))
	}

	h := &hostHAL{
		logger: logger,
		led:    led,
		gpio:   pinBank(pins),
		fb:     newHostFramebuffer(cfg.Width, cfg.Height),
		t:      newHostTime(1024),
		net:    tcpNetwork{},
		serial: &hostSerial{mu: &logger.mu, r: os.Stdin, w: cfg.Console},
	}
	if cfg.SerialDevice != "" {
		s, err := openTTYSerial(cfg.SerialDevice)
		if err != nil {
			return nil, err
		}
		h.serial = s
		h.closer = s
	}
	return h, nil
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) GPIO() GPIO       { return h.gpio }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }
func (h *hostHAL) Network() Network { return h.net }
func (h *hostHAL) Serial() Serial   { return h.serial }

func (h *hostHAL) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

// hostLED logs edges only.
type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() { l.set(true) }
func (l *hostLED) Low()  { l.set(false) }

func (l *hostLED) set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on == on {
		return
	}
	l.on = on
	if on {
		l.logger.WriteLineString("led: HIGH")
	} else {
		l.logger.WriteLineString("led: LOW")
	}
}

func (l *hostLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
