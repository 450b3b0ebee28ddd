package hal

import (
	"fmt"
	"strings"
	"sync"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPull selects the pull resistor configuration.
type GPIOPull uint8

const (
	GPIOPullNone GPIOPull = iota
	GPIOPullUp
	GPIOPullDown
)

// GPIOCaps declares what operations a pin supports.
type GPIOCaps uint8

const (
	GPIOCapInput GPIOCaps = 1 << iota
	GPIOCapOutput
	GPIOCapPullUp
	GPIOCapPullDown
)

func (c GPIOCaps) check(mode GPIOMode, pull GPIOPull) error {
	var need GPIOCaps
	switch mode {
	case GPIOModeInput:
		need = GPIOCapInput
	case GPIOModeOutput:
		need = GPIOCapOutput
	default:
		return fmt.Errorf("invalid mode %d", mode)
	}
	switch pull {
	case GPIOPullNone:
	case GPIOPullUp:
		need |= GPIOCapPullUp
	case GPIOPullDown:
		need |= GPIOCapPullDown
	default:
		return fmt.Errorf("invalid pull %d", pull)
	}
	if missing := need &^ c; missing != 0 {
		return fmt.Errorf("unsupported %s", missing)
	}
	return nil
}

func (c GPIOCaps) String() string {
	var parts []string
	for _, n := range []struct {
		c    GPIOCaps
		name string
	}{
		{GPIOCapInput, "input"},
		{GPIOCapOutput, "output"},
		{GPIOCapPullUp, "pull-up"},
		{GPIOCapPullDown, "pull-down"},
	} {
		if c&n.c != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// GPIO provides access to general-purpose IO pins. The host board names its
// pins LED, GPIO1, GPIO2 and so on.
type GPIO interface {
	PinCount() int
	Pin(id int) GPIOPin
}

// GPIOPin is a single digital IO pin.
type GPIOPin interface {
	Name() string
	Caps() GPIOCaps
	Configure(mode GPIOMode, pull GPIOPull) error
	Read() (level bool, err error)
	Write(level bool) error
	// Edges counts low-to-high transitions since boot.
	Edges() uint64
}

// FindPin returns the pin whose name matches (case-insensitive), or nil.
func FindPin(g GPIO, name string) GPIOPin {
	if g == nil {
		return nil
	}
	name = strings.TrimSpace(name)
	for i := 0; i < g.PinCount(); i++ {
		p := g.Pin(i)
		if p != nil && strings.EqualFold(p.Name(), name) {
			return p
		}
	}
	return nil
}

// Toggle inverts an output pin and returns the new level.
func Toggle(p GPIOPin) (bool, error) {
	level, err := p.Read()
	if err != nil {
		return false, err
	}
	if err := p.Write(!level); err != nil {
		return level, err
	}
	return !level, nil
}

type pinBank []GPIOPin

func (b pinBank) PinCount() int { return len(b) }

func (b pinBank) Pin(id int) GPIOPin {
	if id < 0 || id >= len(b) {
		return nil
	}
	return b[id]
}

// virtualPin is a latch. Unconfigured pins read as inputs pulled low.
type virtualPin struct {
	name string
	caps GPIOCaps
	// out mirrors the level to a device when set.
	out LED

	mu    sync.Mutex
	mode  GPIOMode
	level bool
	edges uint64
}

func newVirtualPin(name string, caps GPIOCaps) *virtualPin {
	return &virtualPin{name: name, caps: caps}
}

// newLEDPin is an output-only pin driving led.
func newLEDPin(name string, led LED) *virtualPin {
	p := newVirtualPin(name, GPIOCapOutput)
	p.out = led
	p.mode = GPIOModeOutput
	return p
}

func (p *virtualPin) Name() string   { return p.name }
func (p *virtualPin) Caps() GPIOCaps { return p.caps }

func (p *virtualPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if err := p.caps.check(mode, pull); err != nil {
		return fmt.Errorf("gpio: pin %s: %w", p.name, err)
	}
	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()
	return nil
}

func (p *virtualPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

func (p *virtualPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
	}
	if level && !p.level {
		p.edges++
	}
	p.level = level
	if p.out != nil {
		if level {
			p.out.High()
		} else {
			p.out.Low()
		}
	}
	return nil
}

func (p *virtualPin) Edges() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edges
}
