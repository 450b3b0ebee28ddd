package hal

import (
	"bytes"
	"strings"
	"testing"
)

func TestFindPin(t *testing.T) {
	h, err := newHost(HostConfig{Console: &bytes.Buffer{}, GPIOPins: 3})
	if err != nil {
		t.Fatalf("newHost: %v", err)
	}
	if got := h.GPIO().PinCount(); got != 4 {
		t.Fatalf("PinCount() = %d, want 4", got)
	}
	if p := FindPin(h.GPIO(), "gpio2"); p == nil || p.Name() != "GPIO2" {
		t.Fatalf("FindPin(gpio2) = %v, want GPIO2", p)
	}
	if p := FindPin(h.GPIO(), "GPIO9"); p != nil {
		t.Fatalf("FindPin(GPIO9) = %s, want nil", p.Name())
	}
	if p := FindPin(nil, "LED"); p != nil {
		t.Fatal("FindPin(nil) returned a pin")
	}
}

func TestVirtualPinToggle(t *testing.T) {
	pin := newVirtualPin("P", GPIOCapInput|GPIOCapOutput)

	if _, err := Toggle(pin); err == nil {
		t.Fatal("Toggle on input pin: want error")
	}
	if err := pin.Configure(GPIOModeOutput, GPIOPullUp); err == nil {
		t.Fatal("Configure pull-up without cap: want error")
	}
	if err := pin.Configure(GPIOModeOutput, GPIOPullNone); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	for i, want := range []bool{true, false, true} {
		level, err := Toggle(pin)
		if err != nil {
			t.Fatalf("Toggle #%d: %v", i, err)
		}
		if level != want {
			t.Fatalf("Toggle #%d = %v, want %v", i, level, want)
		}
	}
}

func TestLEDPinLogsEdges(t *testing.T) {
	var out bytes.Buffer
	h, err := newHost(HostConfig{Console: &out})
	if err != nil {
		t.Fatalf("newHost: %v", err)
	}
	pin := FindPin(h.GPIO(), "LED")
	if pin == nil {
		t.Fatal("no LED pin")
	}
	if err := pin.Configure(GPIOModeInput, GPIOPullNone); err == nil {
		t.Fatal("LED pin accepted input mode")
	}

	pin.Write(true)
	pin.Write(true)
	pin.Write(false)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{"led: HIGH", "led: LOW"}
	if len(lines) != len(want) || lines[0] != want[0] || lines[1] != want[1] {
		t.Fatalf("console = %q, want %q", lines, want)
	}
	if h.led.On() {
		t.Fatal("LED still on")
	}
	if got := pin.Edges(); got != 1 {
		t.Fatalf("Edges() = %d, want 1", got)
	}
}
