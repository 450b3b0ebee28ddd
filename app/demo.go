package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ember/client/pstask"
	"ember/hal"
	"ember/kernel"
	"ember/services/trace"
)

// Demo workload pins.
const (
	pulsePin = "GPIO2"
	blinkPin = "GPIO3"
)

// Periodic pulse timing in kernel ticks.
const (
	pulsePeriod = 20
	pulseWCET   = 2
)

type demo struct {
	s   *system
	ctx context.Context
	log *zap.Logger

	svc   *kernel.Service
	count int16
	last  int16
}

func newDemo(ctx context.Context, s *system) *demo {
	return &demo{s: s, ctx: ctx, log: s.log.Named("demo")}
}

// main is the boot task. It sets up the workload and returns.
func (d *demo) main(c *kernel.Context) {
	d.svc = c.NewService()
	if d.svc == nil {
		return
	}

	c.CreateTask(kernel.TaskSpec{Entry: d.subscriber, Level: kernel.System, Name: trace.System1})
	c.CreateTask(kernel.TaskSpec{
		Entry:  d.pulse,
		Level:  kernel.Periodic,
		Name:   trace.Periodic1,
		Period: pulsePeriod,
		WCET:   pulseWCET,
	})
	c.CreateTask(kernel.TaskSpec{Entry: d.blink, Level: kernel.RoundRobin, Name: trace.RoundRobin1})
	c.CreateTask(kernel.TaskSpec{Entry: d.publisher, Level: kernel.RoundRobin, Name: trace.RoundRobin2})
	if d.s.cfg.Client.Broker != "" {
		c.CreateTask(kernel.TaskSpec{Entry: d.uplink, Level: kernel.RoundRobin, Name: trace.RoundRobin3})
	}
	d.log.Info("workload started", zap.Int("services", 1))
}

func (d *demo) pin(name string) hal.GPIOPin {
	p := hal.FindPin(d.s.h.GPIO(), name)
	if p == nil {
		return nil
	}
	if err := p.Configure(hal.GPIOModeOutput, hal.GPIOPullNone); err != nil {
		d.log.Warn("pin unavailable", zap.String("pin", name), zap.Error(err))
		return nil
	}
	return p
}

// pulse raises its pin for a millisecond once per period.
func (d *demo) pulse(c *kernel.Context) {
	p := d.pin(pulsePin)
	for {
		if p != nil {
			p.Write(true)
		}
		c.Delay(time.Millisecond)
		if p != nil {
			p.Write(false)
		}
		c.Yield()
	}
}

// blink holds its pin high for 50ms and low for 10ms.
func (d *demo) blink(c *kernel.Context) {
	p := d.pin(blinkPin)
	for {
		if p != nil {
			p.Write(true)
		}
		c.Delay(50 * time.Millisecond)
		if p != nil {
			p.Write(false)
		}
		c.Delay(10 * time.Millisecond)
	}
}

// publisher counts up on the service every 25ms.
func (d *demo) publisher(c *kernel.Context) {
	for {
		c.Delay(25 * time.Millisecond)
		d.count++
		c.Publish(d.svc, d.count)
	}
}

func (d *demo) subscriber(c *kernel.Context) {
	for {
		var v int16
		c.Subscribe(d.svc, &v)
		d.last = v
		if v%100 == 0 {
			d.log.Debug("service value", zap.Int16("value", v), zap.Uint64("tick", c.Ticks()))
		}
	}
}

// uplink mirrors the service value to the broker once a second and accepts
// commands on <topic>/cmd.
func (d *demo) uplink(c *kernel.Context) {
	cfg := d.s.cfg.Client
	epoch := time.Now()
	cl := pstask.New(d.s.h.Network().Client(cfg.Broker), func(m pstask.Message) {
		d.command(c, m)
	}, pstask.Options{
		KeepAlive: d.s.cfg.GetKeepAlive(),
		Clock:     func() time.Time { return epoch.Add(c.Now()) },
		Idle:      func() { c.Delay(time.Millisecond) },
		Logger:    d.log.Named("pstask"),
	})

	var lastPub time.Duration
	for {
		if !cl.Connected() {
			if err := cl.Connect(d.ctx, cfg.ID); err != nil {
				d.log.Warn("uplink connect failed", zap.String("broker", cfg.Broker), zap.Error(err))
				c.Delay(time.Second)
				continue
			}
			if err := cl.Subscribe(cfg.Topic+"/cmd", 1); err != nil {
				d.log.Warn("uplink subscribe failed", zap.Error(err))
			}
		}

		if err := cl.Loop(); err != nil {
			d.log.Warn("uplink lost", zap.Error(err))
			continue
		}
		if now := c.Now(); now-lastPub >= time.Second {
			lastPub = now
			payload := strconv.AppendInt(nil, int64(d.last), 10)
			if err := cl.Publish(cfg.Topic, payload, false); err != nil {
				d.log.Warn("uplink publish failed", zap.Error(err))
			}
		}
		c.Yield()
	}
}

func (d *demo) command(c *kernel.Context, m pstask.Message) {
	cmd := strings.TrimSpace(string(m.Payload))
	d.log.Info("uplink command", zap.String("topic", m.Topic), zap.String("cmd", cmd))
	switch cmd {
	case "abort":
		c.Abort()
	case "reset":
		d.count = 0
	}
}
