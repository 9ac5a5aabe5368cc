// Package indicator blinks the status LED.
package indicator

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/dyluth/tablenode/internal/clock"
	"github.com/dyluth/tablenode/internal/hardware"
)

const (
	// DefaultOn is how long the LED stays lit each cycle
	DefaultOn = time.Second

	// DefaultOff is how long the LED stays dark each cycle
	DefaultOff = time.Second
)

// Blinker drives a digital output high for On, low for Off, forever.
type Blinker struct {
	out     hardware.DigitalOutput
	on, off time.Duration
	sleep   clock.SleepFunc
	cycles  atomic.Uint64
}

// Option customises a Blinker.
type Option func(*Blinker)

// WithPeriod sets the on and off times. Non-positive values keep the defaults.
func WithPeriod(on, off time.Duration) Option {
	return func(b *Blinker) {
		if on > 0 {
			b.on = on
		}
		if off > 0 {
			b.off = off
		}
	}
}

// WithSleep replaces the blink timer.
func WithSleep(sleep clock.SleepFunc) Option {
	return func(b *Blinker) { b.sleep = sleep }
}

// New creates a blinker on out.
func New(out hardware.DigitalOutput, opts ...Option) *Blinker {
	b := &Blinker{out: out, on: DefaultOn, off: DefaultOff, sleep: clock.Sleep}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Cycles returns the number of completed on/off cycles.
func (b *Blinker) Cycles() uint64 {
	return b.cycles.Load()
}

// Run blinks until ctx is cancelled, then leaves the output low.
func (b *Blinker) Run(ctx context.Context) error {
	log.Printf("[DEBUG] Indicator starting (on=%s, off=%s)", b.on, b.off)
	defer b.set(hardware.Low)

	for {
		b.set(hardware.High)
		if err := b.sleep(ctx, b.on); err != nil {
			return nil
		}
		b.set(hardware.Low)
		if err := b.sleep(ctx, b.off); err != nil {
			return nil
		}
		b.cycles.Add(1)
	}
}

func (b *Blinker) set(level hardware.Level) {
	if err := b.out.Set(level); err != nil {
		log.Printf("[WARN] Indicator set %s failed: %v", level, err)
	}
}
