// Package hardware defines the peripheral capabilities the actuator tasks
// drive, plus the backends that implement them: a simulated backend for
// hosts without peripherals and a GPIO backend for Linux boards.
package hardware

import "io"

// Level is the logic level of a digital line.
type Level bool

const (
	// Low is logic 0
	Low Level = false

	// High is logic 1
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// TextDisplay is a character display addressed by column and row.
// Text written past the last column is dropped by the display.
type TextDisplay interface {
	Clear() error
	SetCursor(col, row int) error
	WriteText(s string) error
}

// ToneOutput drives a buzzer at a given frequency until stopped.
type ToneOutput interface {
	Start(freqHz uint32) error
	Stop() error
}

// DigitalOutput drives a single output line.
type DigitalOutput interface {
	Set(level Level) error
}

// DigitalInput samples a single input line.
type DigitalInput interface {
	Read() (Level, error)
}

// Devices bundles the peripherals of one node. Each peripheral is driven by
// exactly one task.
type Devices struct {
	Display   TextDisplay
	Tone      ToneOutput
	Indicator DigitalOutput
	Button    DigitalInput

	closers []io.Closer
}

// Close releases any backend resources (GPIO lines, chips).
func (d *Devices) Close() error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.closers = nil
	return firstErr
}
