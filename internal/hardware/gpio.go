package hardware

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOConfig selects the chip and line offsets used by the GPIO backend.
type GPIOConfig struct {
	Chip       string // e.g. "gpiochip0"
	LEDLine    int
	ButtonLine int
	BuzzerLine int
	Columns    int
}

// GPIOLine adapts a requested gpiocdev line to DigitalOutput and DigitalInput.
type GPIOLine struct {
	line *gpiocdev.Line
}

func (l *GPIOLine) Set(level Level) error {
	v := 0
	if level == High {
		v = 1
	}
	return l.line.SetValue(v)
}

func (l *GPIOLine) Read() (Level, error) {
	v, err := l.line.Value()
	if err != nil {
		return Low, err
	}
	return Level(v != 0), nil
}

func (l *GPIOLine) Close() error {
	return l.line.Close()
}

// GPIOTone drives a passive buzzer by toggling an output line at the
// requested frequency from a background goroutine.
type GPIOTone struct {
	line *gpiocdev.Line

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (t *GPIOTone) Start(freqHz uint32) error {
	if freqHz == 0 {
		return t.Stop()
	}
	if err := t.Stop(); err != nil {
		return err
	}

	halfPeriod := halfPeriodOf(freqHz)
	stop := make(chan struct{})
	done := make(chan struct{})

	t.mu.Lock()
	t.stop, t.done = stop, done
	t.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(halfPeriod)
		defer ticker.Stop()
		v := 0
		for {
			select {
			case <-stop:
				_ = t.line.SetValue(0)
				return
			case <-ticker.C:
				v ^= 1
				_ = t.line.SetValue(v)
			}
		}
	}()
	return nil
}

// minHalfPeriod bounds the toggle rate of the software square wave.
const minHalfPeriod = time.Microsecond

// halfPeriodOf returns the time between line toggles for freqHz, never less
// than minHalfPeriod.
func halfPeriodOf(freqHz uint32) time.Duration {
	if freqHz == 0 {
		return 0
	}
	half := time.Second / (2 * time.Duration(freqHz))
	if half < minHalfPeriod {
		return minHalfPeriod
	}
	return half
}

func (t *GPIOTone) Stop() error {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (t *GPIOTone) Close() error {
	_ = t.Stop()
	return t.line.Close()
}

// NewGPIODevices requests the LED, button and buzzer lines from a GPIO chip.
// The character display has no kernel line interface, so it is rendered to
// the log by a SimDisplay.
func NewGPIODevices(cfg GPIOConfig) (*Devices, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer("tablenode"))
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", cfg.Chip, err)
	}

	devices := &Devices{}
	devices.closers = append(devices.closers, chip)

	led, err := chip.RequestLine(cfg.LEDLine, gpiocdev.AsOutput(0))
	if err != nil {
		devices.Close()
		return nil, fmt.Errorf("failed to request LED line %d: %w", cfg.LEDLine, err)
	}
	ledLine := &GPIOLine{line: led}
	devices.closers = append(devices.closers, ledLine)

	button, err := chip.RequestLine(cfg.ButtonLine, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		devices.Close()
		return nil, fmt.Errorf("failed to request button line %d: %w", cfg.ButtonLine, err)
	}
	buttonLine := &GPIOLine{line: button}
	devices.closers = append(devices.closers, buttonLine)

	buzzer, err := chip.RequestLine(cfg.BuzzerLine, gpiocdev.AsOutput(0))
	if err != nil {
		devices.Close()
		return nil, fmt.Errorf("failed to request buzzer line %d: %w", cfg.BuzzerLine, err)
	}
	tone := &GPIOTone{line: buzzer}
	devices.closers = append(devices.closers, tone)

	devices.Display = NewSimDisplay(cfg.Columns, 2, true)
	devices.Tone = tone
	devices.Indicator = ledLine
	devices.Button = buttonLine

	log.Printf("[INFO] GPIO devices ready on %s (led=%d button=%d buzzer=%d)",
		cfg.Chip, cfg.LEDLine, cfg.ButtonLine, cfg.BuzzerLine)

	return devices, nil
}
