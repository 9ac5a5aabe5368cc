// Package button senses presses on the user button and publishes them as
// short or long press events.
package button

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/dyluth/tablenode/internal/clock"
	"github.com/dyluth/tablenode/internal/hardware"
	"github.com/dyluth/tablenode/pkg/payload"
)

const (
	// DefaultPollInterval is how often the button line is sampled
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultLongPress is the shortest press classified as long
	DefaultLongPress = 500 * time.Millisecond

	publishTimeout = 2 * time.Second
)

// Publisher is the part of the link the sensor needs.
type Publisher interface {
	IsConnected() bool
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Config controls press detection.
type Config struct {
	Topic        string
	PollInterval time.Duration
	// LongPress is the shortest press classified as long.
	LongPress time.Duration
	// ActiveLow means the line reads low while pressed (pull-up wiring).
	ActiveLow bool
}

// Stats counts sensor activity.
type Stats struct {
	Presses   uint64 `json:"presses"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// Sensor polls a digital input and reports completed presses.
type Sensor struct {
	in    hardware.DigitalInput
	pub   Publisher
	codec payload.Codec
	cfg   Config
	now   clock.NowFunc
	sleep clock.SleepFunc

	pressed   bool
	pressedAt time.Time

	presses   atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
}

// Option customises a Sensor.
type Option func(*Sensor)

// WithClock replaces the time source and poll timer.
func WithClock(now clock.NowFunc, sleep clock.SleepFunc) Option {
	return func(s *Sensor) {
		s.now = now
		s.sleep = sleep
	}
}

// WithCodec selects the payload codec for published events.
func WithCodec(c payload.Codec) Option {
	return func(s *Sensor) { s.codec = c }
}

// New creates a sensor reading in and publishing through pub.
func New(in hardware.DigitalInput, pub Publisher, cfg Config, opts ...Option) *Sensor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.LongPress <= 0 {
		cfg.LongPress = DefaultLongPress
	}
	s := &Sensor{
		in:    in,
		pub:   pub,
		codec: payload.JSON,
		cfg:   cfg,
		now:   time.Now,
		sleep: clock.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns a snapshot of the counters.
func (s *Sensor) Stats() Stats {
	return Stats{
		Presses:   s.presses.Load(),
		Published: s.published.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// Sample feeds one reading taken at now into the edge detector and returns
// the completed press, if this reading ended one.
func (s *Sensor) Sample(level hardware.Level, now time.Time) (payload.ButtonEvent, bool) {
	down := level == hardware.High
	if s.cfg.ActiveLow {
		down = level == hardware.Low
	}

	switch {
	case down && !s.pressed:
		s.pressed = true
		s.pressedAt = now
	case !down && s.pressed:
		s.pressed = false
		held := now.Sub(s.pressedAt)
		kind := payload.PressShort
		if held >= s.cfg.LongPress {
			kind = payload.PressLong
		}
		return payload.ButtonEvent{Type: kind, DurationMs: held.Milliseconds()}, true
	}
	return payload.ButtonEvent{}, false
}

// Poll reads the input once and publishes a completed press. Presses that
// end while the link is down are dropped.
func (s *Sensor) Poll(ctx context.Context) {
	level, err := s.in.Read()
	if err != nil {
		log.Printf("[WARN] Button read failed: %v", err)
		return
	}

	ev, ok := s.Sample(level, s.now())
	if !ok {
		return
	}
	s.presses.Add(1)
	log.Printf("[INFO] Button %s press (%d ms)", ev.Type, ev.DurationMs)

	if !s.pub.IsConnected() {
		s.dropped.Add(1)
		log.Printf("[DEBUG] Button event dropped: link down")
		return
	}

	body, err := payload.EncodeButtonEvent(s.codec, ev)
	if err != nil {
		log.Printf("[ERROR] Failed to encode button event: %v", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.pub.Publish(pubCtx, s.cfg.Topic, body); err != nil {
		s.dropped.Add(1)
		log.Printf("[WARN] Button event publish failed: %v", err)
		return
	}
	s.published.Add(1)
}

// Run polls every PollInterval until ctx is cancelled.
func (s *Sensor) Run(ctx context.Context) error {
	log.Printf("[DEBUG] Button sensor starting (poll=%s, long=%s)", s.cfg.PollInterval, s.cfg.LongPress)
	for {
		s.Poll(ctx)
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return nil
		}
	}
}
