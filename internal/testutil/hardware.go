// Package testutil provides recording fakes for peripherals and links so the
// actuator tasks and the node engine can be tested without hardware or a broker.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dyluth/tablenode/internal/hardware"
)

// Op is one recorded peripheral call.
type Op struct {
	Name string // "clear", "cursor", "write", "start", "stop", "set"
	Arg  string
	At   time.Time
}

func (o Op) String() string {
	if o.Arg == "" {
		return o.Name
	}
	return o.Name + "(" + o.Arg + ")"
}

type recorder struct {
	mu  sync.Mutex
	ops []Op
}

func (r *recorder) record(name, arg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Name: name, Arg: arg, At: time.Now()})
}

// Ops returns a copy of the recorded calls.
func (r *recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Calls returns the recorded calls rendered as strings, e.g. "write(Hello)".
func (r *recorder) Calls() []string {
	ops := r.Ops()
	calls := make([]string, len(ops))
	for i, op := range ops {
		calls[i] = op.String()
	}
	return calls
}

// RecordingDisplay records every display call.
type RecordingDisplay struct {
	recorder
	FailWrites bool
}

func (d *RecordingDisplay) Clear() error {
	d.record("clear", "")
	return nil
}

func (d *RecordingDisplay) SetCursor(col, row int) error {
	d.record("cursor", fmt.Sprintf("%d,%d", col, row))
	return nil
}

func (d *RecordingDisplay) WriteText(s string) error {
	d.record("write", s)
	if d.FailWrites {
		return fmt.Errorf("i2c bus error")
	}
	return nil
}

// RecordingTone records every buzzer call.
type RecordingTone struct {
	recorder
}

func (t *RecordingTone) Start(freqHz uint32) error {
	t.record("start", fmt.Sprintf("%d", freqHz))
	return nil
}

func (t *RecordingTone) Stop() error {
	t.record("stop", "")
	return nil
}

// RecordingOutput records every level written to a digital output.
type RecordingOutput struct {
	recorder
}

func (o *RecordingOutput) Set(level hardware.Level) error {
	o.record("set", level.String())
	return nil
}

// ScriptedInput returns a predefined sequence of levels, then repeats the last.
type ScriptedInput struct {
	mu     sync.Mutex
	levels []hardware.Level
	pos    int
}

// NewScriptedInput creates an input that yields levels in order.
func NewScriptedInput(levels ...hardware.Level) *ScriptedInput {
	return &ScriptedInput{levels: levels}
}

func (in *ScriptedInput) Read() (hardware.Level, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.levels) == 0 {
		return hardware.High, nil
	}
	level := in.levels[in.pos]
	if in.pos < len(in.levels)-1 {
		in.pos++
	}
	return level, nil
}

// SleepRecorder is a clock.SleepFunc that records requested durations and
// returns immediately, unless the context is already done.
type SleepRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (s *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Durations returns a copy of the requested sleep durations.
func (s *SleepRecorder) Durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.durations...)
}
