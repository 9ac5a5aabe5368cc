package tone

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/dyluth/tablenode/internal/clock"
	"github.com/dyluth/tablenode/internal/hardware"
	"github.com/dyluth/tablenode/internal/queue"
)

const (
	// DefaultCompensationNum/Den stretch every step to 13/10 of the
	// requested duration to make up for the buzzer's slow rise time.
	DefaultCompensationNum = 13
	DefaultCompensationDen = 10

	// DefaultSettle is the pause after a sequence before the next one starts.
	DefaultSettle = 100 * time.Millisecond
)

// State is the tone task's playback state.
type State int32

const (
	// StateIdle means no sequence is playing
	StateIdle State = iota

	// StatePlaying means a sequence is sounding; Step reports which step
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Task is the single consumer of the tone queue and the only user of the buzzer.
type Task struct {
	out   hardware.ToneOutput
	queue *queue.Queue[Entry]
	sleep clock.SleepFunc

	num, den int64
	settle   time.Duration

	state  atomic.Int32
	step   atomic.Int32
	played atomic.Uint64
}

// Option customises a Task.
type Option func(*Task)

// WithCompensation scales every step duration by factor, kept to two decimal places.
func WithCompensation(factor float64) Option {
	return func(t *Task) {
		if factor <= 0 {
			return
		}
		t.num = int64(factor*100 + 0.5)
		t.den = 100
	}
}

// WithSettle sets the pause between sequences.
func WithSettle(d time.Duration) Option {
	return func(t *Task) {
		if d >= 0 {
			t.settle = d
		}
	}
}

// WithSleep replaces the step and settle timer.
func WithSleep(sleep clock.SleepFunc) Option {
	return func(t *Task) { t.sleep = sleep }
}

// NewTask creates a tone task reading from q and driving out.
func NewTask(out hardware.ToneOutput, q *queue.Queue[Entry], opts ...Option) *Task {
	t := &Task{
		out:    out,
		queue:  q,
		sleep:  clock.Sleep,
		num:    DefaultCompensationNum,
		den:    DefaultCompensationDen,
		settle: DefaultSettle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Scaled returns the time a step of duration d actually sounds.
func (t *Task) Scaled(d time.Duration) time.Duration {
	return time.Duration(int64(d) * t.num / t.den)
}

// State returns the playback state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Step returns the index of the step being played, or -1 when idle.
func (t *Task) Step() int {
	if t.State() != StatePlaying {
		return -1
	}
	return int(t.step.Load())
}

// Played returns how many sequences have finished.
func (t *Task) Played() uint64 {
	return t.played.Load()
}

// Run consumes the tone queue until ctx is cancelled.
func (t *Task) Run(ctx context.Context) error {
	log.Printf("[DEBUG] Tone task starting")
	defer log.Printf("[DEBUG] Tone task exited cleanly")

	for {
		entry, err := t.queue.Dequeue(ctx, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		if err := t.Play(ctx, entry); err != nil {
			return nil
		}
		if err := t.sleep(ctx, t.settle); err != nil {
			return nil
		}
	}
}

// Play sounds the steps of entry in order. A zero frequency ends the
// sequence early. The buzzer is always stopped before Play returns.
func (t *Task) Play(ctx context.Context, entry Entry) error {
	t.state.Store(int32(StatePlaying))
	defer t.state.Store(int32(StateIdle))

	log.Printf("[INFO] Tone: playing %d step(s)", entry.n)

	for i := 0; i < entry.n; i++ {
		s := entry.steps[i]
		if s.FrequencyHz == 0 {
			log.Printf("[DEBUG] Tone: sequence ended at step %d", i)
			break
		}
		t.step.Store(int32(i))

		if err := t.out.Start(s.FrequencyHz); err != nil {
			log.Printf("[WARN] Tone start %d Hz failed: %v", s.FrequencyHz, err)
		}
		err := t.sleep(ctx, t.Scaled(s.Duration))
		if stopErr := t.out.Stop(); stopErr != nil {
			log.Printf("[WARN] Tone stop failed: %v", stopErr)
		}
		if err != nil {
			return err
		}
	}

	t.played.Add(1)
	return nil
}
