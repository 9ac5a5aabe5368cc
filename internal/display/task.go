package display

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/dyluth/tablenode/internal/clock"
	"github.com/dyluth/tablenode/internal/hardware"
	"github.com/dyluth/tablenode/internal/queue"
)

// State is the display task's position in its render cycle.
type State int32

const (
	// StateIdle means nothing is rendered
	StateIdle State = iota

	// StateShowing means an entry is on screen
	StateShowing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateShowing:
		return "showing"
	default:
		return "unknown"
	}
}

// Task is the single consumer of the display queue and the only writer to
// the display. Entries are rendered one at a time in queue order; an entry
// with a hold is cleared when the hold expires and is never pre-empted by a
// newer entry.
type Task struct {
	display  hardware.TextDisplay
	queue    *queue.Queue[Entry]
	idleText string
	sleep    clock.SleepFunc

	state    atomic.Int32
	rendered atomic.Uint64
}

// Option customises a Task.
type Option func(*Task)

// WithIdleText writes text on the top line after a hold expires.
func WithIdleText(text string) Option {
	return func(t *Task) { t.idleText = text }
}

// WithSleep replaces the hold timer.
func WithSleep(sleep clock.SleepFunc) Option {
	return func(t *Task) { t.sleep = sleep }
}

// NewTask creates a display task reading from q and rendering to d.
func NewTask(d hardware.TextDisplay, q *queue.Queue[Entry], opts ...Option) *Task {
	t := &Task{
		display: d,
		queue:   q,
		sleep:   clock.Sleep,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current render state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Rendered returns how many entries have been put on screen.
func (t *Task) Rendered() uint64 {
	return t.rendered.Load()
}

// Run consumes the display queue until ctx is cancelled.
func (t *Task) Run(ctx context.Context) error {
	log.Printf("[DEBUG] Display task starting")
	defer log.Printf("[DEBUG] Display task exited cleanly")

	for {
		entry, err := t.queue.Dequeue(ctx, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		if err := t.Show(ctx, entry); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// Show renders one entry and, if it has a hold, waits it out and clears.
// It returns ctx.Err() if the hold was interrupted by shutdown.
func (t *Task) Show(ctx context.Context, entry Entry) error {
	t.render(entry)
	t.state.Store(int32(StateShowing))
	t.rendered.Add(1)

	if entry.Hold == 0 {
		return nil
	}

	if err := t.sleep(ctx, entry.Hold); err != nil {
		return err
	}

	t.clear()
	t.state.Store(int32(StateIdle))
	return nil
}

func (t *Task) render(entry Entry) {
	log.Printf("[INFO] Display: top=%q bottom=%q hold=%s", entry.Top, entry.Bottom, entry.Hold)

	if err := t.display.Clear(); err != nil {
		log.Printf("[WARN] Display clear failed: %v", err)
	}
	t.writeLine(0, entry.Top)
	t.writeLine(1, entry.Bottom)
}

func (t *Task) clear() {
	if err := t.display.Clear(); err != nil {
		log.Printf("[WARN] Display clear failed: %v", err)
	}
	if t.idleText != "" {
		t.writeLine(0, t.idleText)
	}
	log.Printf("[DEBUG] Display hold expired, cleared")
}

func (t *Task) writeLine(row int, text string) {
	if text == "" {
		return
	}
	if err := t.display.SetCursor(0, row); err != nil {
		log.Printf("[WARN] Display cursor move to row %d failed: %v", row, err)
		return
	}
	if err := t.display.WriteText(text); err != nil {
		log.Printf("[WARN] Display write to row %d failed: %v", row, err)
	}
}
