// Package tone plays multi-step tone sequences on the buzzer.
package tone

import (
	"time"

	"github.com/dyluth/tablenode/pkg/payload"
)

// MaxSteps bounds a sequence.
const MaxSteps = payload.MaxToneSteps

// Step is one note of a sequence. A zero frequency ends playback.
type Step struct {
	FrequencyHz uint32
	Duration    time.Duration
}

// Entry is one tone sequence on the tone queue. The steps live in a fixed
// array so copying an Entry copies the whole sequence.
type Entry struct {
	steps [MaxSteps]Step
	n     int
}

// NewEntry builds an entry from steps, keeping at most MaxSteps of them.
func NewEntry(steps ...Step) Entry {
	var e Entry
	e.n = copy(e.steps[:], steps)
	return e
}

// EntryFromCommand converts a validated tone command.
func EntryFromCommand(cmd payload.ToneCommand) Entry {
	var e Entry
	for i := 0; i < len(cmd.Tones) && i < len(cmd.Duration) && i < MaxSteps; i++ {
		e.steps[i] = Step{
			FrequencyHz: cmd.Tones[i],
			Duration:    time.Duration(cmd.Duration[i]) * time.Millisecond,
		}
		e.n++
	}
	return e
}

// Len returns the number of steps.
func (e Entry) Len() int { return e.n }

// Steps returns a copy of the steps.
func (e Entry) Steps() []Step {
	return append([]Step(nil), e.steps[:e.n]...)
}
