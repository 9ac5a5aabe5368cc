package tone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dyluth/tablenode/pkg/payload"
)

func TestEntryFromCommand(t *testing.T) {
	e := EntryFromCommand(payload.ToneCommand{Tones: []uint32{440, 0}, Duration: []uint32{200, 0}})

	assert.Equal(t, 2, e.Len())
	assert.Equal(t, []Step{
		{FrequencyHz: 440, Duration: 200 * time.Millisecond},
		{FrequencyHz: 0, Duration: 0},
	}, e.Steps())
}

func TestNewEntry_CapsAtMaxSteps(t *testing.T) {
	steps := make([]Step, MaxSteps+5)
	for i := range steps {
		steps[i] = Step{FrequencyHz: uint32(100 + i), Duration: time.Millisecond}
	}

	e := NewEntry(steps...)
	assert.Equal(t, MaxSteps, e.Len())
	assert.Equal(t, uint32(100+MaxSteps-1), e.Steps()[MaxSteps-1].FrequencyHz)
}

func TestEntry_IsAValue(t *testing.T) {
	orig := NewEntry(Step{FrequencyHz: 440, Duration: time.Second})
	cp := orig

	orig.steps[0].FrequencyHz = 880
	assert.Equal(t, uint32(440), cp.Steps()[0].FrequencyHz)

	steps := cp.Steps()
	steps[0].FrequencyHz = 1
	assert.Equal(t, uint32(440), cp.Steps()[0].FrequencyHz)
}
