package payload

import "fmt"

// MaxToneSteps is the largest number of steps a single tone sequence may carry.
const MaxToneSteps = 20

// MaxToneFrequencyHz is the highest frequency a tone step may request.
const MaxToneFrequencyHz = 20000

// DisplayCommand is the body published on the display topic.
type DisplayCommand struct {
	Top    string `json:"top" cbor:"top"`   // First line, or the whole text when Down is empty
	Down   string `json:"down" cbor:"down"` // Second line
	TimeMs uint32 `json:"time" cbor:"time"` // Hold in milliseconds, 0 keeps the text until superseded
}

// ToneCommand is the body published on the tone topic.
// Tones and Duration are parallel arrays: step i plays Tones[i] Hz for Duration[i] ms.
type ToneCommand struct {
	Tones    []uint32 `json:"tones" cbor:"tones"`
	Duration []uint32 `json:"duration" cbor:"duration"`
}

// ButtonEvent is published by the node when the user button is released.
type ButtonEvent struct {
	Type       PressType `json:"type" cbor:"type"`
	DurationMs int64     `json:"duration" cbor:"duration"`
}

// PressType classifies a button press by how long it was held.
type PressType string

const (
	// PressShort is a press released before the long-press threshold
	PressShort PressType = "short"

	// PressLong is a press held at least as long as the long-press threshold
	PressLong PressType = "long"
)

// Validate checks the parallel arrays of a tone command.
// Length mismatches are rejected rather than zero-filled, and frequencies
// above MaxToneFrequencyHz are rejected.
func (c *ToneCommand) Validate() error {
	if len(c.Tones) != len(c.Duration) {
		return fmt.Errorf("tones has %d entries but duration has %d", len(c.Tones), len(c.Duration))
	}

	if len(c.Tones) == 0 {
		return fmt.Errorf("tone sequence is empty")
	}

	if len(c.Tones) > MaxToneSteps {
		return fmt.Errorf("tone sequence has %d steps, maximum is %d", len(c.Tones), MaxToneSteps)
	}

	for i, freq := range c.Tones {
		if freq > MaxToneFrequencyHz {
			return fmt.Errorf("step %d: frequency %d Hz exceeds %d Hz", i, freq, MaxToneFrequencyHz)
		}
	}

	return nil
}

// Validate checks that the press type is one of the known values.
func (pt PressType) Validate() error {
	switch pt {
	case PressShort, PressLong:
		return nil
	default:
		return fmt.Errorf("invalid press type: %s", pt)
	}
}
