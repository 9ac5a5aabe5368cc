package payload

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec turns message bodies into Go values and back.
type Codec interface {
	// Name returns the format name used in configuration ("json", "cbor")
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	// JSON is the default codec
	JSON Codec = jsonCodec{}

	// CBOR encodes bodies as RFC 8949 CBOR maps with the same keys as JSON
	CBOR Codec = cborCodec{}
)

// NewCodec returns the codec registered under format.
// An empty format selects JSON.
func NewCodec(format string) (Codec, error) {
	switch format {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	default:
		return nil, fmt.Errorf("unknown payload format: %s (must be 'json' or 'cbor')", format)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type cborCodec struct{}

func (cborCodec) Name() string                       { return "cbor" }
func (cborCodec) Marshal(v any) ([]byte, error)      { return cbor.Marshal(v) }
func (cborCodec) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }

// displayWire tells absent display fields apart from zero values.
type displayWire struct {
	Top    *string `json:"top" cbor:"top"`
	Down   *string `json:"down" cbor:"down"`
	TimeMs *uint32 `json:"time" cbor:"time"`
}

// DecodeDisplay decodes a display command. A body carrying none of the
// display fields (null, {}) is rejected.
func DecodeDisplay(c Codec, data []byte) (DisplayCommand, error) {
	if len(data) == 0 {
		return DisplayCommand{}, newDecodeError(KindDisplay, "empty payload", nil)
	}
	var wire displayWire
	if err := c.Unmarshal(data, &wire); err != nil {
		return DisplayCommand{}, newDecodeError(KindDisplay, "malformed "+c.Name(), err)
	}
	if wire.Top == nil && wire.Down == nil && wire.TimeMs == nil {
		return DisplayCommand{}, newDecodeError(KindDisplay, "no display fields", nil)
	}

	var cmd DisplayCommand
	if wire.Top != nil {
		cmd.Top = *wire.Top
	}
	if wire.Down != nil {
		cmd.Down = *wire.Down
	}
	if wire.TimeMs != nil {
		cmd.TimeMs = *wire.TimeMs
	}
	return cmd, nil
}

// DecodeTone decodes and validates a tone command.
func DecodeTone(c Codec, data []byte) (ToneCommand, error) {
	var cmd ToneCommand
	if len(data) == 0 {
		return cmd, newDecodeError(KindTone, "empty payload", nil)
	}
	if err := c.Unmarshal(data, &cmd); err != nil {
		return ToneCommand{}, newDecodeError(KindTone, "malformed "+c.Name(), err)
	}
	if err := cmd.Validate(); err != nil {
		return ToneCommand{}, newDecodeError(KindTone, "invalid sequence", err)
	}
	return cmd, nil
}

// DecodeButtonEvent decodes a button event, as consumed by tablectl watch.
func DecodeButtonEvent(c Codec, data []byte) (ButtonEvent, error) {
	var ev ButtonEvent
	if err := c.Unmarshal(data, &ev); err != nil {
		return ButtonEvent{}, newDecodeError(KindButton, "malformed "+c.Name(), err)
	}
	if err := ev.Type.Validate(); err != nil {
		return ButtonEvent{}, newDecodeError(KindButton, "invalid event", err)
	}
	return ev, nil
}

// EncodeButtonEvent encodes a button event for publishing.
func EncodeButtonEvent(c Codec, ev ButtonEvent) ([]byte, error) {
	if err := ev.Type.Validate(); err != nil {
		return nil, err
	}
	data, err := c.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal button event: %w", err)
	}
	return data, nil
}
