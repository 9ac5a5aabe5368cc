package payload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodec(t *testing.T) {
	t.Run("defaults to json", func(t *testing.T) {
		c, err := NewCodec("")
		require.NoError(t, err)
		assert.Equal(t, "json", c.Name())
	})

	t.Run("selects cbor", func(t *testing.T) {
		c, err := NewCodec("cbor")
		require.NoError(t, err)
		assert.Equal(t, "cbor", c.Name())
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := NewCodec("xml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown payload format")
	})
}

func TestDecodeDisplay(t *testing.T) {
	t.Run("decodes all fields", func(t *testing.T) {
		cmd, err := DecodeDisplay(JSON, []byte(`{"top":"Hello there friend","down":"","time":2000}`))
		require.NoError(t, err)
		assert.Equal(t, "Hello there friend", cmd.Top)
		assert.Equal(t, "", cmd.Down)
		assert.Equal(t, uint32(2000), cmd.TimeMs)
	})

	t.Run("truncated payload is a decode error", func(t *testing.T) {
		_, err := DecodeDisplay(JSON, []byte(`{"top":`))
		require.Error(t, err)

		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, KindDisplay, decodeErr.Kind)
	})

	t.Run("negative time is a decode error", func(t *testing.T) {
		_, err := DecodeDisplay(JSON, []byte(`{"top":"a","down":"b","time":-1}`))
		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr))
	})

	t.Run("empty payload is a decode error", func(t *testing.T) {
		_, err := DecodeDisplay(JSON, nil)
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Contains(t, decodeErr.Error(), "empty payload")
	})

	t.Run("body without display fields is a decode error", func(t *testing.T) {
		for _, body := range []string{`null`, `{}`, `{"colour":"red"}`} {
			_, err := DecodeDisplay(JSON, []byte(body))
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "body %s", body)
			assert.Equal(t, "no display fields", decodeErr.Reason)
		}
	})

	t.Run("single field is enough", func(t *testing.T) {
		cmd, err := DecodeDisplay(JSON, []byte(`{"top":""}`))
		require.NoError(t, err)
		assert.Equal(t, DisplayCommand{}, cmd)

		cmd, err = DecodeDisplay(JSON, []byte(`{"top":"Round 2"}`))
		require.NoError(t, err)
		assert.Equal(t, "Round 2", cmd.Top)
	})

	t.Run("cbor null is a decode error", func(t *testing.T) {
		_, err := DecodeDisplay(CBOR, []byte{0xf6})
		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr))
	})

	t.Run("decodes cbor", func(t *testing.T) {
		data, err := CBOR.Marshal(DisplayCommand{Top: "Your turn", Down: "Roll", TimeMs: 500})
		require.NoError(t, err)

		cmd, err := DecodeDisplay(CBOR, data)
		require.NoError(t, err)
		assert.Equal(t, "Your turn", cmd.Top)
		assert.Equal(t, "Roll", cmd.Down)
		assert.Equal(t, uint32(500), cmd.TimeMs)
	})
}

func TestDecodeTone(t *testing.T) {
	t.Run("decodes parallel arrays", func(t *testing.T) {
		cmd, err := DecodeTone(JSON, []byte(`{"tones":[440,0],"duration":[200,0]}`))
		require.NoError(t, err)
		assert.Equal(t, []uint32{440, 0}, cmd.Tones)
		assert.Equal(t, []uint32{200, 0}, cmd.Duration)
	})

	t.Run("length mismatch is a decode error", func(t *testing.T) {
		_, err := DecodeTone(JSON, []byte(`{"tones":[440,660],"duration":[200]}`))
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, KindTone, decodeErr.Kind)
		assert.Contains(t, err.Error(), "tones has 2 entries but duration has 1")
	})

	t.Run("too many steps is a decode error", func(t *testing.T) {
		cmd := ToneCommand{
			Tones:    make([]uint32, MaxToneSteps+1),
			Duration: make([]uint32, MaxToneSteps+1),
		}
		data, err := JSON.Marshal(cmd)
		require.NoError(t, err)

		_, err = DecodeTone(JSON, data)
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Contains(t, err.Error(), "maximum is 20")
	})

	t.Run("exactly max steps is accepted", func(t *testing.T) {
		cmd := ToneCommand{
			Tones:    make([]uint32, MaxToneSteps),
			Duration: make([]uint32, MaxToneSteps),
		}
		data, err := JSON.Marshal(cmd)
		require.NoError(t, err)

		_, err = DecodeTone(JSON, data)
		assert.NoError(t, err)
	})

	t.Run("frequency above the audible bound is a decode error", func(t *testing.T) {
		_, err := DecodeTone(JSON, []byte(`{"tones":[2147483648],"duration":[1]}`))
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Contains(t, err.Error(), "exceeds 20000 Hz")
	})

	t.Run("frequency at the bound is accepted", func(t *testing.T) {
		_, err := DecodeTone(JSON, []byte(`{"tones":[20000],"duration":[50]}`))
		assert.NoError(t, err)
	})

	t.Run("empty sequence is a decode error", func(t *testing.T) {
		_, err := DecodeTone(JSON, []byte(`{"tones":[],"duration":[]}`))
		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr))
	})

	t.Run("decodes cbor", func(t *testing.T) {
		data, err := CBOR.Marshal(ToneCommand{Tones: []uint32{523, 659}, Duration: []uint32{100, 150}})
		require.NoError(t, err)

		cmd, err := DecodeTone(CBOR, data)
		require.NoError(t, err)
		assert.Equal(t, []uint32{523, 659}, cmd.Tones)
	})
}

func TestEncodeButtonEvent(t *testing.T) {
	t.Run("encodes short press as json", func(t *testing.T) {
		data, err := EncodeButtonEvent(JSON, ButtonEvent{Type: PressShort, DurationMs: 300})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"short","duration":300}`, string(data))
	})

	t.Run("rejects unknown press type", func(t *testing.T) {
		_, err := EncodeButtonEvent(JSON, ButtonEvent{Type: "double", DurationMs: 10})
		assert.Error(t, err)
	})

	t.Run("decodes what it encodes", func(t *testing.T) {
		data, err := EncodeButtonEvent(CBOR, ButtonEvent{Type: PressLong, DurationMs: 1200})
		require.NoError(t, err)

		ev, err := DecodeButtonEvent(CBOR, data)
		require.NoError(t, err)
		assert.Equal(t, PressLong, ev.Type)
		assert.Equal(t, int64(1200), ev.DurationMs)
	})
}
