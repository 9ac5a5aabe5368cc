package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimDisplay(t *testing.T) {
	t.Run("renders two lines", func(t *testing.T) {
		d := NewSimDisplay(16, 2, false)
		require.NoError(t, d.SetCursor(0, 0))
		require.NoError(t, d.WriteText("Hello there"))
		require.NoError(t, d.SetCursor(0, 1))
		require.NoError(t, d.WriteText("friend"))

		assert.Equal(t, []string{"Hello there", "friend"}, d.Lines())
	})

	t.Run("drops text past the last column", func(t *testing.T) {
		d := NewSimDisplay(16, 2, false)
		require.NoError(t, d.WriteText("abcdefghijklmnopqrstuvwxyz"))
		assert.Equal(t, "abcdefghijklmnop", d.Lines()[0])
		assert.Equal(t, "", d.Lines()[1])
	})

	t.Run("clear blanks everything", func(t *testing.T) {
		d := NewSimDisplay(16, 2, true)
		require.NoError(t, d.WriteText("something"))
		require.NoError(t, d.Clear())
		assert.Equal(t, []string{"", ""}, d.Lines())
	})

	t.Run("rejects cursor outside display", func(t *testing.T) {
		d := NewSimDisplay(16, 2, false)
		assert.Error(t, d.SetCursor(0, 2))
		assert.Error(t, d.SetCursor(16, 0))
	})
}

func TestSimLine(t *testing.T) {
	l := NewSimLine("button", High, true)

	level, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, High, level)

	require.NoError(t, l.Set(Low))
	level, _ = l.Read()
	assert.Equal(t, Low, level)
	assert.Equal(t, "low", level.String())
}

func TestSimTone(t *testing.T) {
	tone := &SimTone{}
	require.NoError(t, tone.Start(440))
	assert.Equal(t, uint32(440), tone.Playing())
	require.NoError(t, tone.Stop())
	assert.Equal(t, uint32(0), tone.Playing())
}

func TestNewSimDevices(t *testing.T) {
	devices := NewSimDevices(16, false)
	assert.NotNil(t, devices.Display)
	assert.NotNil(t, devices.Tone)
	assert.NotNil(t, devices.Indicator)

	level, err := devices.Button.Read()
	require.NoError(t, err)
	assert.Equal(t, High, level, "idle button is pulled up")
	assert.NoError(t, devices.Close())
}
