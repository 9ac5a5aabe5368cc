package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBindings(t *testing.T) {
	tests := []struct {
		name    string
		table   map[string]Binding
		wantErr string
	}{
		{
			name: "valid table",
			table: map[string]Binding{
				"table/display": {Kind: KindDisplay},
				"table/tone":    {Kind: KindTone},
				"table/turn":    {Kind: KindRelay, Target: "actuator/turn"},
			},
		},
		{
			name:    "relay without target",
			table:   map[string]Binding{"table/turn": {Kind: KindRelay}},
			wantErr: "relay binding requires a target",
		},
		{
			name:    "relay to itself",
			table:   map[string]Binding{"loop": {Kind: KindRelay, Target: "loop"}},
			wantErr: "must differ",
		},
		{
			name:    "display with target",
			table:   map[string]Binding{"table/display": {Kind: KindDisplay, Target: "x"}},
			wantErr: "takes no target",
		},
		{
			name:    "unknown kind",
			table:   map[string]Binding{"x": {}},
			wantErr: "unknown binding kind",
		},
		{
			name:    "empty topic",
			table:   map[string]Binding{"": {Kind: KindTone}},
			wantErr: "empty topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBindings(tt.table)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBindings_ImmutableAfterConstruction(t *testing.T) {
	table := map[string]Binding{"table/display": {Kind: KindDisplay}}
	b, err := NewBindings(table)
	require.NoError(t, err)

	table["table/tone"] = Binding{Kind: KindTone}
	delete(table, "table/display")

	_, ok := b.Lookup("table/display")
	assert.True(t, ok)
	_, ok = b.Lookup("table/tone")
	assert.False(t, ok)
}

func TestBindings_TopicsSorted(t *testing.T) {
	b, err := NewBindings(map[string]Binding{
		"c": {Kind: KindTone},
		"a": {Kind: KindDisplay},
		"b": {Kind: KindRelay, Target: "out"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, b.Topics())
	assert.Empty(t, Bindings{}.Topics())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "display", KindDisplay.String())
	assert.Equal(t, "tone", KindTone.String())
	assert.Equal(t, "relay", KindRelay.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
