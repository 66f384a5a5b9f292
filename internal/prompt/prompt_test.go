package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalSelect(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		index  int
		chosen bool
	}{
		{"first", "1\n", 0, true},
		{"retry after invalid", "9\nabc\n2\n", 1, true},
		{"quit", "q\n", 0, false},
		{"empty answer", "\n", 0, false},
		{"closed input", "", 0, false},
		{"answer without newline", "3", 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			term := NewTerminal(strings.NewReader(tt.input), &out)

			idx, ok, err := term.Select(context.Background(), "Pick one", []string{"a", "b", "Skip"})
			require.NoError(t, err)
			assert.Equal(t, tt.chosen, ok)
			assert.Equal(t, tt.index, idx)
			assert.Contains(t, out.String(), "1) a")
		})
	}
}

func TestTerminalConfirm(t *testing.T) {
	for input, expected := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		term := NewTerminal(strings.NewReader(input), &bytes.Buffer{})
		ok, err := term.Confirm(context.Background(), "Stock products?")
		require.NoError(t, err)
		assert.Equal(t, expected, ok, "input %q", input)
	}
}

func TestTerminalCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	term := NewTerminal(strings.NewReader("1\n"), &bytes.Buffer{})
	_, ok, err := term.Select(ctx, "Pick one", []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestAlways(t *testing.T) {
	idx, ok, err := Always{Choice: 1}.Select(context.Background(), "", []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok, err = Always{Choice: -1}.Select(context.Background(), "", []string{"a"})
	require.NoError(t, err)
	assert.False(t, ok)

	yes, err := Always{Yes: true}.Confirm(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, yes)
}
