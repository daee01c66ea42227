package terminal

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func withNoColor(t *testing.T, noColor bool) {
	t.Helper()
	saved := color.NoColor
	color.NoColor = noColor
	t.Cleanup(func() { color.NoColor = saved })
}

func TestOutput_NoColorDisablesEscapes(t *testing.T) {
	withNoColor(t, true)

	var buf bytes.Buffer
	out := NewOutput(&buf, false)
	out.Warn("hello")
	out.Title("Results")
	out.Send(score(out, ptr(92)))

	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Equal(t, "hello\nResults\n92/100 (Excellent)\n", buf.String())
}

func TestOutput_ColorsWhenEnabled(t *testing.T) {
	withNoColor(t, false)

	var buf bytes.Buffer
	NewOutput(&buf, false).Warn("hello")
	assert.Equal(t, "\x1b[33mhello\x1b[0m\n", buf.String())

	buf.Reset()
	NewOutput(&buf, true).Warn("hello")
	assert.Equal(t, "hello\n", buf.String())
}
