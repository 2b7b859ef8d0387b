package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslab/labseed/pkg/render"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		word     string
		expected string
	}{
		{"simple", "simple"},
		{"/etc/resolv.conf", "/etc/resolv.conf"},
		{"", "''"},
		{"two words", "'two words'"},
		{"it's", `'it'"'"'s'`},
		{"a;b", "'a;b'"},
		{"$HOME", "'$HOME'"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Quote(tt.word), "Quote(%q)", tt.word)
	}
}

func TestShellLine(t *testing.T) {
	line := Command{Line: "echo hi > /tmp/out && true"}
	assert.Equal(t, "echo hi > /tmp/out && true", line.ShellLine())

	argv := Command{Argv: []string{"sh", "-c", "echo $(date) ': hello'"}}
	assert.Equal(t, `sh -c 'echo $(date) '"'"': hello'"'"''`, argv.ShellLine())
}

func TestCommandRender(t *testing.T) {
	vars := render.Vars{"nameserver": "10.0.0.1"}

	rendered, err := Command{Line: "echo {nameserver}"}.Render(vars)
	require.NoError(t, err)
	assert.Equal(t, "echo 10.0.0.1", rendered.Line)

	rendered, err = Command{Argv: []string{"echo", "{nameserver}"}}.Render(vars)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "10.0.0.1"}, rendered.Argv)

	_, err = Command{Line: "echo {absent}"}.Render(vars)
	require.Error(t, err)
}

func TestCommandPlaceholders(t *testing.T) {
	c := Command{Argv: []string{"sh", "-c", "echo {a} {b} {a}"}}
	assert.Equal(t, []string{"a", "b"}, c.Placeholders())
}

func TestCommandIsEmpty(t *testing.T) {
	assert.True(t, Command{}.IsEmpty())
	assert.True(t, Command{Line: "   "}.IsEmpty())
	assert.False(t, Command{Line: "true"}.IsEmpty())
	assert.False(t, Command{Argv: []string{"true"}}.IsEmpty())
	assert.True(t, Command{Argv: []string{}}.IsEmpty())
}
