package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "extract", "compress", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "ffpoc dev\n", out.String())
}

func TestActionCommand_RequiresFile(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"extract without file", []string{"extract"}},
		{"compress with two files", []string{"compress", "a.mp4", "b.mp4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCommand()
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			root.SetArgs(tt.args)

			assert.Error(t, root.Execute())
		})
	}
}

func TestActionCommand_OutFlagDefault(t *testing.T) {
	cmds := newActionCommands(&commandContext{})
	require.Len(t, cmds, 2)
	for _, c := range cmds {
		f := c.Flags().Lookup("out")
		require.NotNil(t, f, c.Name())
		assert.Equal(t, ".", f.DefValue)
		assert.Equal(t, "o", f.Shorthand)
	}
}
