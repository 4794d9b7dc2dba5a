package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "kiln", cmd.Use)
	assert.Contains(t, cmd.Long, "immutable block")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"ignite", "sinter", "cooldown", "status", "block", "blocks", "events",
		"heat", "prepare", "serve", "stress", "test",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db", "authority"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestCommandDefaults(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		command string
		flag    string
		want    string
	}{
		{"ignite", "temp", "3000"},
		{"sinter", "pressure", "120"},
		{"heat", "ambient", "293"},
		{"prepare", "urgency", "0"},
		{"stress", "batches", "100"},
		{"block", "index", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			f := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.DefValue)
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run(t, "--format", "xml", "status", "--authority", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestConfigSuppliesOutputFormat(t *testing.T) {
	w := newWorkspace(t)
	writeFile(t, w.config, "log_level: error\noutput: json\n")

	out, err := w.run(t, "heat", "--hash", zeroHash)
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)
}

func TestBadConfigIsCommandError(t *testing.T) {
	w := newWorkspace(t)
	writeFile(t, w.config, "log_level: loud\n")

	_, err := w.run(t, "heat", "--hash", zeroHash)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUnknownFlagIsCommandError(t *testing.T) {
	_, err := execute(t, "ignite", "--heat", "9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
