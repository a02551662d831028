package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/nodefn/internal/cli"
)

const addFiveSource = `
graph "add_five" {
  inputs {
    socket "x" { type = number }
  }
  outputs {
    socket "result" {
      type = number
      from = "plus5.sum"
    }
  }
  node "five" {
    kind   = "const.number"
    params = { value = 5 }
  }
  node "plus5" {
    kind = "math.add"
    input "a" { from = "inputs.x" }
    input "b" { from = "five.value" }
  }
}
`

func writeGraphFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "add_five.hcl")
	require.NoError(t, os.WriteFile(path, []byte(addFiveSource), 0o644))
	return path
}

func TestRun_CallsGraphFunction(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{"-graph", writeGraphFile(t), "-arg", "x=3"})
	require.NoError(t, err)
	require.Equal(t, "result = 8\n", out.String())
}

func TestRun_ProgramBackend(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{"-graph", writeGraphFile(t), "-arg", "x=37", "-program"})
	require.NoError(t, err)
	require.Equal(t, "result = 42\n", out.String())
}

func TestRun_MissingArg(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{"-graph", writeGraphFile(t)})
	require.ErrorContains(t, err, `missing value for input "x"`)
}

func TestRun_DOT(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{"-graph", writeGraphFile(t), "-dot"})
	require.NoError(t, err)
	require.Contains(t, out.String(), "digraph G {")
	require.Contains(t, out.String(), "plus5")
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, nil)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_InvalidFlagValue(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{"-graph", "x.hcl", "-log-format", "yaml"})
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}
