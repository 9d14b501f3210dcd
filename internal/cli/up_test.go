package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraev/freedom-calculator/internal/model"
)

func TestUpCommandMissingTool(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "freedom.jsonc")
	require.NoError(t, os.WriteFile(manifest, []byte(`{
  "requires": ["tool-that-does-not-exist-anywhere"],
  "workdir": "`+filepath.Join(dir, "workspace")+`"
}`), 0o644))

	root := NewRootCommand()
	root.SetArgs([]string{"up", "--manifest", manifest})

	err := root.Execute()
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitToolMissing, cliErr.Code)

	_, statErr := os.Stat(filepath.Join(dir, "workspace"))
	assert.True(t, os.IsNotExist(statErr), "no setup happens when the guard fails")
}

func TestUpCommandRunsManifestCommand(t *testing.T) {
	dir := t.TempDir()
	workdir := filepath.Join(dir, "workspace")
	manifest := filepath.Join(dir, "freedom.jsonc")
	require.NoError(t, os.WriteFile(manifest, []byte(`{
  // the shell is always around
  "requires": ["sh"],
  "workdir": "`+workdir+`",
  "command": ["sh", "-c", "touch launched"]
}`), 0o644))

	root := NewRootCommand()
	root.SetArgs([]string{"up", "--manifest", manifest})
	require.NoError(t, root.Execute())

	_, err := os.Stat(filepath.Join(workdir, "launched"))
	require.NoError(t, err, "command runs inside the created workspace")

	// A second launch finds the workspace already present.
	root = NewRootCommand()
	root.SetArgs([]string{"up", "--manifest", manifest})
	require.NoError(t, root.Execute())
}

func TestUpCommandCommandFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "freedom.jsonc")
	require.NoError(t, os.WriteFile(manifest, []byte(`{
  "workdir": "`+filepath.Join(dir, "workspace")+`",
  "command": ["sh", "-c", "exit 7"]
}`), 0o644))

	root := NewRootCommand()
	root.SetArgs([]string{"up", "--manifest", manifest})

	err := root.Execute()
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitCode(7), cliErr.Code)
}
