package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliFixture struct {
	dbPath     string
	sourcePath string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	dir := t.TempDir()
	f := &cliFixture{
		dbPath:     filepath.Join(dir, "loom.db"),
		sourcePath: filepath.Join(dir, "design.yaml"),
	}
	f.writeSource(t, `
Button:
  tokens:
    colors.primary: "#3B82F6"
  requirements:
    props.variant: primary
`)
	return f
}

func (f *cliFixture) writeSource(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.sourcePath, []byte(content), 0o644))
}

// run executes the CLI with the fixture's db and source wired in.
func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append(args, "--db", f.dbPath, "--source", f.sourcePath))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_InitRegenerateVersions(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "init", "Button", "--kind", "component/button")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0.0")

	// Upstream color changes; manual regenerate picks it up as a minor bump.
	f.writeSource(t, `
Button:
  tokens:
    colors.primary: "#1D4ED8"
  requirements:
    props.variant: primary
`)

	out, err = f.run(t, "regenerate", "Button")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0.0 -> 1.1.0")
	assert.Contains(t, out, "colors.primary")

	out, err = f.run(t, "versions", "Button", "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	versions := data["versions"].([]any)
	require.Len(t, versions, 2)
	last := versions[1].(map[string]any)
	assert.Equal(t, "1.1.0", last["semver"])
	assert.Equal(t, "active", last["status"])
}

func TestCLI_RollbackAndCompare(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, "init", "Button")
	require.NoError(t, err)

	f.writeSource(t, "Button:\n  tokens:\n    colors.primary: \"#1D4ED8\"\n  requirements:\n    props.variant: primary\n")
	_, err = f.run(t, "regenerate", "Button")
	require.NoError(t, err)

	out, err := f.run(t, "rollback", "Button", "1.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "1.1.0 -> 1.1.1")

	out, err = f.run(t, "compare", "Button", "1.0.0", "1.1.1")
	require.NoError(t, err)
	assert.Contains(t, out, "Inputs: unchanged")
	assert.Contains(t, out, "Code: unchanged")
}

func TestCLI_PolicyAndDetect(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, "init", "Button")
	require.NoError(t, err)

	out, err := f.run(t, "policy", "get", "Button")
	require.NoError(t, err)
	assert.Contains(t, out, "MANUAL")

	_, err = f.run(t, "policy", "set", "Button", "auto")
	require.NoError(t, err)
	out, err = f.run(t, "policy", "get", "Button")
	require.NoError(t, err)
	assert.Contains(t, out, "AUTO")

	out, err = f.run(t, "detect", "Button")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")

	f.writeSource(t, "Button:\n  tokens:\n    colors.primary: \"#1D4ED8\"\n  requirements:\n    props.variant: primary\n")
	out, err = f.run(t, "detect", "Button")
	require.NoError(t, err)
	assert.Contains(t, out, "1 modified")
}

func TestCLI_SweepRegeneratesAutoArtifacts(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, "init", "Button", "--policy", "AUTO")
	require.NoError(t, err)

	f.writeSource(t, "Button:\n  tokens:\n    colors.primary: \"#1D4ED8\"\n  requirements:\n    props.variant: primary\n")

	out, err := f.run(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "1 artifact(s) regenerated")

	out, err = f.run(t, "versions", "Button")
	require.NoError(t, err)
	assert.Contains(t, out, "1.1.0")
	assert.Contains(t, out, "schedule")
}

func TestCLI_UnknownArtifact(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run(t, "versions", "Ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCLI_InvalidFormatRejected(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run(t, "versions", "Button", "--format", "xml")
	require.Error(t, err)
}
