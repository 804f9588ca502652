package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validateResponse struct {
	Status string           `json:"status"`
	Data   ValidationResult `json:"data"`
	Error  *ResponseError        `json:"error"`
}

func TestValidateValidScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "favorites", favoriteScenario)

	out, err := executeCommand(NewValidateCommand(testRootOptions("text")), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All scenarios valid (1 file(s))")
}

func TestValidateValidScenarioJSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "favorites", favoriteScenario)

	out, err := executeCommand(NewValidateCommand(testRootOptions("json")), path)
	require.NoError(t, err)

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Files)
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "favorites", favoriteScenario)
	writeScenario(t, filepath.Join(dir, "nested"), "playback", playbackScenario)

	out, err := executeCommand(NewValidateCommand(testRootOptions("text")), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 file(s))")
}

func TestValidateMissingArgs(t *testing.T) {
	_, err := executeCommand(NewValidateCommand(testRootOptions("text")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestValidateNonExistentPath(t *testing.T) {
	out, err := executeCommand(NewValidateCommand(testRootOptions("text")), "/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, err := executeCommand(NewValidateCommand(testRootOptions("text")), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}

func TestValidateSchemaViolations(t *testing.T) {
	scenario := `name: broken
events:
  - kind: delete_requested
`
	path := writeScenario(t, t.TempDir(), "broken", scenario)

	out, err := executeCommand(NewValidateCommand(testRootOptions("text")), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, path)
	assert.Contains(t, out, ErrCodeSchema)
	// Every violation is reported, not just the first.
	assert.Contains(t, out, "description")
	assert.Contains(t, out, "events.0.index")
}

func TestValidateSchemaViolationsJSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "broken", "name: broken\nevents: []\n")

	out, err := executeCommand(NewValidateCommand(testRootOptions("json")), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp validateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, ErrCodeSchema, resp.Error.Code)
	for _, issue := range resp.Data.Errors {
		assert.Equal(t, path, issue.File)
	}
}

func TestValidateSemanticError(t *testing.T) {
	// Passes the schema, but a reason on an applied step is contradictory.
	scenario := `name: contradictory
description: "Applied events carry no reason"
events:
  - kind: add_task_requested
    title: "x"
    expect:
      status: applied
      reason: empty_title
`
	path := writeScenario(t, t.TempDir(), "contradictory", scenario)

	out, err := executeCommand(NewValidateCommand(testRootOptions("text")), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeScenario)
	assert.Contains(t, out, "given for an applied event")
}

func TestValidateVerboseOutput(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "favorites", favoriteScenario)

	opts := testRootOptions("text")
	opts.Verbose = true
	cmd := NewValidateCommand(opts)
	errBuf := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errBuf.String(), "Found 1 scenario file(s)")
	assert.Contains(t, errBuf.String(), "Validating scenario: "+path)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	good := writeScenario(t, dir, "good", favoriteScenario)
	assert.Empty(t, validateFile(good))

	issues := validateFile(filepath.Join(dir, "missing.yaml"))
	require.Len(t, issues, 1)
	assert.Equal(t, ErrCodeNotFound, issues[0].Code)
}
