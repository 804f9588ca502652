package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResponse struct {
	Status string     `json:"status"`
	Data   TestResult `json:"data"`
	Error  *ResponseError  `json:"error"`
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeCommand(NewTestCommand(testRootOptions("text")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeCommand(NewTestCommand(testRootOptions("text")), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := executeCommand(NewTestCommand(testRootOptions("text")), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := executeCommand(NewTestCommand(testRootOptions("json")), t.TempDir())
	require.NoError(t, err)

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandPassingScenarios(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "favorites", favoriteScenario)
	writeScenario(t, dir, "playback", playbackScenario)

	out, err := executeCommand(NewTestCommand(testRootOptions("text")), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ favorites")
	assert.Contains(t, out, "✓ playback")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "favorites", favoriteScenario)
	writeScenario(t, dir, "wrong", failingScenario)

	out, err := executeCommand(NewTestCommand(testRootOptions("text")), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_expectation")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong", failingScenario)

	out, err := executeCommand(NewTestCommand(testRootOptions("json")), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken", "name: broken\n")

	out, err := executeCommand(NewTestCommand(testRootOptions("text")), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "favorites", favoriteScenario)
	writeScenario(t, dir, "wrong", failingScenario)

	out, err := executeCommand(NewTestCommand(testRootOptions("text")), dir, "--filter", "fav*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong_expectation")
}

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := writeScenario(t, dir, "favorites", favoriteScenario)

	out, err := executeCommand(NewTestCommand(testRootOptions("text")), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ favorites (golden updated)")

	goldenPath := goldenFilePath(scenarioPath)
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"favorites"`)

	// A second run compares against the fresh golden file.
	out, err = executeCommand(NewTestCommand(testRootOptions("text")), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ favorites")

	// Tampering with the golden file fails the scenario.
	require.NoError(t, os.WriteFile(goldenPath, []byte("{}"), 0o644))
	out, err = executeCommand(NewTestCommand(testRootOptions("text")), dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTestHelpText(t *testing.T) {
	out, err := executeCommand(NewTestCommand(testRootOptions("text")), "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "golden")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "--update")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b", favoriteScenario)
	writeScenario(t, dir, "a", favoriteScenario)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yml"), []byte(favoriteScenario), 0o644))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "a.yaml"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.yaml"), files[1])
	assert.Equal(t, filepath.Join(dir, "c.yml"), files[2])
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "replay_nested", favoriteScenario)
	writeScenario(t, dir, "replay_simple", favoriteScenario)
	writeScenario(t, dir, "favorites", favoriteScenario)

	files, err := findScenarioFiles(dir, "replay_*")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindScenarioFilesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, filepath.Join(dir, "sub"), "nested", favoriteScenario)

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "sub", "nested.yaml"), files[0])
}

func TestFindScenarioFilesErrors(t *testing.T) {
	_, err := findScenarioFiles("/nonexistent", "")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)

	file := writeScenario(t, t.TempDir(), "a", favoriteScenario)
	_, err = findScenarioFiles(file, "")
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "not a directory")

	_, err = findScenarioFiles(t.TempDir(), "[")
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "favorites.golden"),
		goldenFilePath(filepath.Join("scenarios", "favorites.yaml")))
}

func TestLoadScenarioFileClassifiesErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadScenarioFile(filepath.Join(dir, "missing.yaml"))
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)

	schema := writeScenario(t, dir, "schema", "name: x\n")
	_, err = loadScenarioFile(schema)
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeSchema, loadErr.Code)
	assert.Equal(t, schema, loadErr.Path)

	scenario, err := loadScenarioFile(writeScenario(t, dir, "ok", favoriteScenario))
	require.NoError(t, err)
	assert.Equal(t, "favorites", scenario.Name)
}
