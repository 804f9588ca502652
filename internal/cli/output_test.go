package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open database", cause)

	assert.Equal(t, "failed to open database: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "scenario failed", NewExitError(ExitFailure, "scenario failed").Error())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"command error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"failure", NewExitError(ExitFailure, "1 scenario(s) failed"), ExitFailure},
		{"wrapped", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner")), ExitCommandError},
		{"plain error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func jsonOutput(buf *bytes.Buffer) *Output {
	return &Output{Format: "json", Out: buf}
}

func TestOutput_Result(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, jsonOutput(buf).Result("sess-1", ValidationResult{Valid: true, Files: 3}))

	var resp struct {
		Status    string           `json:"status"`
		SessionID string           `json:"session_id"`
		Data      ValidationResult `json:"data"`
		Error     *ResponseError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, 3, resp.Data.Files)
	assert.Nil(t, resp.Error)
}

func TestOutput_FailureJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	err := jsonOutput(buf).Failure(ExitFailure, ErrCodeReplay, "determinism verification failed", ReplayResult{TotalSessions: 2})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string         `json:"status"`
		Data   ReplayResult   `json:"data"`
		Error  *ResponseError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.TotalSessions, "data travels with the error")
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeReplay, resp.Error.Code)
}

func TestOutput_FailureTextWritesNothing(t *testing.T) {
	buf := &bytes.Buffer{}
	o := &Output{Format: "text", Out: buf}

	err := o.Failure(ExitFailure, ErrCodeTestFailed, "1 scenario(s) failed", nil)
	require.Error(t, err)
	assert.Equal(t, "1 scenario(s) failed", err.Error())
	assert.Empty(t, buf.String())
}

func TestOutput_Problem(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		err := jsonOutput(buf).Problem(ExitCommandError, ErrCodeNotFound, "scenario not found", map[string]any{"path": "x.yaml"})
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		var resp Response
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, "scenario not found", resp.Error.Message)
		assert.NotNil(t, resp.Error.Details)
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		err := (&Output{Format: "text", Out: buf}).Problem(ExitCommandError, ErrCodeNoFiles, "no scenario files found", "ignored")
		assert.Equal(t, "E003: no scenario files found", err.Error())
		assert.Contains(t, buf.String(), "Error [E003]: no scenario files found")
		assert.NotContains(t, buf.String(), "Details:")
	})

	t.Run("text verbose", func(t *testing.T) {
		buf := &bytes.Buffer{}
		o := &Output{Format: "text", Verbose: true, Out: buf}
		_ = o.Problem(ExitFailure, ErrCodeSchema, "schema violation", "events.0.kind")
		assert.Contains(t, buf.String(), "Details: events.0.kind")
	})
}

func TestOutput_Logf(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		withDiag bool
		wantOut  string
		wantDiag string
	}{
		{"quiet", false, true, "", ""},
		{"verbose to diag", true, true, "", "Validating scenario: favorites.yaml\n"},
		{"verbose without diag", true, false, "Validating scenario: favorites.yaml\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			o := &Output{Format: "json", Verbose: tt.verbose, Out: out}
			if tt.withDiag {
				o.Diag = diag
			}
			o.Logf("Validating scenario: %s", "favorites.yaml")
			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantDiag, diag.String())
		})
	}
}
