package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/tasklog/internal/harness"
)

// LoadError represents an error that occurred while locating or loading a
// scenario file.
type LoadError struct {
	Code    string
	Message string
	Path    string // file the error refers to, if any
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error

	// Scenario errors
	ErrCodeSchema   = "E201" // Document does not match the scenario schema
	ErrCodeScenario = "E202" // Well-formed document with an invalid scenario
	ErrCodeReplay   = "E301" // Journal replay failed

	ErrCodeTestFailed = "E401" // Scenario run did not match expectations or golden
)

// scenarioExts are the file extensions treated as scenarios.
var scenarioExts = map[string]bool{".yaml": true, ".yml": true}

// findScenarioFiles finds all YAML scenario files under dir, in lexical
// order. filter is a glob matched against the file name without extension.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenarios directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scenarios directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("invalid filter pattern: %v", err)}
		}
	}

	var files []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if !scenarioExts[ext] {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}

	return files, nil
}

// expandScenarioArgs turns command arguments (files or directories) into a
// list of scenario files.
func expandScenarioArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: "scenario not found", Path: arg}
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := findScenarioFiles(arg, "")
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no scenario files found in %s", strings.Join(args, ", "))}
	}
	return files, nil
}

// loadScenarioFile reads and parses one scenario, classifying failures.
func loadScenarioFile(path string) (*harness.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error(), Path: path}
	}
	scenario, err := harness.ParseScenario(data)
	if err != nil {
		return nil, classifyScenarioError(path, err)
	}
	return scenario, nil
}

// classifyScenarioError maps harness errors to a LoadError with a code.
func classifyScenarioError(path string, err error) *LoadError {
	var schemaErr *harness.SchemaError
	if errors.As(err, &schemaErr) {
		return &LoadError{Code: ErrCodeSchema, Message: err.Error(), Path: path}
	}
	return &LoadError{Code: ErrCodeScenario, Message: err.Error(), Path: path}
}

// scenarioName is the file name without extension; used when a scenario
// could not be loaded far enough to know its own name.
func scenarioName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
