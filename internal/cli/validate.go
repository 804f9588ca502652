package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tasklog/internal/harness"
)

// ValidationIssue is one problem found in a scenario file.
type ValidationIssue struct {
	File    string `json:"file"`
	Path    string `json:"path,omitempty"` // field path inside the document
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the CUE scenario schema.

Each argument is a scenario file or a directory searched for *.yaml and
*.yml files. Every schema violation is reported, followed by checks the
schema cannot express (event payloads, assertion shapes).`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := newOutput(cmd, opts)

	files, err := expandScenarioArgs(args)
	if err != nil {
		code, message := ErrCodeGeneric, err.Error()
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			code, message = loadErr.Code, loadErr.Message
			if loadErr.Path != "" {
				message = loadErr.Path + ": " + message
			}
		}
		// Missing inputs are command-level errors
		return out.Problem(ExitCommandError, code, message, nil)
	}

	out.Logf("Found %d scenario file(s)", len(files))

	var issues []ValidationIssue
	for _, file := range files {
		out.Logf("Validating scenario: %s", file)
		issues = append(issues, validateFile(file)...)
	}

	result := ValidationResult{Valid: len(issues) == 0, Files: len(files), Errors: issues}
	if len(issues) > 0 {
		if !out.JSON() {
			printValidationIssues(out.Out, issues)
		}
		return out.Failure(ExitFailure, issues[0].Code,
			fmt.Sprintf("validation failed with %d error(s)", len(issues)), result)
	}

	if out.JSON() {
		return out.Result("", result)
	}
	fmt.Fprintf(out.Out, "✓ All scenarios valid (%d file(s))\n", len(files))
	return nil
}

// validateFile runs the schema check and then the semantic checks.
func validateFile(file string) []ValidationIssue {
	data, err := os.ReadFile(file)
	if err != nil {
		return []ValidationIssue{{File: file, Code: ErrCodeNotFound, Message: err.Error()}}
	}

	if err := harness.ValidateScenario(data); err != nil {
		var schemaErr *harness.SchemaError
		if !errors.As(err, &schemaErr) {
			return []ValidationIssue{{File: file, Code: ErrCodeSchema, Message: err.Error()}}
		}
		issues := make([]ValidationIssue, 0, len(schemaErr.Violations))
		for _, v := range schemaErr.Violations {
			issues = append(issues, ValidationIssue{
				File:    file,
				Path:    v.Path,
				Code:    ErrCodeSchema,
				Message: v.Message,
			})
		}
		return issues
	}

	if _, err := harness.ParseScenario(data); err != nil {
		return []ValidationIssue{{File: file, Code: ErrCodeScenario, Message: err.Error()}}
	}
	return nil
}

// printValidationIssues lists issues grouped by file.
func printValidationIssues(w io.Writer, issues []ValidationIssue) {
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)

	lastFile := ""
	for _, issue := range issues {
		if issue.File != lastFile {
			fmt.Fprintln(w, issue.File)
			lastFile = issue.File
		}
		if issue.Path != "" {
			fmt.Fprintf(w, "  %s: %s: %s\n", issue.Code, issue.Path, issue.Message)
		} else {
			fmt.Fprintf(w, "  %s: %s\n", issue.Code, issue.Message)
		}
	}
}
