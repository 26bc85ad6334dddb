package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rmod/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>...",
		Short: "Run client runtime scenarios",
		Long: `Run YAML scenarios against a fresh client runtime.

Each scenario registers its ops, executes resolve, require and ready steps
and checks expectations and assertions. When a golden file exists in the
golden directory next to the scenarios directory, the trace must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  rmod test ./testdata/scenarios
  rmod test ./testdata/scenarios --filter "circ*"
  rmod test ./testdata/scenarios --update
  rmod test ./testdata/scenarios/versions.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	var scenarioFiles []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", path))
		}
		if !info.IsDir() {
			scenarioFiles = append(scenarioFiles, path)
			continue
		}
		found, err := findScenarioFiles(path, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		scenarioFiles = append(scenarioFiles, found...)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, opts, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario and returns the result.
func runScenario(scenarioFile string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		w = io.Discard
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return failScenario(w, filepath.Base(scenarioFile), fmt.Sprintf("failed to load scenario: %v", err))
	}

	result, err := harness.Run(cmd.Context(), scenario, harness.WithLogger(opts.logger(cmd)))
	if err != nil {
		return failScenario(w, scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	goldenPath := goldenFilePath(scenarioFile, scenario.Name)
	if opts.Update {
		if err := updateGoldenFile(scenario, result, goldenPath); err != nil {
			return failScenario(w, scenario.Name, fmt.Sprintf("failed to update golden file: %v", err))
		}
		fmt.Fprintf(w, "✓ %s (golden updated)\n", scenario.Name)
		return ScenarioResult{Name: scenario.Name, Pass: true}
	}

	match, err := compareWithGolden(scenario, result, goldenPath)
	if err != nil {
		return failScenario(w, scenario.Name, fmt.Sprintf("golden comparison failed: %v", err))
	}
	if !match {
		fmt.Fprintf(w, "✗ %s\n", scenario.Name)
		fmt.Fprintln(w, "  Golden file mismatch (run with --update to regenerate)")
		return ScenarioResult{
			Name:   scenario.Name,
			Pass:   false,
			Errors: []string{"trace does not match golden file"},
		}
	}

	if result.Pass {
		fmt.Fprintf(w, "✓ %s\n", scenario.Name)
		return ScenarioResult{Name: scenario.Name, Pass: true}
	}

	fmt.Fprintf(w, "✗ %s\n", scenario.Name)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return ScenarioResult{
		Name:   scenario.Name,
		Pass:   false,
		Errors: result.Errors,
	}
}

func failScenario(w io.Writer, name, message string) ScenarioResult {
	fmt.Fprintf(w, "✗ %s\n", name)
	fmt.Fprintf(w, "  %s\n", message)
	return ScenarioResult{Name: name, Pass: false, Errors: []string{message}}
}

// goldenFilePath returns the golden file for a scenario: testdata/scenarios/x.yaml
// maps to testdata/golden/<name>.golden.
func goldenFilePath(scenarioFile, name string) string {
	parent := filepath.Dir(filepath.Dir(scenarioFile))
	return filepath.Join(parent, "golden", name+".golden")
}

// updateGoldenFile writes the current trace as the golden file.
func updateGoldenFile(scenario *harness.Scenario, result *harness.Result, goldenPath string) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}

	data, err := harness.MarshalTrace(scenario.Name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the result trace against the golden file. A
// missing golden file matches.
func compareWithGolden(scenario *harness.Scenario, result *harness.Result, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}

	currentData, err := harness.MarshalTrace(scenario.Name, result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal current trace: %w", err)
	}
	return bytes.Equal(goldenData, currentData), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}
	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    ErrCodeScenarioFails,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%d scenario(s) failed", result.Failed),
			Reported: true,
		}
	}
	return nil
}

// outputTestText prints the summary line after per-scenario output.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%d scenario(s) failed", result.Failed),
			Reported: true,
		}
	}
	return nil
}
