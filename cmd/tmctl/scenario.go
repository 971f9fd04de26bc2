package main

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/treadmill/internal/logger"
)

//go:embed scenarios/*.tm
var scenarioFS embed.FS

func init() {
	rootCmd.AddCommand(newScenarioCmd())
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [name|all]...",
		Short: "List or replay built-in collector scenarios",
		Long: `The scenario command replays built-in heap scripts that pin down the
collector's observable behavior. Without arguments it lists them.

Example:
  tmctl scenario
  tmctl scenario fourth-alloc-flip
  tmctl scenario all --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(args)
		},
	}
	return cmd
}

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
	Output string `json:"output,omitempty"`
}

func scenarioNames() ([]string, error) {
	entries, err := fs.ReadDir(scenarioFS, "scenarios")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	slices.Sort(names)
	return names, nil
}

func runScenario(name string) ScenarioResult {
	res := ScenarioResult{Name: name}
	src, err := scenarioFS.ReadFile("scenarios/" + name + ".tm")
	if err != nil {
		res.Error = fmt.Sprintf("unknown scenario %q", name)
		return res
	}
	var out bytes.Buffer
	s := newSession(&out)
	err = s.runScript(bytes.NewReader(src))
	if closeErr := s.finish(); err == nil {
		err = closeErr
	}
	res.Output = out.String()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Passed = true
	return res
}

func runScenarios(args []string) error {
	names, err := scenarioNames()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		if jsonOut {
			return printJSON(names)
		}
		printInfo("%s\n", render(headerStyle, "Scenarios:"))
		for _, n := range names {
			printInfo("  %s\n", n)
		}
		return nil
	}
	if len(args) == 1 && args[0] == "all" {
		args = names
	}

	results := make([]ScenarioResult, 0, len(args))
	failed := 0
	for _, name := range args {
		res := runScenario(name)
		if !res.Passed {
			failed++
			logger.Warn("scenario failed", "name", res.Name, "err", res.Error)
		}
		results = append(results, res)
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Passed {
				printInfo("%s %s\n", render(passStyle, "PASS"), res.Name)
			} else {
				printInfo("%s %s: %s\n", render(failStyle, "FAIL"), res.Name, res.Error)
			}
			if verbose && res.Output != "" {
				printInfo("%s", res.Output)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}
