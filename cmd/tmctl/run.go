package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/treadmill/internal/logger"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>...",
		Short: "Execute heap scripts",
		Long: `The run command executes heap scripts one line at a time. Use "-" to read
from standard input. Lines are split like a shell command line and '#' starts a
comment.

Commands:
  new <initial> <growth> <scan_every> [object_size]
  alloc <name>...          link <parent> <child>     unlink <parent> <child>
  root <name>...           unroot <name>...          drop <name>...
  scan [n]                 drain                     flip [n]
  grow <cells>             sizes                     stats
  print                    dump                      color <name>...
  verify                   close
  expect <ecru|grey|black|white|total|releases> <n>
  expect live|dead <name>...
  expect color <name> <color>[|<color>]

Example:
  tmctl run workload.tm
  echo "new 3 3 3; alloc a b c d" | tr ';' '\n' | tmctl run -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScripts(args)
		},
	}
	return cmd
}

func runScripts(paths []string) error {
	for _, path := range paths {
		printVerbose("Running script: %s\n", path)
		logger.Debug("running script", "path", path)
		if err := runScriptFile(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func runScriptFile(path string) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	out := stdout
	if quiet {
		out = io.Discard
	}
	s := newSession(out)
	if err := s.runScript(r); err != nil {
		_ = s.finish()
		return err
	}
	return s.finish()
}
