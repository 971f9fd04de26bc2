package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/treadmill/internal/logger"
	"github.com/joshuapare/treadmill/pkg/objgraph"
	"github.com/joshuapare/treadmill/treadmill"
	"github.com/joshuapare/treadmill/treadmill/ring"
	"github.com/joshuapare/treadmill/treadmill/verify"
)

// Workload describes a random allocation workload.
type Workload struct {
	Heap       treadmill.Config `yaml:"heap" json:"heap"`
	Steps      int              `yaml:"steps" json:"steps"`
	Seed       uint64           `yaml:"seed" json:"seed"`
	Roots      int              `yaml:"roots" json:"roots"`
	Window     int              `yaml:"window" json:"window"`           // recent objects eligible for links
	LinkProb   float64          `yaml:"link_prob" json:"link_prob"`     // chance a new object is linked from a recent one
	UnlinkProb float64          `yaml:"unlink_prob" json:"unlink_prob"` // chance a random link is cut each step
	Verify     bool             `yaml:"verify" json:"verify"`           // check invariants after every step
}

// DefaultWorkload returns the workload used when no file or flags are given.
func DefaultWorkload() Workload {
	return Workload{
		Heap:       treadmill.DefaultConfig(),
		Steps:      10000,
		Seed:       1,
		Roots:      4,
		Window:     64,
		LinkProb:   0.5,
		UnlinkProb: 0.5,
	}
}

// Validate reports the first unusable workload parameter.
func (w Workload) Validate() error {
	switch {
	case w.Steps < 0:
		return fmt.Errorf("steps must be >= 0, got %d", w.Steps)
	case w.Roots < 1:
		return fmt.Errorf("roots must be >= 1, got %d", w.Roots)
	case w.Window < 1:
		return fmt.Errorf("window must be >= 1, got %d", w.Window)
	case w.LinkProb < 0 || w.LinkProb > 1:
		return fmt.Errorf("link_prob must be in [0,1], got %g", w.LinkProb)
	case w.UnlinkProb < 0 || w.UnlinkProb > 1:
		return fmt.Errorf("unlink_prob must be in [0,1], got %g", w.UnlinkProb)
	}
	return w.Heap.Validate()
}

// loadWorkload reads a YAML workload over the defaults.
func loadWorkload(path string) (Workload, error) {
	w := DefaultWorkload()
	data, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("failed to read workload: %w", err)
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("failed to parse workload: %w", err)
	}
	return w, nil
}

// SimulationReport is the outcome of a workload run.
type SimulationReport struct {
	Workload   Workload        `json:"workload"`
	Arcs       ring.Arcs       `json:"arcs"`
	Stats      treadmill.Stats `json:"stats"`
	ChunkBytes int             `json:"chunk_bytes"`
	Live       int             `json:"live"`
	Reachable  int             `json:"reachable"`
	Violations []string        `json:"violations,omitempty"`
}

var (
	simConfig     string
	simObjectSize string
	simFlags      Workload
)

func init() {
	cmd := newSimulateCmd()
	d := DefaultWorkload()
	f := cmd.Flags()
	f.StringVarP(&simConfig, "config", "c", "", "YAML workload file")
	f.IntVar(&simFlags.Heap.InitialSize, "size", d.Heap.InitialSize, "Initial heap cells")
	f.IntVar(&simFlags.Heap.GrowthRate, "growth", d.Heap.GrowthRate, "Cells added per flip")
	f.IntVar(&simFlags.Heap.ScanEvery, "scan-every", d.Heap.ScanEvery, "Allocations per incremental scan step")
	f.StringVar(&simObjectSize, "object-size", fmt.Sprint(d.Heap.ObjectSize), "Payload size (e.g. 64, 64B, 1KB)")
	f.IntVar(&simFlags.Steps, "steps", d.Steps, "Allocations to perform")
	f.Uint64Var(&simFlags.Seed, "seed", d.Seed, "Random seed")
	f.IntVar(&simFlags.Roots, "roots", d.Roots, "Persistent root objects")
	f.IntVar(&simFlags.Window, "window", d.Window, "Recent objects eligible as link sources")
	f.Float64Var(&simFlags.LinkProb, "link-prob", d.LinkProb, "Chance a new object is linked from a recent one")
	f.Float64Var(&simFlags.UnlinkProb, "unlink-prob", d.UnlinkProb, "Chance a random link is cut each step")
	f.BoolVar(&simFlags.Verify, "verify", false, "Check ring invariants after every step")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a random allocation workload",
		Long: `The simulate command grows a random object graph under a set of
persistent roots, cutting links as it goes, and reports the final arc sizes
and collector statistics. With --verify it checks the ring invariants and that
no reachable object was released after every step.

Example:
  tmctl simulate --steps 50000 --size 256 --growth 256
  tmctl simulate --config workload.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := resolveWorkload(cmd)
			if err != nil {
				return err
			}
			return runSimulate(w)
		},
	}
	return cmd
}

// resolveWorkload starts from the config file (if any) and applies explicitly set flags.
func resolveWorkload(cmd *cobra.Command) (Workload, error) {
	w := simFlags
	size, err := parseSize(simObjectSize)
	if err != nil {
		return w, err
	}
	w.Heap.ObjectSize = size

	if simConfig != "" {
		fromFile, err := loadWorkload(simConfig)
		if err != nil {
			return w, err
		}
		f := cmd.Flags()
		override := func(flag string, apply func()) {
			if f.Changed(flag) {
				apply()
			}
		}
		override("size", func() { fromFile.Heap.InitialSize = w.Heap.InitialSize })
		override("growth", func() { fromFile.Heap.GrowthRate = w.Heap.GrowthRate })
		override("scan-every", func() { fromFile.Heap.ScanEvery = w.Heap.ScanEvery })
		override("object-size", func() { fromFile.Heap.ObjectSize = w.Heap.ObjectSize })
		override("steps", func() { fromFile.Steps = w.Steps })
		override("seed", func() { fromFile.Seed = w.Seed })
		override("roots", func() { fromFile.Roots = w.Roots })
		override("window", func() { fromFile.Window = w.Window })
		override("link-prob", func() { fromFile.LinkProb = w.LinkProb })
		override("unlink-prob", func() { fromFile.UnlinkProb = w.UnlinkProb })
		override("verify", func() { fromFile.Verify = w.Verify })
		w = fromFile
	}
	return w, w.Validate()
}

func runSimulate(w Workload) error {
	printVerbose("Workload: %+v\n", w)
	report, err := simulate(w)
	if err != nil {
		return err
	}
	logger.Info("simulation finished",
		"steps", w.Steps,
		"flips", report.Stats.Flips,
		"releases", report.Stats.Releases,
		"violations", len(report.Violations))
	for _, v := range report.Violations {
		logger.Error("invariant violation", "detail", v)
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printInfo("\n%s\n\n", render(headerStyle, fmt.Sprintf("Simulation: %s steps, seed %d",
			formatNumber(w.Steps), w.Seed)))
		printSizes(report.Arcs)
		printInfo("\n")
		printStats(report.Stats, report.ChunkBytes)
		printInfo("\n  Live objects:    %s (%s reachable)\n",
			formatNumber(report.Live), formatNumber(report.Reachable))
		for _, v := range report.Violations {
			printError("%s\n", v)
		}
	}
	if len(report.Violations) > 0 {
		return fmt.Errorf("%d invariant violation(s)", len(report.Violations))
	}
	return nil
}

// simulate runs w and returns its report. The heap is closed before returning.
func simulate(w Workload) (*SimulationReport, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	g, err := objgraph.New(w.Heap)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(w.Seed, w.Seed^0x5851f42d4c957f2d))
	report := &SimulationReport{Workload: w}

	var recent []string
	for i := range w.Roots {
		name := fmt.Sprintf("root%d", i)
		if err := g.Alloc(name); err != nil {
			return nil, errors.Join(err, g.Close())
		}
		if err := g.Root(name); err != nil {
			return nil, errors.Join(err, g.Close())
		}
		recent = append(recent, name)
	}
	roots := slices.Clone(recent)

	for step := range w.Steps {
		name := fmt.Sprintf("o%d", step)
		if err := g.Alloc(name); err != nil {
			return nil, errors.Join(fmt.Errorf("step %d: %w", step, err), g.Close())
		}

		if rng.Float64() < w.LinkProb {
			parent := pickLive(g, rng, recent, roots)
			if err := g.Link(parent, name); err != nil && !errors.Is(err, objgraph.ErrTooManyChildren) {
				return nil, errors.Join(fmt.Errorf("step %d: %w", step, err), g.Close())
			}
		}
		if rng.Float64() < w.UnlinkProb {
			parent := pickLive(g, rng, recent, roots)
			if kids, err := g.Children(parent); err == nil && len(kids) > 0 {
				if err := g.UnlinkAt(parent, rng.IntN(len(kids))); err != nil {
					return nil, errors.Join(fmt.Errorf("step %d: %w", step, err), g.Close())
				}
			}
		}

		recent = append(recent, name)
		if len(recent) > w.Window {
			old := recent[0]
			recent = recent[1:]
			if !slices.Contains(roots, old) {
				// The handle leaves the window; the object lives on only if linked.
				_ = g.Drop(old)
			}
		}

		if w.Verify {
			if v := check(g); v != "" {
				report.Violations = append(report.Violations, fmt.Sprintf("step %d: %s", step, v))
				break
			}
		}
	}

	h := g.Heap()
	report.Arcs = h.Sizes()
	report.ChunkBytes = chunkBytes(h)
	report.Live = len(h.Live())
	report.Reachable = len(g.Reachable())
	if err := g.Close(); err != nil {
		return nil, err
	}
	report.Stats = h.Stats()
	if dup := g.DoubleReleases(); len(dup) > 0 {
		report.Violations = append(report.Violations, fmt.Sprintf("ids released twice: %v", dup))
	}
	return report, nil
}

// check returns a description of the first broken invariant, or "".
func check(g *objgraph.Graph) string {
	if err := verify.All(g.Heap().Ring()); err != nil {
		return err.Error()
	}
	released := g.Released()
	for id := range g.Reachable() {
		if released[id] > 0 {
			return fmt.Sprintf("reachable object %d was released", id)
		}
	}
	return ""
}

// pickLive returns a live recent object, falling back to a root.
func pickLive(g *objgraph.Graph, rng *rand.Rand, recent, roots []string) string {
	for range 4 {
		if n := recent[rng.IntN(len(recent))]; g.Live(n) {
			return n
		}
	}
	return roots[rng.IntN(len(roots))]
}
