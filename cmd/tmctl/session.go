package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/joshuapare/treadmill/pkg/objgraph"
	"github.com/joshuapare/treadmill/treadmill"
	"github.com/joshuapare/treadmill/treadmill/verify"
)

// errExpectation marks a failed expect line.
var errExpectation = errors.New("expectation failed")

// session executes heap script commands against one objgraph at a time.
type session struct {
	g      *objgraph.Graph
	out    io.Writer
	line   int
	closed *objgraph.Graph // last graph closed by "close", for post-mortem expects
}

func newSession(out io.Writer) *session {
	return &session{out: out}
}

// runScript executes r line by line and stops at the first error.
func (s *session) runScript(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		args, err := shlex.Split(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", s.line, err)
		}
		if len(args) == 0 {
			continue
		}
		if err := s.exec(args[0], args[1:]); err != nil {
			return fmt.Errorf("line %d: %s: %w", s.line, args[0], err)
		}
	}
	return sc.Err()
}

func (s *session) graph() (*objgraph.Graph, error) {
	if s.g == nil {
		return nil, errors.New("no heap: start with 'new'")
	}
	return s.g, nil
}

// finish closes any open heap.
func (s *session) finish() error {
	if s.g == nil {
		return nil
	}
	err := s.g.Close()
	s.closed, s.g = s.g, nil
	return err
}

func (s *session) exec(cmd string, args []string) error {
	if cmd == "new" {
		return s.cmdNew(args)
	}
	if cmd == "expect" && len(args) > 0 && args[0] == "releases" && s.g == nil && s.closed != nil {
		return s.expectReleases(s.closed, args[1:])
	}

	g, err := s.graph()
	if err != nil {
		return err
	}
	h := g.Heap()

	switch cmd {
	case "alloc":
		return each(args, 1, g.Alloc)
	case "link":
		return pair(args, g.Link)
	case "unlink":
		return pair(args, g.Unlink)
	case "root":
		return each(args, 1, g.Root)
	case "unroot":
		return each(args, 1, g.Unroot)
	case "drop":
		return each(args, 1, g.Drop)
	case "scan":
		n, err := count(args)
		if err != nil {
			return err
		}
		for range n {
			h.Scan()
		}
	case "drain":
		fmt.Fprintf(s.out, "drained %d\n", h.Drain())
	case "flip":
		n, err := count(args)
		if err != nil {
			return err
		}
		for range n {
			if err := h.Flip(); err != nil {
				return err
			}
		}
	case "grow":
		if len(args) != 1 {
			return errors.New("usage: grow <cells>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return h.Grow(n)
	case "sizes":
		a := h.Sizes()
		fmt.Fprintf(s.out, "ecru=%d grey=%d black=%d white=%d total=%d\n",
			a.Ecru, a.Grey, a.Black, a.White, a.Total())
	case "stats":
		st := h.Stats()
		fmt.Fprintf(s.out, "allocations=%d scans=%d flips=%d forced=%d releases=%d chunks=%d cells=%d\n",
			st.Allocations, st.Scans, st.Flips, st.ForcedFlips, st.Releases, st.Chunks, st.Cells)
	case "print":
		return h.Print(s.out)
	case "dump":
		return h.PrintAll(s.out)
	case "color":
		for _, name := range args {
			c, err := s.color(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s=%s\n", name, c)
		}
	case "verify":
		if err := verify.All(h.Ring()); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "ok")
	case "expect":
		return s.expect(args)
	case "close":
		return s.finish()
	default:
		return fmt.Errorf("unknown command")
	}
	return nil
}

func (s *session) cmdNew(args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errors.New("usage: new <initial> <growth> <scan_every> [object_size]")
	}
	if err := s.finish(); err != nil {
		return err
	}
	cfg := treadmill.DefaultConfig()
	ints := []*int{&cfg.InitialSize, &cfg.GrowthRate, &cfg.ScanEvery}
	for i, dst := range ints {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return err
		}
		*dst = n
	}
	if len(args) == 4 {
		n, err := parseSize(args[3])
		if err != nil {
			return err
		}
		cfg.ObjectSize = n
	}
	g, err := objgraph.New(cfg)
	if err != nil {
		return err
	}
	s.g = g
	s.closed = nil
	return nil
}

func (s *session) color(name string) (string, error) {
	obj, err := s.g.Get(name)
	if errors.Is(err, objgraph.ErrReleased) {
		return "released", nil
	}
	if err != nil {
		return "", err
	}
	c, err := s.g.Heap().Color(obj)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// expect checks one assertion:
//
//	expect <ecru|grey|black|white|total> <n>
//	expect releases <n>
//	expect live|dead <name>...
//	expect color <name> <color>
func (s *session) expect(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: expect <what> <value>...")
	}
	g := s.g
	a := g.Heap().Sizes()
	arcs := map[string]int{
		"ecru": a.Ecru, "grey": a.Grey, "black": a.Black, "white": a.White, "total": a.Total(),
	}
	switch what := args[0]; what {
	case "ecru", "grey", "black", "white", "total":
		return expectInt(what, arcs[what], args[1])
	case "releases":
		return s.expectReleases(g, args[1:])
	case "live", "dead":
		for _, name := range args[1:] {
			if g.Live(name) != (what == "live") {
				return fmt.Errorf("%w: %s is not %s", errExpectation, name, what)
			}
		}
	case "color":
		if len(args) != 3 {
			return errors.New("usage: expect color <name> <color>")
		}
		got, err := s.color(args[1])
		if err != nil {
			return err
		}
		if !strings.Contains("|"+args[2]+"|", "|"+got+"|") {
			return fmt.Errorf("%w: %s is %s, want %s", errExpectation, args[1], got, args[2])
		}
	default:
		return fmt.Errorf("unknown expectation %q", what)
	}
	return nil
}

func (s *session) expectReleases(g *objgraph.Graph, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: expect releases <n>")
	}
	if dup := g.DoubleReleases(); len(dup) > 0 {
		return fmt.Errorf("%w: ids released twice: %v", errExpectation, dup)
	}
	return expectInt("releases", len(g.Released()), args[0])
}

func expectInt(what string, got int, wantText string) error {
	want, err := strconv.Atoi(wantText)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %s = %d, want %d", errExpectation, what, got, want)
	}
	return nil
}

func each(args []string, atLeast int, fn func(string) error) error {
	if len(args) < atLeast {
		return fmt.Errorf("expected at least %d argument(s)", atLeast)
	}
	for _, a := range args {
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

func pair(args []string, fn func(a, b string) error) error {
	if len(args) != 2 {
		return errors.New("expected 2 arguments")
	}
	return fn(args[0], args[1])
}

func count(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", args[0])
	}
	return n, nil
}
