package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/inhies/go-bytesize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/treadmill/treadmill"
	"github.com/joshuapare/treadmill/treadmill/ring"
)

var (
	// Arc palette
	ecruColor  = lipgloss.Color("#C2B280")
	greyColor  = lipgloss.Color("#8A8A8A")
	blackColor = lipgloss.Color("#7D56F4")
	whiteColor = lipgloss.Color("#E0E0E0")
	errorColor = lipgloss.Color("#FF4B4B")
	okColor    = lipgloss.Color("#04B575")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(blackColor)
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(okColor)
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(errorColor)

	numbers = message.NewPrinter(language.English)
)

// barWidth is the number of glyphs in an arc bar.
const barWidth = 40

func render(s lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return s.Render(text)
}

// formatNumber groups digits: 1234567 -> 1,234,567.
func formatNumber(n int) string {
	return numbers.Sprintf("%d", n)
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int) string {
	return bytesize.New(float64(n)).String()
}

// parseSize accepts a plain integer or a size such as "64B" or "1KB".
func parseSize(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	b, err := bytesize.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int(b), nil
}

// arcBar draws the ring as a proportional bar: ECRU, GREY, BLACK, WHITE.
func arcBar(a ring.Arcs) string {
	total := a.Total()
	if total == 0 {
		return ""
	}
	parts := []struct {
		n     int
		glyph string
		color lipgloss.Color
	}{
		{a.Ecru, "e", ecruColor},
		{a.Grey, "g", greyColor},
		{a.Black, "b", blackColor},
		{a.White, ".", whiteColor},
	}
	var sb strings.Builder
	used := 0
	for i, p := range parts {
		w := p.n * barWidth / total
		if i == len(parts)-1 {
			w = barWidth - used
		}
		if p.n > 0 && w == 0 {
			w = 1
		}
		if used+w > barWidth {
			w = barWidth - used
		}
		used += w
		sb.WriteString(render(lipgloss.NewStyle().Foreground(p.color), strings.Repeat(p.glyph, w)))
	}
	return "[" + sb.String() + "]"
}

// printSizes writes the arc table for a heap.
func printSizes(a ring.Arcs) {
	printInfo("%s\n", render(headerStyle, "Arcs:"))
	printInfo("  %s\n", arcBar(a))
	printInfo("  Ecru:  %s\n", formatNumber(a.Ecru))
	printInfo("  Grey:  %s\n", formatNumber(a.Grey))
	printInfo("  Black: %s\n", formatNumber(a.Black))
	printInfo("  White: %s\n", formatNumber(a.White))
	printInfo("  Total: %s\n", formatNumber(a.Total()))
}

// printStats writes collector counters.
func printStats(s treadmill.Stats, chunkBytes int) {
	printInfo("%s\n", render(headerStyle, "Collector:"))
	printInfo("  Allocations:     %s\n", formatNumber(s.Allocations))
	printInfo("  Scan steps:      %s (%s throttled)\n", formatNumber(s.Scans), formatNumber(s.ThrottledScans))
	printInfo("  Flips:           %s (%s forced)\n", formatNumber(s.Flips), formatNumber(s.ForcedFlips))
	printInfo("  Releases:        %s\n", formatNumber(s.Releases))
	printInfo("  Chunks:          %s (%s cells, %s payload)\n",
		formatNumber(s.Chunks), formatNumber(s.Cells), formatBytes(chunkBytes))
}

// chunkBytes sums the payload memory mapped for a heap.
func chunkBytes(h *treadmill.Heap) int {
	if h.Closed() {
		return 0
	}
	n := 0
	for _, c := range h.Ring().Chunks() {
		n += c.Bytes
	}
	return n
}
