package markers

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Comparison is the result of comparing two marker files.
type Comparison struct {
	PathA   string
	PathB   string
	A       *List
	B       *List
	ReportA ParseReport
	ReportB ParseReport
	Rows    []Row
}

// Compare loads both marker files and aligns them.
func (s *Store) Compare(pathA, pathB string) (*Comparison, error) {
	a, reportA, err := s.Load(pathA)
	if err != nil {
		return nil, err
	}
	b, reportB, err := s.Load(pathB)
	if err != nil {
		return nil, err
	}

	rows := Align(a, b)
	s.logger.Debug("Aligned %d and %d markers into %d rows", a.Len(), b.Len(), len(rows))
	return &Comparison{
		PathA:   pathA,
		PathB:   pathB,
		A:       a,
		B:       b,
		ReportA: reportA,
		ReportB: reportB,
		Rows:    rows,
	}, nil
}

// Mismatches counts the highlighted rows.
func (c *Comparison) Mismatches() int {
	n := 0
	for _, r := range c.Rows {
		if r.Highlighted {
			n++
		}
	}
	return n
}

// Identical reports whether every row paired two equal markers.
func (c *Comparison) Identical() bool {
	return c.Mismatches() == 0
}

var paletteAttrs = [len(Palette)]color.Attribute{
	color.BgWhite,
	color.BgRed,
	color.BgCyan,
	color.BgMagenta,
	color.BgYellow,
}

// TextWriter prints aligned rows as two columns.
type TextWriter struct {
	// Colorize paints highlighted rows with their palette color.
	Colorize bool
	// Width is the width of the left column.
	Width int
}

// Write prints the rows to w.
func (tw TextWriter) Write(w io.Writer, rows []Row) error {
	width := tw.Width
	if width <= 0 {
		width = 16
	}
	for _, r := range rows {
		left := fmt.Sprintf("%-*s", width, cellText(r.Left))
		right := fmt.Sprintf("%-*s", width, cellText(r.Right))
		mark := " "
		if r.Highlighted {
			mark = "*"
			if tw.Colorize {
				c := color.New(color.FgBlack, color.Bold, paletteAttrs[r.Color])
				c.EnableColor()
				left, right = c.Sprint(left), c.Sprint(right)
			}
		}
		if _, err := fmt.Fprintf(w, "%s %s | %s\n", mark, left, right); err != nil {
			return err
		}
	}
	return nil
}

func cellText(c Cell) string {
	if c.Blank() {
		return ""
	}
	return c.Marker.String()
}

// Summary returns a one-line description of the comparison.
func (c *Comparison) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rows, %d highlighted", len(c.Rows), c.Mismatches())
	if n := len(c.ReportA.Skipped) + len(c.ReportB.Skipped); n > 0 {
		fmt.Fprintf(&b, ", %d lines skipped", n)
	}
	return b.String()
}
