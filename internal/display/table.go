package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/reqcheck/internal/history"
	"github.com/harrison/reqcheck/internal/models"
)

// Column limits for the result table
const (
	maxTextWidth    = 60
	maxSectionWidth = 24
	maxMatchWidth   = 40
)

// ColorEnabled reports whether w is a terminal that should receive ANSI colours.
// NO_COLOR disables colour everywhere.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func paint(s string, attr color.Attribute, on bool) string {
	if !on {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

func statusColor(status string) color.Attribute {
	switch status {
	case models.StatusOK:
		return color.FgGreen
	case models.StatusPartial:
		return color.FgYellow
	case models.StatusFound:
		return color.FgCyan
	default:
		return color.FgRed
	}
}

// width counts runes so Cyrillic text aligns like ASCII
func width(s string) int {
	return utf8.RuneCountInString(s)
}

func pad(s string, w int) string {
	if n := width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// clip flattens s to one line of at most max runes
func clip(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

type column struct {
	title string
	width int
}

func renderGrid(w io.Writer, cols []column, cells [][]string, colorize func(row, col int, padded string) string) {
	for _, row := range cells {
		for i, c := range row {
			if n := width(c); n > cols[i].width {
				cols[i].width = n
			}
		}
	}

	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = pad(c.title, c.width)
	}
	header := strings.TrimRight(strings.Join(parts, "  "), " ")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", width(header)))

	for r, row := range cells {
		for i, c := range row {
			padded := pad(c, cols[i].width)
			if colorize != nil {
				padded = colorize(r, i, padded)
			}
			parts[i] = padded
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
}

// RenderTable prints one line per comparison row.
func RenderTable(w io.Writer, rows []models.ComparisonRow, colorOutput bool) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No requirements to compare")
		return
	}

	cols := []column{{"ID", 2}, {"Section", 7}, {"Requirement", 11}, {"Status", 6}, {"Coverage", 8}, {"Match", 5}}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			r.ReqID,
			clip(r.Section, maxSectionWidth),
			clip(r.ReqText, maxTextWidth),
			r.Status,
			r.Coverage,
			clip(r.MatchType, maxMatchWidth),
		}
	}

	renderGrid(w, cols, cells, func(row, col int, padded string) string {
		if col != 3 {
			return padded
		}
		return paint(padded, statusColor(rows[row].Status), colorOutput)
	})
}

// RenderSummary prints the status counts of a comparison.
func RenderSummary(w io.Writer, s models.Summary, colorOutput bool) {
	fmt.Fprintf(w, "\nTotal: %d  Found: %d  %s  %s  %s\n",
		s.Total, s.Found,
		paint(fmt.Sprintf("OK: %d", s.OK), color.FgGreen, colorOutput),
		paint(fmt.Sprintf("Partial: %d", s.Partial), color.FgYellow, colorOutput),
		paint(fmt.Sprintf("Not found: %d", s.NotFound), color.FgRed, colorOutput))
}

// RenderEvidence prints the evidence snippet and diff of each matched row.
func RenderEvidence(w io.Writer, rows []models.ComparisonRow, colorOutput bool) {
	for _, r := range rows {
		if r.Evidence == "" && r.Error == "" {
			continue
		}
		fmt.Fprintf(w, "\n%s [%s] %s\n", paint(r.ReqID, color.Bold, colorOutput),
			paint(r.Status, statusColor(r.Status), colorOutput), r.MatchType)
		fmt.Fprintf(w, "  Requirement: %s\n", clip(r.ReqText, 200))
		if r.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", paint(r.Error, color.FgRed, colorOutput))
		}
		if r.Evidence != "" {
			fmt.Fprintln(w, "  Evidence:")
			for _, line := range strings.Split(r.Evidence, "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
		if r.Diff != "" {
			fmt.Fprintln(w, "  Diff:")
			for _, line := range strings.Split(r.Diff, "\n") {
				switch {
				case strings.HasPrefix(line, "+"):
					line = paint(line, color.FgGreen, colorOutput)
				case strings.HasPrefix(line, "-"):
					line = paint(line, color.FgRed, colorOutput)
				}
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
}

// RenderRequirements prints parsed requirements with their kind and constraints.
func RenderRequirements(w io.Writer, reqs []models.Requirement, colorOutput bool) {
	if len(reqs) == 0 {
		fmt.Fprintln(w, "No requirements found")
		return
	}

	cols := []column{{"ID", 2}, {"Section", 7}, {"Kind", 4}, {"Constraints", 11}, {"Text", 4}}
	cells := make([][]string, len(reqs))
	for i, r := range reqs {
		var cs []string
		for _, c := range r.Constraints {
			cs = append(cs, c.String())
		}
		cells[i] = []string{
			r.ID,
			clip(r.Section, maxSectionWidth),
			string(r.Kind),
			strings.Join(cs, ", "),
			clip(r.Text, maxTextWidth),
		}
	}

	renderGrid(w, cols, cells, func(row, col int, padded string) string {
		if col == 0 && reqs[row].Synthetic {
			return paint(padded, color.FgHiBlack, colorOutput)
		}
		return padded
	})
	fmt.Fprintf(w, "\n%d requirements\n", len(reqs))
}

// RenderComparisons prints the history listing.
func RenderComparisons(w io.Writer, list []history.Comparison, colorOutput bool) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No saved comparisons")
		return
	}

	cols := []column{{"ID", 2}, {"Date", 4}, {"User", 4}, {"TTZ", 3}, {"KD", 2}, {"Total", 5}, {"OK", 2}, {"Partial", 7}, {"Not found", 9}}
	cells := make([][]string, len(list))
	for i, c := range list {
		cells[i] = []string{
			c.ID,
			c.CreatedAt.Local().Format("2006-01-02 15:04"),
			clip(c.UserName, 20),
			clip(c.TTZFilename, 30),
			clip(c.KDFilename, 30),
			fmt.Sprint(c.Summary.Total),
			fmt.Sprint(c.Summary.OK),
			fmt.Sprint(c.Summary.Partial),
			fmt.Sprint(c.Summary.NotFound),
		}
	}

	renderGrid(w, cols, cells, func(row, col int, padded string) string {
		switch col {
		case 6:
			return paint(padded, color.FgGreen, colorOutput)
		case 7:
			return paint(padded, color.FgYellow, colorOutput)
		case 8:
			return paint(padded, color.FgRed, colorOutput)
		}
		return padded
	})
}

// RenderComments prints a comment thread, oldest first.
func RenderComments(w io.Writer, comments []history.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments")
		return
	}
	for _, c := range comments {
		fmt.Fprintf(w, "[%s] %s: %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"), c.UserName, c.Text)
	}
}
