// Package report renders comparison results as JSON, Markdown or CSV files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/reqcheck/internal/filelock"
	"github.com/harrison/reqcheck/internal/models"
)

// Report is one comparison run as written to disk.
type Report struct {
	ID          string                 `json:"id,omitempty"`
	TTZFile     string                 `json:"ttz_file"`
	KDFile      string                 `json:"kd_file"`
	GeneratedAt time.Time              `json:"generated_at"`
	Summary     models.Summary         `json:"summary"`
	Rows        []models.ComparisonRow `json:"rows"`
}

// New builds a report and computes its summary.
func New(ttzFile, kdFile string, rows []models.ComparisonRow) Report {
	if rows == nil {
		rows = []models.ComparisonRow{}
	}
	return Report{
		TTZFile:     ttzFile,
		KDFile:      kdFile,
		GeneratedAt: time.Now().UTC(),
		Summary:     models.Summarize(rows),
		Rows:        rows,
	}
}

// CSVHeader is the column order used by WriteCSV
var CSVHeader = []string{"req_id", "ttz_section", "req_text", "status", "match_type", "kd_evidence", "numbers_covered", "diff", "error"}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// CSV writes one record per row.
func CSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range r.Rows {
		record := []string{row.ReqID, row.Section, row.ReqText, row.Status, row.MatchType, row.Evidence, row.Coverage, row.Diff, row.Error}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Markdown writes a summary followed by the result table and per-row evidence.
func Markdown(w io.Writer, r Report) error {
	var b strings.Builder

	b.WriteString("# Requirement coverage report\n\n")
	fmt.Fprintf(&b, "- TTZ: `%s`\n", r.TTZFile)
	fmt.Fprintf(&b, "- KD: `%s`\n", r.KDFile)
	if r.ID != "" {
		fmt.Fprintf(&b, "- Comparison: `%s`\n", r.ID)
	}
	fmt.Fprintf(&b, "- Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	s := r.Summary
	b.WriteString("| Total | Found | OK | Partial | Not found |\n")
	b.WriteString("|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n\n", s.Total, s.Found, s.OK, s.Partial, s.NotFound)

	b.WriteString("## Results\n\n")
	b.WriteString("| ID | Section | Requirement | Status | Match | Coverage |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			cell(row.ReqID), cell(row.Section), cell(row.ReqText), row.Status, cell(row.MatchType), row.Coverage)
	}

	var details []models.ComparisonRow
	for _, row := range r.Rows {
		if row.Evidence != "" || row.Error != "" {
			details = append(details, row)
		}
	}
	if len(details) > 0 {
		b.WriteString("\n## Evidence\n")
		for _, row := range details {
			fmt.Fprintf(&b, "\n### %s (%s)\n\n", row.ReqID, row.Status)
			if row.Error != "" {
				fmt.Fprintf(&b, "Error: %s\n\n", row.Error)
			}
			if row.Evidence != "" {
				for _, line := range strings.Split(row.Evidence, "\n") {
					fmt.Fprintf(&b, "> %s\n", line)
				}
				b.WriteString("\n")
			}
			if row.Diff != "" {
				fmt.Fprintf(&b, "```diff\n%s\n```\n", row.Diff)
			}
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// cell makes text safe for a single Markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// WriteJSON writes the report to path atomically.
func WriteJSON(path string, r Report) error {
	return filelock.AtomicWriteFunc(path, func(w io.Writer) error { return JSON(w, r) })
}

// WriteCSV writes the report to path atomically.
func WriteCSV(path string, r Report) error {
	return filelock.AtomicWriteFunc(path, func(w io.Writer) error { return CSV(w, r) })
}

// WriteMarkdown writes the report to path atomically.
func WriteMarkdown(path string, r Report) error {
	return filelock.AtomicWriteFunc(path, func(w io.Writer) error { return Markdown(w, r) })
}

// Write picks the format from the file extension.
func Write(path string, r Report) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return WriteJSON(path, r)
	case ".csv":
		return WriteCSV(path, r)
	case ".md", ".markdown":
		return WriteMarkdown(path, r)
	default:
		return fmt.Errorf("unsupported report format %q (want .json, .csv or .md)", filepath.Ext(path))
	}
}
