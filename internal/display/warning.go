package display

import (
	"fmt"
	"io"
	"strings"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("\x1b[33m")
	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}
		for i, file := range w.Files {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	b.WriteString("\x1b[0m")
	fmt.Fprint(out, b.String())
}

// WarnExtraction reports that a document could not be read in its declared format
func WarnExtraction(file, detail string) Warning {
	return Warning{
		Title:      "Text extraction degraded",
		Message:    detail,
		Files:      []string{file},
		Suggestion: "Check that the file is not damaged, or convert it to .docx or .txt",
	}
}

// WarnShortText reports a document whose extracted text is suspiciously short,
// which usually means a scanned PDF without a text layer.
func WarnShortText(file string, length, minChars int) Warning {
	return Warning{
		Title:      "Very little text extracted",
		Message:    fmt.Sprintf("Got %d characters, expected at least %d", length, minChars),
		Files:      []string{file},
		Suggestion: "The document may be a scan; run it through OCR before comparing",
	}
}

// WarnNoRequirements reports a requirements document that yielded nothing
func WarnNoRequirements(file string) Warning {
	return Warning{
		Title:      "No requirements recognised",
		Message:    "Expected numbered clauses such as \"2.2.1. ...\" or bullets under a heading",
		Files:      []string{file},
		Suggestion: "Run 'reqcheck parse' to inspect, or supply a custom ruleset with --rules",
	}
}
