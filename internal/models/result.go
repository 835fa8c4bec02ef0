package models

import "fmt"

// MatchType says how evidence for a requirement was located
type MatchType string

const (
	MatchNone        MatchType = ""
	MatchExplicitRef MatchType = "explicit_ref" // Counterpart cites the requirement number directly
	MatchScoredBlock MatchType = "scored_block" // Best content-scored block above the acceptance floor
)

// Coverage status constants
const (
	StatusOK       = "OK"        // Every strict constraint satisfied
	StatusPartial  = "PARTIAL"   // Some strict constraints unsatisfied
	StatusFound    = "FOUND"     // Evidence found, nothing numeric to verify
	StatusNotFound = "NOT_FOUND" // No evidence
)

// MatchResult is the evidence located for one requirement.
// Evidence is empty iff MatchType is empty iff Score fell below the acceptance floor.
type MatchResult struct {
	Evidence  string    `json:"evidence"`
	MatchType MatchType `json:"match_type"`
	Score     float64   `json:"score"`
}

// Found reports whether the locator accepted a match
func (m MatchResult) Found() bool {
	return m.MatchType != MatchNone
}

// ComparisonRow is the finalized verdict for one requirement
type ComparisonRow struct {
	ReqID     string `json:"req_id"`
	Section   string `json:"section"`
	ReqText   string `json:"req_text"`
	Status    string `json:"status"`
	MatchType string `json:"match_type"` // Locator match type, optionally suffixed with "; <note>"
	Evidence  string `json:"evidence"`
	Coverage  string `json:"coverage"` // "satisfied/total" or empty
	Diff      string `json:"diff"`
	Error     string `json:"error,omitempty"` // Set when evaluation of this row failed
}

// FormatCoverage renders a "satisfied/total" pair, empty when total is zero
func FormatCoverage(satisfied, total int) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", satisfied, total)
}

// Summary aggregates row statuses
type Summary struct {
	Total    int `json:"total"`
	Found    int `json:"found"` // OK + PARTIAL + FOUND
	OK       int `json:"ok"`
	Partial  int `json:"partial"`
	NotFound int `json:"not_found"`
}

// Summarize counts statuses across rows
func Summarize(rows []ComparisonRow) Summary {
	s := Summary{Total: len(rows)}
	for _, row := range rows {
		switch row.Status {
		case StatusOK:
			s.OK++
			s.Found++
		case StatusPartial:
			s.Partial++
			s.Found++
		case StatusFound:
			s.Found++
		case StatusNotFound:
			s.NotFound++
		}
	}
	return s
}
