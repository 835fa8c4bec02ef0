package models

import (
	"errors"
	"fmt"
	"strconv"
)

// UnknownSection is the section assigned to requirements seen before any section heading
const UnknownSection = "UNKNOWN"

// RequirementKind classifies a requirement clause
type RequirementKind string

// Requirement kinds, in classification priority order
const (
	KindComposition RequirementKind = "composition" // Enumerates constituent items of a system
	KindNumeric     RequirementKind = "numeric"     // Has at least one strict constraint
	KindQualitative RequirementKind = "qualitative" // Obligation language without numbers
	KindOther       RequirementKind = "other"
)

// ConstraintKind tags the variant held by a Constraint
type ConstraintKind string

const (
	ConstraintAtLeast ConstraintKind = "at_least"
	ConstraintAtMost  ConstraintKind = "at_most"
	ConstraintRange   ConstraintKind = "range"
	ConstraintRaw     ConstraintKind = "raw" // Bare numeric mention, never verified
)

// Mention is a (value, unit) pair found literally in a text
type Mention struct {
	Value float64 `json:"value"`
	Raw   string  `json:"raw"`            // Number as written, sign and decimal separator included
	Unit  string  `json:"unit,omitempty"` // Canonical unit name from the ruleset
}

// String renders the mention as "<raw> <unit>"
func (m Mention) String() string {
	if m.Unit == "" {
		return m.Raw
	}
	return m.Raw + " " + m.Unit
}

// Constraint is a typed numeric bound derived from a clause.
// Value is used by at_least, at_most and raw; Min and Max by range.
type Constraint struct {
	Kind  ConstraintKind `json:"kind"`
	Value float64        `json:"value,omitempty"`
	Min   float64        `json:"min,omitempty"`
	Max   float64        `json:"max,omitempty"`
	Unit  string         `json:"unit,omitempty"`
}

// IsStrict reports whether the constraint counts toward verification
func (c Constraint) IsStrict() bool {
	switch c.Kind {
	case ConstraintAtLeast, ConstraintAtMost, ConstraintRange:
		return true
	default:
		return false
	}
}

// String renders the constraint in operator form, e.g. ">= 5 в" or "-40..50 °c"
func (c Constraint) String() string {
	var s string
	switch c.Kind {
	case ConstraintAtLeast:
		s = ">= " + FormatNumber(c.Value)
	case ConstraintAtMost:
		s = "<= " + FormatNumber(c.Value)
	case ConstraintRange:
		s = FormatNumber(c.Min) + ".." + FormatNumber(c.Max)
	default:
		s = "~ " + FormatNumber(c.Value)
	}
	if c.Unit != "" {
		s += " " + c.Unit
	}
	return s
}

// FormatNumber renders a float without trailing zeros
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Requirement is one clause extracted from a requirements document.
// Requirements are created once per parse pass and never mutated afterwards.
type Requirement struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	Section     string          `json:"section"`
	Text        string          `json:"text"`
	Mentions    []Mention       `json:"numeric_mentions"`
	Constraints []Constraint    `json:"constraints"`
	Kind        RequirementKind `json:"kind"`
	Synthetic   bool            `json:"synthetic,omitempty"` // Unnumbered bullet numbered from its anchor
	Anchor      string          `json:"anchor,omitempty"`    // Owning sub-heading number for synthetic bullets
}

// Validate checks the requirement invariants
func (r *Requirement) Validate() error {
	if r.ID == "" {
		return errors.New("requirement id is required")
	}
	if r.Text == "" {
		return fmt.Errorf("requirement %s: text is required", r.ID)
	}
	if r.Synthetic && r.Anchor == "" {
		return fmt.Errorf("requirement %s: synthetic requirement has no anchor", r.ID)
	}
	return nil
}

// Strict returns the constraints that count toward verification, in order
func Strict(constraints []Constraint) []Constraint {
	var strict []Constraint
	for _, c := range constraints {
		if c.IsStrict() {
			strict = append(strict, c)
		}
	}
	return strict
}
