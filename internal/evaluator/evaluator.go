package evaluator

import (
	"fmt"
	"strings"

	"github.com/harrison/reqcheck/internal/models"
	"github.com/harrison/reqcheck/internal/parser"
	"github.com/harrison/reqcheck/internal/rules"
)

// epsilon absorbs rounding introduced by unit scaling
const epsilon = 1e-9

// Evaluator checks strict constraints against an evidence snippet
type Evaluator struct {
	rules *rules.Compiled
}

// New creates an Evaluator; a nil ruleset selects the built-in one
func New(rs *rules.Compiled) *Evaluator {
	if rs == nil {
		rs = rules.DefaultCompiled()
	}
	return &Evaluator{rules: rs}
}

// Evaluate returns how many strict constraints the snippet satisfies, how many
// strict constraints there are, and the diagnostics for unsatisfied ones joined by "; ".
// Raw constraints are ignored.
func (e *Evaluator) Evaluate(constraints []models.Constraint, snippet string) (int, int, string) {
	strict := models.Strict(constraints)
	if len(strict) == 0 {
		return 0, 0, ""
	}

	mentions := parser.ExtractMentions(e.rules, snippet)
	restated := models.Strict(parser.DeriveConstraints(e.rules, snippet, mentions))

	satisfied := 0
	var notes []string
	for _, c := range strict {
		ok, note := e.check(c, restated, mentions, snippet)
		if ok {
			satisfied++
			continue
		}
		notes = append(notes, note)
	}

	return satisfied, len(strict), strings.Join(notes, "; ")
}

func (e *Evaluator) check(c models.Constraint, restated []models.Constraint, mentions []models.Mention, snippet string) (bool, string) {
	base := e.rules.BaseUnit(c.Unit)

	// A snippet may restate bounds of neighbouring clauses too, so any
	// restatement of the same kind and unit that is strong enough satisfies
	restatedSeen := false
	for _, r := range restated {
		if r.Kind != c.Kind || e.rules.BaseUnit(r.Unit) != base {
			continue
		}
		restatedSeen = true
		if e.restatedSatisfies(c, r) {
			return true, ""
		}
	}
	if restatedSeen {
		return false, mismatch(c)
	}

	if c.Unit == "" {
		// Best-effort proxy: the first bare number stands in for the value
		v, ok := parser.FirstNumber(snippet)
		if !ok {
			return false, mismatch(c)
		}
		if e.valueSatisfies(c, "", v) {
			return true, ""
		}
		return false, mismatch(c)
	}

	seen := false
	for _, m := range mentions {
		if e.rules.BaseUnit(m.Unit) != base {
			continue
		}
		seen = true
		if e.valueSatisfies(c, m.Unit, m.Value) {
			return true, ""
		}
	}
	if !seen {
		return false, fmt.Sprintf("no value for unit '%s'", c.Unit)
	}
	return false, mismatch(c)
}

// restatedSatisfies compares a restated bound of the same kind against the required one
func (e *Evaluator) restatedSatisfies(req, got models.Constraint) bool {
	switch req.Kind {
	case models.ConstraintAtLeast:
		_, want := e.rules.ToBase(req.Unit, req.Value)
		_, have := e.rules.ToBase(got.Unit, got.Value)
		return have >= want-epsilon
	case models.ConstraintAtMost:
		_, want := e.rules.ToBase(req.Unit, req.Value)
		_, have := e.rules.ToBase(got.Unit, got.Value)
		return have <= want+epsilon
	case models.ConstraintRange:
		_, reqMin := e.rules.ToBase(req.Unit, req.Min)
		_, reqMax := e.rules.ToBase(req.Unit, req.Max)
		_, gotMin := e.rules.ToBase(got.Unit, got.Min)
		_, gotMax := e.rules.ToBase(got.Unit, got.Max)
		covers := gotMin <= reqMin+epsilon && gotMax >= reqMax-epsilon
		within := reqMin <= gotMin+epsilon && reqMax >= gotMax-epsilon
		return covers || within
	default:
		return false
	}
}

// valueSatisfies checks a single observed value against the required bound
func (e *Evaluator) valueSatisfies(req models.Constraint, unit string, v float64) bool {
	if unit != "" {
		_, v = e.rules.ToBase(unit, v)
	}
	switch req.Kind {
	case models.ConstraintAtLeast:
		_, want := e.rules.ToBase(req.Unit, req.Value)
		return v >= want-epsilon
	case models.ConstraintAtMost:
		_, want := e.rules.ToBase(req.Unit, req.Value)
		return v <= want+epsilon
	case models.ConstraintRange:
		_, lo := e.rules.ToBase(req.Unit, req.Min)
		_, hi := e.rules.ToBase(req.Unit, req.Max)
		return v >= lo-epsilon && v <= hi+epsilon
	default:
		return false
	}
}

func mismatch(c models.Constraint) string {
	return fmt.Sprintf("numeric mismatch (%s)", c.String())
}

