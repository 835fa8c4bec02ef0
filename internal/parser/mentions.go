package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/harrison/reqcheck/internal/models"
	"github.com/harrison/reqcheck/internal/rules"
)

// numberRe over-matches dotted numbers on purpose so that "2.2.1" is seen whole and skipped
var numberRe = regexp.MustCompile(`[-+−]?\d+(?:[.,]\d+)*`)

// ExtractMentions returns the (value, unit) pairs written in text, in order.
// Numbers without a recognised unit and dotted clause numbers are not mentions.
func ExtractMentions(rs *rules.Compiled, text string) []models.Mention {
	lower := strings.ToLower(text)
	var mentions []models.Mention

	for _, loc := range numberRe.FindAllStringIndex(lower, -1) {
		start, end := loc[0], loc[1]
		raw := lower[start:end]

		// A sign glued to a preceding word or number is a separator ("220-240")
		if r, size := utf8.DecodeRuneInString(raw); isSign(r) && start > 0 {
			if prev, _ := utf8.DecodeLastRuneInString(lower[:start]); isWordRune(prev) {
				start += size
				raw = lower[start:end]
			}
		}
		if strings.Count(raw, ".")+strings.Count(raw, ",") > 1 {
			continue
		}

		value, ok := ParseNumber(raw)
		if !ok {
			continue
		}

		digitsStart := start
		if r, size := utf8.DecodeRuneInString(raw); isSign(r) {
			digitsStart += size
		}
		if unit, ok := rs.PrefixUnitBefore(lower, digitsStart); ok {
			mentions = append(mentions, models.Mention{Value: value, Raw: raw, Unit: unit})
			continue
		}
		if start > 0 {
			if prev, _ := utf8.DecodeLastRuneInString(lower[:start]); isWordRune(prev) {
				continue
			}
		}
		if unit, _, ok := rs.UnitAt(lower, end); ok {
			mentions = append(mentions, models.Mention{Value: value, Raw: raw, Unit: unit})
		}
	}

	return mentions
}

// DeriveConstraints finds at-least, at-most and range phrases in text. When none
// is present every mention becomes a raw constraint.
func DeriveConstraints(rs *rules.Compiled, text string, mentions []models.Mention) []models.Constraint {
	lower := strings.ToLower(text)

	type positioned struct {
		pos int
		c   models.Constraint
	}
	var found []positioned

	bounds := []struct {
		re   *regexp.Regexp
		kind models.ConstraintKind
	}{
		{rs.AtLeast, models.ConstraintAtLeast},
		{rs.AtMost, models.ConstraintAtMost},
	}
	for _, b := range bounds {
		for _, loc := range b.re.FindAllStringSubmatchIndex(lower, -1) {
			start, end := loc[2], loc[3]
			if continuesNumber(lower, end) {
				continue
			}
			value, ok := ParseNumber(lower[start:end])
			if !ok {
				continue
			}
			found = append(found, positioned{start, models.Constraint{
				Kind:  b.kind,
				Value: value,
				Unit:  unitAround(rs, lower, start, end),
			}})
		}
	}

	if rs.Range != nil {
		for _, loc := range rs.Range.FindAllStringSubmatchIndex(lower, -1) {
			if continuesNumber(lower, loc[3]) || continuesNumber(lower, loc[7]) {
				continue
			}
			lo, ok1 := ParseNumber(lower[loc[2]:loc[3]])
			hi, ok2 := ParseNumber(lower[loc[6]:loc[7]])
			if !ok1 || !ok2 {
				continue
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			unit := unitAround(rs, lower, loc[6], loc[7])
			if unit == "" {
				unit = unitAround(rs, lower, loc[2], loc[3])
			}
			found = append(found, positioned{loc[2], models.Constraint{
				Kind: models.ConstraintRange,
				Min:  lo,
				Max:  hi,
				Unit: unit,
			}})
		}
	}

	if len(found) == 0 {
		constraints := make([]models.Constraint, 0, len(mentions))
		for _, m := range mentions {
			constraints = append(constraints, models.Constraint{Kind: models.ConstraintRaw, Value: m.Value, Unit: m.Unit})
		}
		return constraints
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	constraints := make([]models.Constraint, 0, len(found))
	for _, f := range found {
		constraints = append(constraints, f.c)
	}
	return constraints
}

// ParseNumber converts a number written with a decimal comma or point and an
// optional sign into a float
func ParseNumber(raw string) (float64, bool) {
	s := strings.NewReplacer("−", "-", ",", ".").Replace(strings.TrimSpace(raw))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// unitAround returns the unit written before (prefix units) or after the number at [start, end)
func unitAround(rs *rules.Compiled, lower string, start, end int) string {
	digits := start
	if r, size := utf8.DecodeRuneInString(lower[start:]); isSign(r) {
		digits += size
	}
	if unit, ok := rs.PrefixUnitBefore(lower, digits); ok {
		return unit
	}
	if unit, _, ok := rs.UnitAt(lower, end); ok {
		return unit
	}
	return ""
}

// continuesNumber reports whether a decimal separator and digit follow end,
// which means the matched number is only the head of a dotted clause number
func continuesNumber(s string, end int) bool {
	if end+1 >= len(s) {
		return false
	}
	return (s[end] == '.' || s[end] == ',') && s[end+1] >= '0' && s[end+1] <= '9'
}

func isSign(r rune) bool {
	return r == '-' || r == '+' || r == '−'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// FirstNumber returns the first standalone number in text, skipping dotted clause numbers
func FirstNumber(text string) (float64, bool) {
	for _, loc := range numberRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if r, size := utf8.DecodeRuneInString(text[start:]); isSign(r) && start > 0 {
			if prev, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(prev) {
				start += size
			}
		}
		raw := text[start:end]
		if strings.Count(raw, ".")+strings.Count(raw, ",") > 1 {
			continue
		}
		if v, ok := ParseNumber(raw); ok {
			return v, true
		}
	}
	return 0, false
}
