package locator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/harrison/reqcheck/internal/rules"
)

// tokenSplit separates scoring tokens; it keeps units and decimal numbers intact
var tokenSplit = regexp.MustCompile(`[^a-zа-я0-9%℃°./\-]+`)

// normalized is lower-cased text with ё folded and whitespace runs collapsed.
// offsets[i] is the rune index in the original text of normalized rune i.
type normalized struct {
	text    string
	offsets []int
}

func normalize(s string) normalized {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, utf8.RuneCountInString(s))

	inSpace := false
	idx := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace && len(offsets) > 0 {
				b.WriteRune(' ')
				offsets = append(offsets, idx)
			}
			inSpace = true
			idx++
			continue
		}
		inSpace = false
		r = unicode.ToLower(r)
		if r == 'ё' {
			r = 'е'
		}
		b.WriteRune(r)
		offsets = append(offsets, idx)
		idx++
	}

	text := b.String()
	if strings.HasSuffix(text, " ") {
		text = text[:len(text)-1]
		offsets = offsets[:len(offsets)-1]
	}
	return normalized{text: text, offsets: offsets}
}

// originalRune maps a byte offset in the normalized text to a rune index in the original
func (n normalized) originalRune(byteOff int) int {
	i := utf8.RuneCountInString(n.text[:byteOff])
	if i >= len(n.offsets) {
		if len(n.offsets) == 0 {
			return 0
		}
		return n.offsets[len(n.offsets)-1] + 1
	}
	return n.offsets[i]
}

// tokenize returns the significant tokens of s: lower-cased, stop-words and
// tokens shorter than minLen runes removed
func tokenize(rs *rules.Compiled, s string, minLen int) []string {
	norm := normalize(s).text
	var out []string
	for _, t := range tokenSplit.Split(norm, -1) {
		t = strings.Trim(t, ".-/")
		if utf8.RuneCountInString(t) < minLen {
			continue
		}
		if rs.IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// canonicalNumber strips the sign and folds the decimal comma so "2,5" and "2.5" compare equal
func canonicalNumber(raw string) string {
	raw = strings.TrimLeft(raw, "+-−")
	return strings.ReplaceAll(raw, ",", ".")
}
