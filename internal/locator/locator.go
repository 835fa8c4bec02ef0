package locator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/harrison/reqcheck/internal/config"
	"github.com/harrison/reqcheck/internal/models"
	"github.com/harrison/reqcheck/internal/parser"
	"github.com/harrison/reqcheck/internal/rules"
)

var (
	blankLines  = regexp.MustCompile(`\n\s*\n+`)
	blockNumber = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
)

// Locator finds the evidence for a requirement inside a counterpart document.
// Explicit back-references win over content-scored blocks.
type Locator struct {
	cfg   config.MatchingConfig
	rules *rules.Compiled
}

// New creates a Locator; a nil ruleset selects the built-in one
func New(cfg config.MatchingConfig, rs *rules.Compiled) *Locator {
	if rs == nil {
		rs = rules.DefaultCompiled()
	}
	return &Locator{cfg: cfg, rules: rs}
}

// Document is a counterpart text prepared once for many lookups.
// It is read-only after Prepare and safe for concurrent Locate calls.
type Document struct {
	loc      *Locator
	original []rune
	norm     normalized
	blocks   []block
}

type block struct {
	text    string
	tokens  map[string]struct{}
	numbers map[string]struct{}
	units   map[string]struct{}
}

// Prepare normalizes and segments text
func (l *Locator) Prepare(text string) *Document {
	doc := &Document{
		loc:      l,
		original: []rune(text),
		norm:     normalize(text),
	}

	for _, part := range segment(text, l.cfg.MinBlocks, l.cfg.TargetBlockChars) {
		b := block{
			text:    part,
			tokens:  tokenSet(tokenize(l.rules, part, l.cfg.MinTokenLen)),
			numbers: make(map[string]struct{}),
			units:   make(map[string]struct{}),
		}
		for _, n := range blockNumber.FindAllString(part, -1) {
			b.numbers[canonicalNumber(n)] = struct{}{}
		}
		for _, m := range parser.ExtractMentions(l.rules, part) {
			b.units[m.Unit] = struct{}{}
		}
		doc.blocks = append(doc.blocks, b)
	}
	return doc
}

// Locate prepares text and looks up one requirement
func (l *Locator) Locate(text, number, reqText string, mentions []models.Mention) models.MatchResult {
	return l.Prepare(text).Locate(number, reqText, mentions)
}

// Locate returns the best evidence for a requirement, or an empty result when
// nothing clears the acceptance floor
func (d *Document) Locate(number, reqText string, mentions []models.Mention) models.MatchResult {
	if res, ok := d.explicitRef(number); ok {
		return res
	}
	return d.bestBlock(reqText, mentions)
}

func (d *Document) explicitRef(number string) (models.MatchResult, bool) {
	if number == "" || d.norm.text == "" {
		return models.MatchResult{}, false
	}

	start, end := -1, -1
	for _, re := range d.loc.rules.References(number) {
		for _, m := range re.FindAllStringSubmatchIndex(d.norm.text, -1) {
			if !standaloneNumber(d.norm.text, m[2], m[3]) {
				continue
			}
			if start < 0 || m[0] < start {
				start, end = m[0], m[1]
			}
			break
		}
	}
	if start < 0 {
		return models.MatchResult{}, false
	}

	from := d.norm.originalRune(start) - d.loc.cfg.RefWindow
	to := d.lastOriginalRune(end) + d.loc.cfg.RefWindow
	if from < 0 {
		from = 0
	}
	if to > len(d.original) {
		to = len(d.original)
	}

	return models.MatchResult{
		Evidence:  strings.TrimSpace(string(d.original[from:to])),
		MatchType: models.MatchExplicitRef,
		Score:     d.loc.cfg.ExplicitRefScore,
	}, true
}

// lastOriginalRune maps an exclusive normalized byte end to an exclusive original rune end
func (d *Document) lastOriginalRune(end int) int {
	_, size := utf8.DecodeLastRuneInString(d.norm.text[:end])
	return d.norm.originalRune(end-size) + 1
}

// standaloneNumber reports whether s[start:end] is not part of a longer dotted number
func standaloneNumber(s string, start, end int) bool {
	if start > 0 {
		prev := s[start-1]
		if isDigit(prev) {
			return false
		}
		if (prev == '.' || prev == ',') && start > 1 && isDigit(s[start-2]) {
			return false
		}
	}
	if end < len(s) {
		next := s[end]
		if isDigit(next) {
			return false
		}
		if (next == '.' || next == ',') && end+1 < len(s) && isDigit(s[end+1]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func (d *Document) bestBlock(reqText string, mentions []models.Mention) models.MatchResult {
	cfg := d.loc.cfg
	reqTokens := tokenSet(tokenize(d.loc.rules, reqText, cfg.MinTokenLen))

	best, bestScore := -1, 0.0
	for i, b := range d.blocks {
		// Strictly greater keeps the first block on ties
		if sc := d.score(reqTokens, mentions, b); sc > bestScore {
			best, bestScore = i, sc
		}
	}

	if best < 0 || bestScore < cfg.AcceptanceFloor {
		return models.MatchResult{}
	}
	return models.MatchResult{
		Evidence:  truncate(d.blocks[best].text, cfg.MaxEvidenceChars),
		MatchType: models.MatchScoredBlock,
		Score:     bestScore,
	}
}

func (d *Document) score(reqTokens map[string]struct{}, mentions []models.Mention, b block) float64 {
	if len(b.tokens) == 0 {
		return 0
	}
	cfg := d.loc.cfg

	overlap := 0
	for t := range reqTokens {
		if _, ok := b.tokens[t]; ok {
			overlap++
		}
	}
	denom := len(reqTokens)
	if denom < 1 {
		denom = 1
	}
	tokenScore := float64(overlap) / float64(denom) * cfg.TokenWeight

	numScore := 0.0
	for _, m := range mentions {
		raw := m.Raw
		if raw == "" {
			raw = models.FormatNumber(m.Value)
		}
		if _, ok := b.numbers[canonicalNumber(raw)]; ok {
			numScore += cfg.ValueWeight
		}
		if m.Unit != "" {
			if _, ok := b.units[m.Unit]; ok {
				numScore += cfg.UnitWeight
			}
		}
	}
	if numScore > cfg.NumericCap {
		numScore = cfg.NumericCap
	}

	return tokenScore + numScore
}

// segment splits text into blocks on blank lines, or packs lines into blocks of
// about target characters when blank lines give fewer than minBlocks
func segment(text string, minBlocks, target int) []string {
	text = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(text)

	var parts []string
	for _, p := range blankLines.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) >= minBlocks {
		return parts
	}

	var blocks []string
	var buf []string
	length := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(buf) > 0 {
			length++
		}
		buf = append(buf, line)
		length += utf8.RuneCountInString(line)
		if length >= target {
			blocks = append(blocks, strings.Join(buf, " "))
			buf, length = nil, 0
		}
	}
	if len(buf) > 0 {
		blocks = append(blocks, strings.Join(buf, " "))
	}
	if len(blocks) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return blocks
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimRight(string(r[:max]), " \t\n") + "..."
}
