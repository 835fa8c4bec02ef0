package parser

import (
	"strconv"
	"strings"

	"github.com/harrison/reqcheck/internal/models"
	"github.com/harrison/reqcheck/internal/rules"
)

// IDPrefix is prepended to requirement numbers to form requirement ids
const IDPrefix = "TTZ-"

// rootAnchor is used for bullets under a sub-heading that has no number to inherit
const rootAnchor = "0"

// Parser turns requirements-document text into Requirement records.
// A Parser holds no per-document state and may be shared between goroutines.
type Parser struct {
	rules *rules.Compiled
}

// New creates a Parser for the given ruleset; nil selects the built-in one
func New(rs *rules.Compiled) *Parser {
	if rs == nil {
		rs = rules.DefaultCompiled()
	}
	return &Parser{rules: rs}
}

// ParseRequirements parses text with the built-in ruleset
func ParseRequirements(text string) []models.Requirement {
	return New(nil).Parse(text)
}

// lineState carries the context one line leaves for the next
type lineState struct {
	section       string
	sectionNumber string
	lastNumber    string // Last numbered clause seen in the current section
	anchor        string // Active sub-heading anchor, empty when bullets are not collected
	bullets       int
}

func (s *lineState) enterSection(title, number string) {
	s.section = title
	s.sectionNumber = number
	s.lastNumber = ""
	s.anchor = ""
	s.bullets = 0
}

func (s *lineState) enterSubheading(number string) {
	switch {
	case number != "":
		s.anchor = number
	case s.lastNumber != "":
		s.anchor = s.lastNumber
	case s.sectionNumber != "":
		s.anchor = s.sectionNumber
	default:
		s.anchor = rootAnchor
	}
	s.bullets = 0
}

// Parse returns the requirements of text in document order. Lines that match
// no pattern are dropped; empty text yields an empty slice.
func (p *Parser) Parse(text string) []models.Requirement {
	reqs := make([]models.Requirement, 0)
	state := &lineState{section: models.UnknownSection}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if title, number, ok := p.matchSection(line); ok {
			state.enterSection(title, number)
			continue
		}

		if number, ok := p.matchSubheading(line); ok {
			state.enterSubheading(number)
			// A numbered heading such as "2.3. В состав входят:" is a clause in its own right
			if num, body, ok := p.matchNumbered(line); ok {
				reqs = append(reqs, p.build(IDPrefix+num, num, state.section, body))
				state.lastNumber = num
			}
			continue
		}

		if num, body, ok := p.matchNumbered(line); ok {
			reqs = append(reqs, p.build(IDPrefix+num, num, state.section, body))
			state.lastNumber = num
			continue
		}

		if body, ok := p.matchBullet(line); ok && state.anchor != "" {
			state.bullets++
			k := strconv.Itoa(state.bullets)
			req := p.build(IDPrefix+state.anchor+"-"+k, state.anchor+"."+k, state.section, body)
			req.Synthetic = true
			req.Anchor = state.anchor
			reqs = append(reqs, req)
		}
	}

	return reqs
}

func (p *Parser) matchSection(line string) (string, string, bool) {
	re := p.rules.Section
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}

	keyword := "Раздел"
	if i := re.SubexpIndex("kw"); i >= 0 && m[i] != "" {
		keyword = m[i]
	}
	number := m[re.SubexpIndex("num")]
	title := collapseSpaces(m[re.SubexpIndex("title")])

	section := keyword + " " + number
	if title != "" {
		section += ": " + title
	}
	return section, number, true
}

// matchSubheading reports whether line opens a bullet list: it must carry a
// sub-heading keyword and either end with a colon or read as a bare title.
func (p *Parser) matchSubheading(line string) (string, bool) {
	re := p.rules.Subheading
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}

	body := m[re.SubexpIndex("text")]
	if !p.rules.HasSubheadingKeyword(body) {
		return "", false
	}
	if !strings.HasSuffix(body, ":") {
		if strings.HasSuffix(body, ".") || len(ExtractMentions(p.rules, body)) > 0 {
			return "", false
		}
	}

	number := ""
	if i := re.SubexpIndex("num"); i >= 0 {
		number = m[i]
	}
	return number, true
}

func (p *Parser) matchNumbered(line string) (string, string, bool) {
	re := p.rules.Numbered
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	body := collapseSpaces(m[re.SubexpIndex("text")])
	if body == "" {
		return "", "", false
	}
	return m[re.SubexpIndex("num")], body, true
}

func (p *Parser) matchBullet(line string) (string, bool) {
	re := p.rules.Bullet
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	body := strings.TrimRight(collapseSpaces(m[re.SubexpIndex("text")]), ";,")
	body = strings.TrimSpace(body)
	return body, body != ""
}

func (p *Parser) build(id, number, section, text string) models.Requirement {
	mentions := ExtractMentions(p.rules, text)
	constraints := DeriveConstraints(p.rules, text, mentions)
	return models.Requirement{
		ID:          id,
		Number:      number,
		Section:     section,
		Text:        text,
		Mentions:    mentions,
		Constraints: constraints,
		Kind:        Classify(p.rules, text, constraints),
	}
}

// Classify applies the kind cascade: composition, then numeric, then qualitative
func Classify(rs *rules.Compiled, text string, constraints []models.Constraint) models.RequirementKind {
	lower := strings.ToLower(text)
	if rs.Composition != nil && rs.Composition.MatchString(lower) {
		return models.KindComposition
	}
	for _, c := range constraints {
		if c.IsStrict() {
			return models.KindNumeric
		}
	}
	if rs.Obligation != nil && rs.Obligation.MatchString(lower) {
		return models.KindQualitative
	}
	return models.KindOther
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
