package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// NumPattern matches a signed decimal number with either decimal separator
const NumPattern = `[-+−]?\d+(?:[.,]\d+)?`

// numPlaceholder marks where a requirement number is spliced into a reference template
const numPlaceholder = "{num}"

// Ruleset is the declarative phrase and unit vocabulary for one document language
type Ruleset struct {
	Language           string            `yaml:"language"`
	Patterns           Patterns          `yaml:"patterns"`
	SubheadingKeywords []string          `yaml:"subheading_keywords"`
	Units              []Unit            `yaml:"units"`
	Constraints        ConstraintPhrases `yaml:"constraints"`
	CompositionPhrases []string          `yaml:"composition_phrases"`
	ObligationPhrases  []string          `yaml:"obligation_phrases"`
	References         []string          `yaml:"references"` // Templates with a single {num} placeholder
	Stopwords          []string          `yaml:"stopwords"`
}

// Patterns holds the line classification expressions
type Patterns struct {
	Section    string `yaml:"section"`    // Groups: num, title, optional kw
	Numbered   string `yaml:"numbered"`   // Groups: num, text
	Subheading string `yaml:"subheading"` // Groups: text, optional num
	Bullet     string `yaml:"bullet"`     // Groups: text
}

// Unit is one entry of the unit vocabulary
type Unit struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Aliases  []string `yaml:"aliases"`
	Prefix   bool     `yaml:"prefix,omitempty"` // Written before the value, e.g. IP54
	Base     string   `yaml:"base,omitempty"`   // Unit values are scaled to for comparison
	Factor   float64  `yaml:"factor,omitempty"` // Multiplier from this unit to Base
}

// ConstraintPhrases holds the phrase families that derive typed constraints
type ConstraintPhrases struct {
	AtLeast    []string `yaml:"at_least"`
	AtMost     []string `yaml:"at_most"`
	RangeOpen  []string `yaml:"range_open"`
	RangeClose []string `yaml:"range_close"`
}

// DefaultYAML returns the embedded ruleset document
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

// Default returns a fresh copy of the built-in ruleset
func Default() *Ruleset {
	var rs Ruleset
	if err := yaml.Unmarshal(defaultYAML, &rs); err != nil {
		panic(fmt.Sprintf("embedded ruleset is invalid: %v", err))
	}
	return &rs
}

// Load reads a ruleset file. Top-level keys absent from the file keep their built-in values.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset file: %w", err)
	}

	rs := Default()
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset YAML: %w", err)
	}
	return rs, nil
}

// LoadCompiled loads a ruleset from path, or the built-in one when path is empty, and compiles it
func LoadCompiled(path string) (*Compiled, error) {
	if path == "" {
		return DefaultCompiled(), nil
	}
	rs, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(rs)
}

var (
	defaultOnce     sync.Once
	defaultCompiled *Compiled
)

// DefaultCompiled returns the compiled built-in ruleset, shared across callers
func DefaultCompiled() *Compiled {
	defaultOnce.Do(func() {
		c, err := Compile(Default())
		if err != nil {
			panic(fmt.Sprintf("embedded ruleset does not compile: %v", err))
		}
		defaultCompiled = c
	})
	return defaultCompiled
}

// Compiled is a validated ruleset with every expression compiled.
// It is immutable and safe for concurrent use.
type Compiled struct {
	Source *Ruleset

	Section    *regexp.Regexp
	Numbered   *regexp.Regexp
	Subheading *regexp.Regexp
	Bullet     *regexp.Regexp

	AtLeast     *regexp.Regexp // Group 1: value
	AtMost      *regexp.Regexp // Group 1: value
	Range       *regexp.Regexp // Groups 1 and 3: bounds, group 2: text between them
	Composition *regexp.Regexp
	Obligation  *regexp.Regexp

	keywords   []string
	units      map[string]Unit
	aliases    []unitAlias // Suffix units, longest alias first
	prefixes   []unitAlias // Prefix units, longest alias first
	references []string
	stopwords  map[string]struct{}
}

type unitAlias struct {
	alias string
	unit  string
}

// boundary is an RE2 stand-in for a Unicode-aware \b before a phrase
const boundary = `(?:^|[^\p{L}\p{N}])`

// Compile validates rs and compiles its expressions
func Compile(rs *Ruleset) (*Compiled, error) {
	if rs == nil {
		return nil, errors.New("ruleset is nil")
	}

	c := &Compiled{
		Source:    rs,
		units:     make(map[string]Unit, len(rs.Units)),
		stopwords: make(map[string]struct{}, len(rs.Stopwords)),
	}

	var err error
	if c.Section, err = compileLine("section", rs.Patterns.Section, "num", "title"); err != nil {
		return nil, err
	}
	if c.Numbered, err = compileLine("numbered", rs.Patterns.Numbered, "num", "text"); err != nil {
		return nil, err
	}
	if c.Subheading, err = compileLine("subheading", rs.Patterns.Subheading, "text"); err != nil {
		return nil, err
	}
	if c.Bullet, err = compileLine("bullet", rs.Patterns.Bullet, "text"); err != nil {
		return nil, err
	}

	for _, kw := range rs.SubheadingKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			c.keywords = append(c.keywords, kw)
		}
	}

	if err := c.compileUnits(rs.Units); err != nil {
		return nil, err
	}

	if len(rs.Constraints.AtLeast) == 0 || len(rs.Constraints.AtMost) == 0 {
		return nil, errors.New("constraints: at_least and at_most phrase lists are required")
	}
	if c.AtLeast, err = compilePhrase("at_least", boundary+alternation(rs.Constraints.AtLeast)+`[^\d\n]{0,30}?(`+NumPattern+`)`); err != nil {
		return nil, err
	}
	if c.AtMost, err = compilePhrase("at_most", boundary+alternation(rs.Constraints.AtMost)+`[^\d\n]{0,30}?(`+NumPattern+`)`); err != nil {
		return nil, err
	}
	if len(rs.Constraints.RangeOpen) > 0 && len(rs.Constraints.RangeClose) > 0 {
		expr := boundary + alternation(rs.Constraints.RangeOpen) + `\s*(` + NumPattern + `)([^\d\n]{0,20}?)[^\p{L}\p{N}]` +
			alternation(rs.Constraints.RangeClose) + `\s*(` + NumPattern + `)`
		if c.Range, err = compilePhrase("range", expr); err != nil {
			return nil, err
		}
	}
	if len(rs.CompositionPhrases) > 0 {
		if c.Composition, err = compilePhrase("composition_phrases", boundary+alternation(rs.CompositionPhrases)); err != nil {
			return nil, err
		}
	}
	if len(rs.ObligationPhrases) > 0 {
		if c.Obligation, err = compilePhrase("obligation_phrases", boundary+alternation(rs.ObligationPhrases)); err != nil {
			return nil, err
		}
	}

	for i, tmpl := range rs.References {
		if strings.Count(tmpl, numPlaceholder) != 1 {
			return nil, fmt.Errorf("references[%d]: template must contain exactly one %s", i, numPlaceholder)
		}
		re, err := regexp.Compile(referenceExpr(tmpl, "1.1"))
		if err != nil {
			return nil, fmt.Errorf("references[%d]: %w", i, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("references[%d]: template must not contain capturing groups", i)
		}
		c.references = append(c.references, tmpl)
	}

	for _, w := range rs.Stopwords {
		c.stopwords[strings.ToLower(w)] = struct{}{}
	}

	return c, nil
}

func compileLine(name, expr string, groups ...string) (*regexp.Regexp, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("patterns.%s is required", name)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("patterns.%s: %w", name, err)
	}
	for _, g := range groups {
		if re.SubexpIndex(g) < 0 {
			return nil, fmt.Errorf("patterns.%s: missing named group %q", name, g)
		}
	}
	return re, nil
}

func compilePhrase(name, expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return re, nil
}

func alternation(phrases []string) string {
	return "(?:" + strings.Join(phrases, "|") + ")"
}

func referenceExpr(tmpl, number string) string {
	return "(?i)" + strings.Replace(tmpl, numPlaceholder, "("+regexp.QuoteMeta(number)+")", 1)
}

func (c *Compiled) compileUnits(units []Unit) error {
	for i, u := range units {
		if u.Name == "" {
			return fmt.Errorf("units[%d]: name is required", i)
		}
		if _, dup := c.units[u.Name]; dup {
			return fmt.Errorf("units[%d]: duplicate unit %q", i, u.Name)
		}
		if len(u.Aliases) == 0 {
			return fmt.Errorf("unit %q: at least one alias is required", u.Name)
		}
		if u.Base == "" {
			u.Base = u.Name
		}
		if u.Factor == 0 {
			u.Factor = 1
		}
		if u.Factor < 0 {
			return fmt.Errorf("unit %q: factor must be positive", u.Name)
		}
		c.units[u.Name] = u

		for _, a := range u.Aliases {
			entry := unitAlias{alias: strings.ToLower(a), unit: u.Name}
			if u.Prefix {
				c.prefixes = append(c.prefixes, entry)
			} else {
				c.aliases = append(c.aliases, entry)
			}
		}
	}

	for name, u := range c.units {
		if _, ok := c.units[u.Base]; !ok {
			return fmt.Errorf("unit %q: unknown base unit %q", name, u.Base)
		}
	}

	byLength := func(list []unitAlias) func(i, j int) bool {
		return func(i, j int) bool {
			return utf8.RuneCountInString(list[i].alias) > utf8.RuneCountInString(list[j].alias)
		}
	}
	sort.SliceStable(c.aliases, byLength(c.aliases))
	sort.SliceStable(c.prefixes, byLength(c.prefixes))
	return nil
}

// HasSubheadingKeyword reports whether text contains a sub-heading keyword
func (c *Compiled) HasSubheadingKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Unit returns the vocabulary entry for a canonical unit name
func (c *Compiled) Unit(name string) (Unit, bool) {
	u, ok := c.units[name]
	return u, ok
}

// BaseUnit returns the unit values of name are compared in, or name itself when unknown
func (c *Compiled) BaseUnit(name string) string {
	if u, ok := c.units[name]; ok {
		return u.Base
	}
	return name
}

// ToBase scales v from unit name to its base unit
func (c *Compiled) ToBase(name string, v float64) (string, float64) {
	u, ok := c.units[name]
	if !ok {
		return name, v
	}
	return u.Base, v * u.Factor
}

// UnitAt matches a suffix unit starting at byte offset i of the lower-cased s,
// skipping horizontal whitespace. It returns the canonical unit name and the end offset.
func (c *Compiled) UnitAt(s string, i int) (string, int, bool) {
	j := i
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if r != ' ' && r != '\t' && r != '\u00a0' {
			break
		}
		j += size
	}
	for _, a := range c.aliases {
		if !strings.HasPrefix(s[j:], a.alias) {
			continue
		}
		end := j + len(a.alias)
		if end < len(s) {
			next, _ := utf8.DecodeRuneInString(s[end:])
			if unicode.IsLetter(next) || unicode.IsDigit(next) {
				continue
			}
		}
		return a.unit, end, true
	}
	return "", i, false
}

// PrefixUnitBefore matches a prefix unit ending right before byte offset i of the lower-cased s
func (c *Compiled) PrefixUnitBefore(s string, i int) (string, bool) {
	head := strings.TrimRight(s[:i], " \t\u00a0")
	for _, a := range c.prefixes {
		if !strings.HasSuffix(head, a.alias) {
			continue
		}
		start := len(head) - len(a.alias)
		if start > 0 {
			prev, _ := utf8.DecodeLastRuneInString(head[:start])
			if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
				continue
			}
		}
		return a.unit, true
	}
	return "", false
}

// References compiles the reference templates for one requirement number, in ruleset order.
// Group 1 of each expression spans the number.
func (c *Compiled) References(number string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(c.references))
	for _, tmpl := range c.references {
		out = append(out, regexp.MustCompile(referenceExpr(tmpl, number)))
	}
	return out
}

// IsStopword reports whether a lower-cased token is a stop-word
func (c *Compiled) IsStopword(token string) bool {
	_, ok := c.stopwords[token]
	return ok
}
