package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCompiles(t *testing.T) {
	c, err := Compile(Default())
	require.NoError(t, err)
	assert.NotNil(t, c.Range)
	assert.NotNil(t, c.Composition)
	assert.NotNil(t, c.Obligation)
	assert.Same(t, DefaultCompiled(), DefaultCompiled())
}

func TestDefaultReturnsFreshCopy(t *testing.T) {
	a := Default()
	a.Stopwords = nil
	assert.NotEmpty(t, Default().Stopwords)
}

func TestLineClassifiers(t *testing.T) {
	c := DefaultCompiled()

	m := c.Section.FindStringSubmatch("Раздел 1. Общие положения")
	require.NotNil(t, m)
	assert.Equal(t, "1", m[c.Section.SubexpIndex("num")])
	assert.Equal(t, "Общие положения", m[c.Section.SubexpIndex("title")])

	m = c.Numbered.FindStringSubmatch("  * 2.2.1. Напряжение питания не менее 5 В.")
	require.NotNil(t, m)
	assert.Equal(t, "2.2.1", m[c.Numbered.SubexpIndex("num")])
	assert.Equal(t, "Напряжение питания не менее 5 В.", m[c.Numbered.SubexpIndex("text")])

	assert.Nil(t, c.Numbered.FindStringSubmatch("2. Одноуровневый номер"))
	assert.NotNil(t, c.Bullet.FindStringSubmatch("- блок питания;"))
	assert.NotNil(t, c.Bullet.FindStringSubmatch("• датчик"))
	assert.Nil(t, c.Bullet.FindStringSubmatch("-блок"))
}

func TestHasSubheadingKeyword(t *testing.T) {
	c := DefaultCompiled()
	assert.True(t, c.HasSubheadingKeyword("Требования к составу"))
	assert.True(t, c.HasSubheadingKeyword("General requirements"))
	assert.False(t, c.HasSubheadingKeyword("Общие положения"))
}

func TestUnitAt(t *testing.T) {
	c := DefaultCompiled()

	tests := []struct {
		name   string
		text   string
		offset int
		unit   string
		ok     bool
	}{
		{"space then volt", "5 в.", 1, "в", true},
		{"attached percent", "3%", 1, "%", true},
		{"longest alias wins", "10 мм", 2, "мм", true},
		{"word alias", "12 часов", 2, "ч", true},
		{"data rate", "100 мбит/с", 3, "мбит/с", true},
		{"letter after alias", "5 вход", 1, "", false},
		{"no unit", "5 штук", 1, "", false},
		{"end of text", "5", 1, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, end, ok := c.UnitAt(tt.text, tt.offset)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.unit, unit)
			if ok {
				assert.Greater(t, end, tt.offset)
			}
		})
	}
}

func TestPrefixUnitBefore(t *testing.T) {
	c := DefaultCompiled()

	unit, ok := c.PrefixUnitBefore("степень защиты ip54", len("степень защиты ip"))
	assert.True(t, ok)
	assert.Equal(t, "ip", unit)

	_, ok = c.PrefixUnitBefore("zip54", len("zip"))
	assert.False(t, ok)
}

func TestToBase(t *testing.T) {
	c := DefaultCompiled()

	base, v := c.ToBase("мм", 1500)
	assert.Equal(t, "м", base)
	assert.InDelta(t, 1.5, v, 1e-9)

	base, v = c.ToBase("в", 5)
	assert.Equal(t, "в", base)
	assert.Equal(t, 5.0, v)

	base, v = c.ToBase("unknown", 7)
	assert.Equal(t, "unknown", base)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, "кг", c.BaseUnit("г"))
}

func TestPhraseFamilies(t *testing.T) {
	c := DefaultCompiled()

	m := c.AtLeast.FindStringSubmatch("напряжение не менее 5 в")
	require.NotNil(t, m)
	assert.Equal(t, "5", m[1])

	m = c.AtMost.FindStringSubmatch("масса не превышает 2,5 кг")
	require.NotNil(t, m)
	assert.Equal(t, "2,5", m[1])

	m = c.Range.FindStringSubmatch("температура от -40 °с до +50 °с")
	require.NotNil(t, m)
	assert.Equal(t, "-40", m[1])
	assert.Equal(t, "+50", m[3])

	assert.Nil(t, c.Range.FindStringSubmatch("работает от сети"))
	assert.True(t, c.Composition.MatchString("в состав системы входят"))
	assert.True(t, c.Obligation.MatchString("система должна работать"))
}

func TestReferences(t *testing.T) {
	c := DefaultCompiled()

	res := c.References("2.2.1")
	require.Len(t, res, len(Default().References))

	matched := false
	for _, re := range res {
		if loc := re.FindStringSubmatchIndex("согласно п. 2.2.1 тз: напряжение"); loc != nil {
			matched = true
			assert.Equal(t, "2.2.1", "согласно п. 2.2.1 тз: напряжение"[loc[2]:loc[3]])
		}
	}
	assert.True(t, matched)

	assert.False(t, res[0].MatchString("п. 2x2x1 тз"), "number must be quoted")
}

func TestCompileRejectsInvalidRulesets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rs *Ruleset)
	}{
		{"missing section pattern", func(rs *Ruleset) { rs.Patterns.Section = "" }},
		{"numbered without num group", func(rs *Ruleset) { rs.Patterns.Numbered = `^(?P<text>.+)$` }},
		{"bad regexp", func(rs *Ruleset) { rs.Patterns.Bullet = `(?P<text>[` }},
		{"unit without aliases", func(rs *Ruleset) { rs.Units = append(rs.Units, Unit{Name: "x"}) }},
		{"duplicate unit", func(rs *Ruleset) { rs.Units = append(rs.Units, rs.Units[0]) }},
		{"unknown base", func(rs *Ruleset) { rs.Units = append(rs.Units, Unit{Name: "x", Aliases: []string{"x"}, Base: "y"}) }},
		{"missing at_least", func(rs *Ruleset) { rs.Constraints.AtLeast = nil }},
		{"reference without placeholder", func(rs *Ruleset) { rs.References = []string{`item\s+\d+`} }},
		{"reference with group", func(rs *Ruleset) { rs.References = []string{`(item)\s+{num}`} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := Default()
			tt.mutate(rs)
			_, err := Compile(rs)
			assert.Error(t, err)
		})
	}

	_, err := Compile(nil)
	assert.Error(t, err)
}

func TestLoadKeepsDefaultsForAbsentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "language: en\nstopwords: [the, a]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "en", rs.Language)
	assert.Equal(t, []string{"the", "a"}, rs.Stopwords)
	assert.NotEmpty(t, rs.Units)

	c, err := LoadCompiled(path)
	require.NoError(t, err)
	assert.True(t, c.IsStopword("the"))
	assert.False(t, c.IsStopword("для"))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("units: [unclosed"), 0644))
	_, err = Load(path)
	assert.Error(t, err)

	c, err := LoadCompiled("")
	require.NoError(t, err)
	assert.Same(t, DefaultCompiled(), c)
}
