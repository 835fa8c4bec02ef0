package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/reqcheck/internal/models"
)

func TestParseNumberedClause(t *testing.T) {
	reqs := ParseRequirements("Раздел 1. Общие\n2.2.1. Напряжение питания не менее 5 В.")
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, "TTZ-2.2.1", req.ID)
	assert.Equal(t, "2.2.1", req.Number)
	assert.Equal(t, "Раздел 1: Общие", req.Section)
	assert.Equal(t, "Напряжение питания не менее 5 В.", req.Text)
	assert.Equal(t, []models.Mention{{Value: 5, Raw: "5", Unit: "в"}}, req.Mentions)
	assert.Equal(t, []models.Constraint{{Kind: models.ConstraintAtLeast, Value: 5, Unit: "в"}}, req.Constraints)
	assert.Equal(t, models.KindNumeric, req.Kind)
	assert.False(t, req.Synthetic)
}

func TestParseSectionDefaultsToUnknown(t *testing.T) {
	reqs := ParseRequirements("1.1. Система должна работать круглосуточно.")
	require.Len(t, reqs, 1)
	assert.Equal(t, models.UnknownSection, reqs[0].Section)
	assert.Equal(t, models.KindQualitative, reqs[0].Kind)
}

func TestParseBulletsUnderSubheading(t *testing.T) {
	text := `Раздел 2. Состав
2.3 Требования к составу
- блок питания;
- контроллер   управления,
Прочий текст без номера.
`
	reqs := ParseRequirements(text)
	require.Len(t, reqs, 2)

	tests := []struct {
		id, number, text string
	}{
		{"TTZ-2.3-1", "2.3.1", "блок питания"},
		{"TTZ-2.3-2", "2.3.2", "контроллер управления"},
	}
	for i, tt := range tests {
		if reqs[i].ID != tt.id {
			t.Errorf("reqs[%d].ID = %q, want %q", i, reqs[i].ID, tt.id)
		}
		if reqs[i].Number != tt.number {
			t.Errorf("reqs[%d].Number = %q, want %q", i, reqs[i].Number, tt.number)
		}
		if reqs[i].Text != tt.text {
			t.Errorf("reqs[%d].Text = %q, want %q", i, reqs[i].Text, tt.text)
		}
		if !reqs[i].Synthetic || reqs[i].Anchor != "2.3" {
			t.Errorf("reqs[%d] should be synthetic under anchor 2.3, got synthetic=%v anchor=%q", i, reqs[i].Synthetic, reqs[i].Anchor)
		}
		if reqs[i].Section != "Раздел 2: Состав" {
			t.Errorf("reqs[%d].Section = %q", i, reqs[i].Section)
		}
	}
}

func TestParseBulletCounterResetsPerAnchor(t *testing.T) {
	text := `2.3 Требования к составу
- первый
2.4 Требования к интерфейсам
- второй
- третий`
	reqs := ParseRequirements(text)
	require.Len(t, reqs, 3)
	assert.Equal(t, "TTZ-2.3-1", reqs[0].ID)
	assert.Equal(t, "TTZ-2.4-1", reqs[1].ID)
	assert.Equal(t, "TTZ-2.4-2", reqs[2].ID)
}

func TestParseSectionClearsAnchor(t *testing.T) {
	text := `Требования к составу:
- до раздела
Раздел 3. Испытания
- после раздела`
	reqs := ParseRequirements(text)
	require.Len(t, reqs, 1)
	assert.Equal(t, "TTZ-0-1", reqs[0].ID)
	assert.Equal(t, "0", reqs[0].Anchor)
}

func TestParseUnnumberedSubheadingInheritsAnchor(t *testing.T) {
	text := `Раздел 4. Интерфейсы
Требования к разъёмам:
- USB
4.1.1. Система должна поддерживать Ethernet.
Требования к протоколам:
- Modbus`
	reqs := ParseRequirements(text)
	require.Len(t, reqs, 3)
	assert.Equal(t, "TTZ-4-1", reqs[0].ID, "falls back to the section number")
	assert.Equal(t, "TTZ-4.1.1", reqs[1].ID)
	assert.Equal(t, "TTZ-4.1.1-1", reqs[2].ID, "falls back to the last numbered clause")
}

func TestParseNumberedSubheadingIsAlsoAClause(t *testing.T) {
	text := `2.5. В состав системы входят:
- датчик температуры;
- блок индикации.`
	reqs := ParseRequirements(text)
	require.Len(t, reqs, 3)

	assert.Equal(t, "TTZ-2.5", reqs[0].ID)
	assert.Equal(t, models.KindComposition, reqs[0].Kind)
	assert.Equal(t, "TTZ-2.5-1", reqs[1].ID)
	assert.Equal(t, "датчик температуры", reqs[1].Text)
	assert.Equal(t, "блок индикации.", reqs[2].Text)
}

func TestParseSubheadingRules(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantAnchor  bool
		wantClauses int
	}{
		{"colon terminated", "Требования к питанию:", true, 0},
		{"bare title", "Требования к питанию", true, 0},
		{"period terminated is not a heading", "Требования к питанию не установлены.", false, 0},
		{"numeric content is not a heading", "Требования к питанию 220 В", false, 0},
		{"no keyword", "Общие положения:", false, 0},
		{"numbered clause with keyword", "2.2.2. Требования к надежности не предъявляются.", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := ParseRequirements(tt.line + "\n- пункт")
			bullets := 0
			for _, r := range reqs {
				if r.Synthetic {
					bullets++
				}
			}
			assert.Equal(t, tt.wantAnchor, bullets == 1)
			assert.Equal(t, tt.wantClauses, len(reqs)-bullets)
		})
	}
}

func TestParseRangeAndRawConstraints(t *testing.T) {
	text := `2.6.1. Габариты корпуса 300 мм на 200 мм.
2.6.2. Диапазон рабочих температур от -40 °С до +50 °С.`
	reqs := ParseRequirements(text)
	require.Len(t, reqs, 2)

	raw := reqs[0]
	assert.Len(t, raw.Mentions, 2)
	assert.Equal(t, []models.Constraint{
		{Kind: models.ConstraintRaw, Value: 300, Unit: "мм"},
		{Kind: models.ConstraintRaw, Value: 200, Unit: "мм"},
	}, raw.Constraints)
	assert.Equal(t, models.KindOther, raw.Kind)

	ranged := reqs[1]
	assert.Equal(t, []models.Constraint{
		{Kind: models.ConstraintRange, Min: -40, Max: 50, Unit: "°c"},
	}, ranged.Constraints)
	assert.Equal(t, models.KindNumeric, ranged.Kind)
	assert.Len(t, ranged.Mentions, 2)
}

func TestParseIsIdempotent(t *testing.T) {
	text := `Раздел 1. Общие
1.1. Масса не более 2,5 кг.
Требования к составу:
- модуль связи
1.2. Скорость передачи не менее 100 Мбит/с.`
	p := New(nil)
	assert.Equal(t, p.Parse(text), p.Parse(text))
}

func TestParseEmptyAndMalformedInput(t *testing.T) {
	tests := []string{
		"",
		"\n\n   \n",
		"Раздел\n- \n...\n§§§",
		"\x00\xff\xfe",
		"2.\n.2.1 текст\n-",
	}
	for _, text := range tests {
		reqs := ParseRequirements(text)
		assert.NotNil(t, reqs)
		assert.Empty(t, reqs, "input %q", text)
	}
}

func TestParseCRLF(t *testing.T) {
	reqs := ParseRequirements("Раздел 1. Общие\r\n1.1. Текст требования.\r\n")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Текст требования.", reqs[0].Text)
}

func TestEveryRequirementIsValid(t *testing.T) {
	text := `Раздел 1. Общие
1.1. Система должна обеспечивать работу.
Требования к составу:
- блок
1.2. Напряжение от 10 до 30 В.`
	for _, r := range ParseRequirements(text) {
		assert.NoError(t, r.Validate())
	}
}

func TestClassify(t *testing.T) {
	rs := New(nil).rules
	tests := []struct {
		text        string
		constraints []models.Constraint
		want        models.RequirementKind
	}{
		{"В состав входят 2 блока", []models.Constraint{{Kind: models.ConstraintAtLeast, Value: 2}}, models.KindComposition},
		{"Масса не более 5 кг", []models.Constraint{{Kind: models.ConstraintAtMost, Value: 5, Unit: "кг"}}, models.KindNumeric},
		{"Система должна работать 24 ч", []models.Constraint{{Kind: models.ConstraintRaw, Value: 24, Unit: "ч"}}, models.KindQualitative},
		{"Цвет корпуса серый", nil, models.KindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(rs, tt.text, tt.constraints), tt.text)
	}
}
