package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstraintIsStrict(t *testing.T) {
	tests := []struct {
		kind ConstraintKind
		want bool
	}{
		{ConstraintAtLeast, true},
		{ConstraintAtMost, true},
		{ConstraintRange, true},
		{ConstraintRaw, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, Constraint{Kind: tt.kind}.IsStrict())
		})
	}
}

func TestConstraintString(t *testing.T) {
	assert.Equal(t, ">= 5 в", Constraint{Kind: ConstraintAtLeast, Value: 5, Unit: "в"}.String())
	assert.Equal(t, "<= 3 %", Constraint{Kind: ConstraintAtMost, Value: 3, Unit: "%"}.String())
	assert.Equal(t, "-40..50 °c", Constraint{Kind: ConstraintRange, Min: -40, Max: 50, Unit: "°c"}.String())
	assert.Equal(t, "~ 1.5", Constraint{Kind: ConstraintRaw, Value: 1.5}.String())
}

func TestRequirementValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Requirement
		wantErr bool
	}{
		{"valid", Requirement{ID: "TTZ-2.2.1", Text: "Напряжение питания не менее 5 В."}, false},
		{"missing id", Requirement{Text: "text"}, true},
		{"missing text", Requirement{ID: "TTZ-1.1"}, true},
		{"synthetic without anchor", Requirement{ID: "TTZ-2.2-1", Text: "блок", Synthetic: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStrict(t *testing.T) {
	strict := Strict([]Constraint{
		{Kind: ConstraintRaw, Value: 220, Unit: "в"},
		{Kind: ConstraintAtMost, Value: 3, Unit: "%"},
		{Kind: ConstraintAtLeast, Value: 5, Unit: "в"},
	})
	assert.Len(t, strict, 2)
	assert.Equal(t, ConstraintAtMost, strict[0].Kind)
	assert.Equal(t, ConstraintAtLeast, strict[1].Kind)
	assert.Empty(t, Strict(nil))
}

func TestSummarize(t *testing.T) {
	rows := []ComparisonRow{
		{Status: StatusOK},
		{Status: StatusPartial},
		{Status: StatusFound},
		{Status: StatusNotFound},
		{Status: StatusNotFound},
	}

	s := Summarize(rows)
	assert.Equal(t, Summary{Total: 5, Found: 3, OK: 1, Partial: 1, NotFound: 2}, s)
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestFormatCoverage(t *testing.T) {
	assert.Equal(t, "", FormatCoverage(0, 0))
	assert.Equal(t, "1/2", FormatCoverage(1, 2))
}

func TestMatchResultFound(t *testing.T) {
	assert.False(t, MatchResult{}.Found())
	assert.True(t, MatchResult{Evidence: "x", MatchType: MatchScoredBlock, Score: 1}.Found())
}
