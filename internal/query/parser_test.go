package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFreeTextOnly(t *testing.T) {
	expr, err := Parse("deep house sketch")
	require.NoError(t, err)

	assert.Empty(t, expr.Filters)
	assert.Equal(t, []string{"deep", "house", "sketch"}, expr.Text)
	assert.Equal(t, "deep house sketch", expr.FreeText())
}

func TestParseFieldFilters(t *testing.T) {
	expr, err := Parse("plugin:serum bpm:128 key:A-minor missing:true tag:wip samples:kick")
	require.NoError(t, err)
	require.Len(t, expr.Filters, 6)
	assert.Empty(t, expr.Text)

	assert.Equal(t, Filter{Field: FieldPlugin, Text: "serum"}, expr.Filters[0])
	assert.Equal(t, Filter{Field: FieldBPM, Number: 128}, expr.Filters[1])
	assert.Equal(t, Filter{Field: FieldKey, Text: "A-minor"}, expr.Filters[2])
	assert.Equal(t, Filter{Field: FieldMissing, Bool: true}, expr.Filters[3])
	assert.Equal(t, Filter{Field: FieldTag, Text: "wip"}, expr.Filters[4])
	assert.Equal(t, Filter{Field: FieldSamples, Text: "kick"}, expr.Filters[5])
}

func TestParseMixedTokens(t *testing.T) {
	expr, err := Parse("ambient bpm:90 pad")
	require.NoError(t, err)

	require.Len(t, expr.Filters, 1)
	assert.Equal(t, FieldBPM, expr.Filters[0].Field)
	assert.Equal(t, []string{"ambient", "pad"}, expr.Text)
}

func TestParseQuotedValues(t *testing.T) {
	expr, err := Parse(`plugin:"Pro-Q 3" "big pad"`)
	require.NoError(t, err)

	require.Len(t, expr.Filters, 1)
	assert.Equal(t, "Pro-Q 3", expr.Filters[0].Text)
	assert.Equal(t, []string{"big pad"}, expr.Text)
}

func TestParseUnrecognizedFieldFallsBackToText(t *testing.T) {
	expr, err := Parse("genre:techno")
	require.NoError(t, err)

	assert.Empty(t, expr.Filters)
	assert.Equal(t, []string{"genre:techno"}, expr.Text)
}

func TestParseSampleAliasesSamples(t *testing.T) {
	expr, err := Parse("sample:amen")
	require.NoError(t, err)

	require.Len(t, expr.Filters, 1)
	assert.Equal(t, FieldSamples, expr.Filters[0].Field)
}

func TestParseInvalidTokens(t *testing.T) {
	cases := []struct {
		name  string
		input string
		token string
	}{
		{"bpm not numeric", "bpm:fast", "bpm:fast"},
		{"bpm negative", "bpm:-10", "bpm:-10"},
		{"missing not boolean", "missing:kinda", "missing:kinda"},
		{"empty value", "tag:", "tag:"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected a ParseError, got %T", err)
			assert.Equal(t, tc.token, perr.Token)
		})
	}
}

func TestParseEmptyQuery(t *testing.T) {
	expr, err := Parse("   ")
	require.NoError(t, err)
	assert.True(t, expr.IsEmpty())
}

func TestTranslateBPMTolerance(t *testing.T) {
	expr, err := Parse("bpm:128")
	require.NoError(t, err)

	q := expr.Translate()
	require.Len(t, q.Where, 1)
	assert.Contains(t, q.Where[0], "ABS(p.tempo - ?)")
	assert.Equal(t, []any{128.0, BPMTolerance}, q.Args)
	assert.Empty(t, q.Match)
}

func TestTranslateKeyWithAndWithoutScale(t *testing.T) {
	expr, err := Parse("key:A-minor")
	require.NoError(t, err)
	q := expr.Translate()
	require.Len(t, q.Where, 2)
	assert.Equal(t, []any{"A", "minor"}, q.Args)

	expr, err = Parse("key:F#")
	require.NoError(t, err)
	q = expr.Translate()
	require.Len(t, q.Where, 1)
	assert.Equal(t, []any{"F#"}, q.Args)
}

func TestTranslateMissingPolarity(t *testing.T) {
	expr, err := Parse("missing:true")
	require.NoError(t, err)
	q := expr.Translate()
	require.Len(t, q.Where, 1)
	assert.NotContains(t, q.Where[0], "NOT ")
	assert.Contains(t, q.Where[0], "s.present IS NULL")

	expr, err = Parse("missing:false")
	require.NoError(t, err)
	q = expr.Translate()
	require.Len(t, q.Where, 1)
	assert.Contains(t, q.Where[0], "NOT ")
}

func TestTranslateFreeTextMatch(t *testing.T) {
	expr, err := Parse(`ambient "big pad"`)
	require.NoError(t, err)

	q := expr.Translate()
	assert.Empty(t, q.Where)
	assert.Equal(t, `"ambient"* "big pad"*`, q.Match)
}

func TestTranslateSubstringFilters(t *testing.T) {
	expr, err := Parse("plugin:serum samples:kick")
	require.NoError(t, err)

	q := expr.Translate()
	require.Len(t, q.Where, 2)
	assert.Contains(t, q.Where[0], "pl.name LIKE")
	assert.Contains(t, q.Where[1], "s.name LIKE")
	assert.Equal(t, []any{"serum", "kick"}, q.Args)
}
