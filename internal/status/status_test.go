package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "embedded date", raw: "Coordination  (10/9/2024)", expected: "Coordination"},
		{name: "no parenthesis", raw: "  In Review ", expected: "In Review"},
		{name: "empty", raw: "", expected: ""},
		{name: "only annotation", raw: "(1/1/2024)", expected: ""},
		{name: "splits on first parenthesis", raw: "On Hold (vendor) (2/3/2024)", expected: "On Hold"},
		{name: "unknown category kept", raw: "Withdrawn (5/5/2025)", expected: "Withdrawn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.raw))
		})
	}
}

func TestNormalizeIsFixedPoint(t *testing.T) {
	inputs := []string{
		"", " ", "(", ")", "((", "Review Pending (1/1/2024)", "  a ( b ( c", "Finalization",
		"\tOn Hold\n(12/31/2023)", "x)(y",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestEmbeddedDate(t *testing.T) {
	t.Run("extracts date from first group", func(t *testing.T) {
		got, ok := EmbeddedDate("Review Pending (9/2/2025)")
		require.True(t, ok)
		assert.True(t, time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC).Equal(got))
	})

	t.Run("finds token inside annotated group", func(t *testing.T) {
		got, ok := EmbeddedDate("Coordination (since 10/9/2024)")
		require.True(t, ok)
		assert.Equal(t, 9, got.Day())
	})

	t.Run("only the first group is searched", func(t *testing.T) {
		_, ok := EmbeddedDate("On Hold (vendor) (2/3/2024)")
		assert.False(t, ok)
	})

	t.Run("no group", func(t *testing.T) {
		_, ok := EmbeddedDate("In Review")
		assert.False(t, ok)
	})

	t.Run("not a calendar date", func(t *testing.T) {
		_, ok := EmbeddedDate("In Review (13/40/2024)")
		assert.False(t, ok)
	})
}

func TestParse(t *testing.T) {
	p := Parse("Coordination  (10/9/2024)")
	assert.Equal(t, "Coordination", p.Status)
	assert.True(t, p.HasEmbeddedDate)
	assert.Equal(t, time.October, p.EmbeddedDate.Month())

	p = Parse("")
	assert.Equal(t, "", p.Status)
	assert.False(t, p.HasEmbeddedDate)
}

func TestSet(t *testing.T) {
	s := NewSet("Finalization (1/1/2024)", " On Hold ")
	assert.True(t, s.Contains("Finalization"))
	assert.True(t, s.Contains("On Hold (3/3/2024)"))
	assert.False(t, s.Contains("In Review"))
}

func TestPalette(t *testing.T) {
	assert.Equal(t, "#59a14f", Color(Coordination))
	assert.Equal(t, DefaultColor, Color("Withdrawn"))
	assert.False(t, IsKnown("Withdrawn"))

	ordered := Order([]string{"Withdrawn", Finalization, ReviewPending, "Archived"})
	assert.Equal(t, []string{ReviewPending, Finalization, "Withdrawn", "Archived"}, ordered)
}
