package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  Finalization  ", "On Hold  "},
			expected: []string{"Finalization", "On Hold"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"On Hold", "Finalization", "On Hold"},
			expected: []string{"On Hold", "Finalization"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"Finalization", "", "  "},
			expected: []string{"Finalization"},
		},
		{
			name:     "preserves case",
			input:    []string{"Finalization", "finalization"},
			expected: []string{"Finalization", "finalization"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"Finalization", "On Hold"}, SplitList("Finalization, On Hold ,Finalization,"))
}
