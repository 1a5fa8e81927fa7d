package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeKeywordCap(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		divisor int
		min     int
		max     int
		want    int
	}{
		{"mid range", 2000, 200, 10, 30, 20},
		{"clamped to max", 100000, 200, 10, 30, 30},
		{"clamped to min", 100, 200, 10, 30, 10},
		{"exactly min", 2000, 200, 10, 10, 10},
		{"zero length", 0, 200, 10, 30, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeKeywordCap(tt.length, tt.divisor, tt.min, tt.max))
		})
	}
}

func TestComputeKeywordCapMonotonic(t *testing.T) {
	prev := 0
	for length := 0; length <= 50000; length += 500 {
		cap := ComputeKeywordCap(length, 200, 10, 30)
		assert.GreaterOrEqual(t, cap, prev, "cap must not decrease as length grows")
		assert.GreaterOrEqual(t, cap, 10)
		assert.LessOrEqual(t, cap, 30)
		prev = cap
	}
}

func TestComputeKeywordCapZeroDivisor(t *testing.T) {
	assert.Equal(t, 30, ComputeKeywordCap(2000, 0, 10, 30))
}

func TestScanKeywordsFrequencyOrder(t *testing.T) {
	text := "turbine turbine turbine generator generator windmill"
	got := ScanKeywords(text)
	assert.Equal(t, []string{"turbine", "generator", "windmill"}, got)
}

func TestScanKeywordsFiltersStopWordsAndShortWords(t *testing.T) {
	text := "the cat and the dog ran with this that have been"
	got := ScanKeywords(text)
	assert.Empty(t, got)
}

func TestScanKeywordsCaseFoldingAndPunctuation(t *testing.T) {
	text := "Solar, solar! SOLAR. (panels) panels?"
	got := ScanKeywords(text)
	assert.Equal(t, []string{"solar", "panels"}, got)
}

func TestScanKeywordsTieBreaksByFirstSeen(t *testing.T) {
	text := "alpha bravo alpha bravo charlie"
	got := ScanKeywords(text)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, got)
}

func TestScanKeywordsLargeInput(t *testing.T) {
	text := strings.Repeat("storage capacity ", 300) + "inverter"
	got := ScanKeywords(text)
	assert.Equal(t, "storage", got[0])
	assert.Equal(t, "capacity", got[1])
	assert.Contains(t, got, "inverter")
}
