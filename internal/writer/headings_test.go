package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeading(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"## Benefits", "Benefits"},
		{"#Introduction", "Introduction"},
		{`"Quoted Title"`, "Quoted Title"},
		{"  ### 'Mixed'  ", "Mixed"},
		{"Plain", "Plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeading(tt.input))
	}
}

func TestDemoteHeadingsMarkdown(t *testing.T) {
	assert.Equal(t, "### Sub", DemoteHeadings("## Sub"))
	assert.Equal(t, "### Top", DemoteHeadings("# Top"))
	assert.Equal(t, "body\n### Sub\nmore", DemoteHeadings("body\n## Sub\nmore"))
	// h3 and deeper untouched
	assert.Equal(t, "### Keep\n#### Deeper", DemoteHeadings("### Keep\n#### Deeper"))
}

func TestDemoteHeadingsHTML(t *testing.T) {
	assert.Equal(t, "### Sub", DemoteHeadings("<h2>Sub</h2>"))
	assert.Equal(t, "### Title", DemoteHeadings("<h1>Title</h1>"))
	assert.Equal(t, "### Sub", DemoteHeadings(`<H2 class="x"> Sub </H2>`))
	assert.Equal(t, "<h3>Keep</h3>", DemoteHeadings("<h3>Keep</h3>"))
}

func TestDemoteHeadingsMixedContent(t *testing.T) {
	input := "## Overview\n\nSome text.\n\n<h2>Details</h2>\n\n### Fine"
	want := "### Overview\n\nSome text.\n\n### Details\n\n### Fine"
	assert.Equal(t, want, DemoteHeadings(input))
}

func TestStableUnion(t *testing.T) {
	got := stableUnion([]string{"a", "b"}, []string{"b", "c", ""}, []string{" a ", "d"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)

	assert.Nil(t, stableUnion(nil, []string{}))
}

func TestDifference(t *testing.T) {
	got := difference([]string{"a", "b", "c"}, []string{"b"})
	assert.Equal(t, []string{"a", "c"}, got)

	assert.Nil(t, difference([]string{"a"}, []string{"a"}))
}
