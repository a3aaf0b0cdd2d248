package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSuggestion_Basic(t *testing.T) {
	body := "Fix this.\n<SUGGEST path=\"a.ts\" start=\"5\" end=\"5\">return 1;</SUGGEST>"

	prose, s := extractSuggestion(body, "fallback.go", 1, 2)
	require.NotNil(t, s)
	assert.Equal(t, "Fix this.", prose)
	assert.Equal(t, "a.ts", s.Path)
	assert.Equal(t, 5, s.StartLine)
	assert.Equal(t, 5, s.EndLine)
	assert.Equal(t, "return 1;", s.Replacement)
}

func TestExtractSuggestion_NestedFenceIsMalformed(t *testing.T) {
	body := "Keep the prose.\n<SUGGEST start=\"3\" end=\"4\">```\nevil\n```</SUGGEST>"

	prose, s := extractSuggestion(body, "a.go", 1, 1)
	assert.Nil(t, s)
	assert.Equal(t, "Keep the prose.", prose)
}

func TestExtractSuggestion_Defaults(t *testing.T) {
	prose, s := extractSuggestion("Prose.\n<suggest>x = 2</suggest>", "file.go", 7, 9)
	require.NotNil(t, s)
	assert.Equal(t, "Prose.", prose)
	assert.Equal(t, "file.go", s.Path)
	assert.Equal(t, 7, s.StartLine)
	assert.Equal(t, 9, s.EndLine)
}

func TestExtractSuggestion_AttributeAliases(t *testing.T) {
	tests := []struct {
		name       string
		attrs      string
		wantStart  int
		wantEnd    int
	}{
		{"start_line/end_line", `start_line=3 end_line=6`, 3, 6},
		{"line sets both", `line=8`, 8, 8},
		{"bare values", `start=2 end=4`, 2, 4},
		{"single quotes", `start='10' end='12'`, 10, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := "p\n<SUGGEST " + tt.attrs + ">z</SUGGEST>"
			_, s := extractSuggestion(body, "f.go", 1, 1)
			require.NotNil(t, s)
			assert.Equal(t, tt.wantStart, s.StartLine)
			assert.Equal(t, tt.wantEnd, s.EndLine)
		})
	}
}

func TestExtractSuggestion_NoBlock(t *testing.T) {
	prose, s := extractSuggestion("Just a comment.", "f.go", 1, 1)
	assert.Nil(t, s)
	assert.Equal(t, "Just a comment.", prose)
}

func TestNormalizeConfidence(t *testing.T) {
	assert.Equal(t, "low", normalizeConfidence("LOW"))
	assert.Equal(t, "med", normalizeConfidence("medium"))
	assert.Equal(t, "high", normalizeConfidence(" high "))
	assert.Empty(t, normalizeConfidence("certain"))
}

func TestSuggestionRender(t *testing.T) {
	s := &Suggestion{Title: "Simplify", Confidence: "high", Replacement: "return 1;"}
	got := s.render()
	assert.Contains(t, got, "**Simplify** (confidence: high)")
	assert.Contains(t, got, "```suggestion\nreturn 1;\n```")
}
