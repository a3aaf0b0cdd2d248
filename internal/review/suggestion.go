package review

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Suggestion is a structured inline edit proposal extracted from a comment
// body. Replacement is the proposed new content for the line range.
type Suggestion struct {
	Path        string
	StartLine   int
	EndLine     int
	Title       string
	Confidence  string // "low", "med", or "high"; "" when not stated.
	Replacement string
}

var (
	suggestBlock = regexp.MustCompile(`(?is)<suggest\b([^>]*)>(.*?)</suggest>`)
	suggestAttr  = regexp.MustCompile(`(\w+)\s*=\s*(?:"([^"]*)"|'([^']*)'|(\S+))`)
)

// extractSuggestion pulls the single <SUGGEST>...</SUGGEST> block out of a
// comment body. It returns the surrounding prose and the parsed suggestion, or
// nil when no block exists or the block is malformed. A replacement containing
// a triple-backtick fence is malformed — it would break out of the rendered
// suggestion fence — so it is dropped entirely while the prose survives.
func extractSuggestion(body, defaultPath string, defaultStart, defaultEnd int) (string, *Suggestion) {
	loc := suggestBlock.FindStringSubmatchIndex(body)
	if loc == nil {
		return body, nil
	}

	attrs := body[loc[2]:loc[3]]
	inner := body[loc[4]:loc[5]]
	prose := strings.TrimSpace(body[:loc[0]] + body[loc[1]:])

	if strings.Contains(inner, "```") {
		return prose, nil
	}

	s := &Suggestion{
		Path:      defaultPath,
		StartLine: defaultStart,
		EndLine:   defaultEnd,
	}

	for _, m := range suggestAttr.FindAllStringSubmatch(attrs, -1) {
		key := strings.ToLower(m[1])
		val := m[2] + m[3] + m[4]

		switch key {
		case "start", "start_line":
			if n, err := strconv.Atoi(val); err == nil {
				s.StartLine = n
			}
		case "end", "end_line":
			if n, err := strconv.Atoi(val); err == nil {
				s.EndLine = n
			}
		case "line":
			if n, err := strconv.Atoi(val); err == nil {
				s.StartLine = n
				s.EndLine = n
			}
		case "path":
			if val != "" {
				s.Path = val
			}
		case "title":
			s.Title = val
		case "confidence":
			s.Confidence = normalizeConfidence(val)
		}
	}

	s.Replacement = strings.Trim(inner, "\n")
	return prose, s
}

// normalizeConfidence folds free-form confidence values onto low|med|high.
// Anything unrecognized is treated as absent.
func normalizeConfidence(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "low":
		return "low"
	case "med", "medium":
		return "med"
	case "high":
		return "high"
	}
	return ""
}

// render formats the suggestion as a host-native applyable suggestion block,
// appended beneath the comment prose.
func (s *Suggestion) render() string {
	var b strings.Builder
	if s.Title != "" {
		b.WriteString("**" + s.Title + "**")
		if s.Confidence != "" {
			b.WriteString(fmt.Sprintf(" (confidence: %s)", s.Confidence))
		}
		b.WriteString("\n\n")
	}
	b.WriteString("```suggestion\n")
	b.WriteString(s.Replacement)
	b.WriteString("\n```")
	return b.String()
}
