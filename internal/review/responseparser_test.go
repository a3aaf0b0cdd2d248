package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

var testHunks = []model.Hunk{
	{NewStart: 10, NewEnd: 20},
	{NewStart: 40, NewEnd: 45},
}

func TestParseReviewResponse_InRangeRoundTrip(t *testing.T) {
	response := "12-14:\nConsider handling the error here.\n---\n40-45:\nThis loop never terminates.\n---\n"

	comments := parseReviewResponse(response, testHunks)
	require.Len(t, comments, 2)

	assert.Equal(t, 12, comments[0].startLine)
	assert.Equal(t, 14, comments[0].endLine)
	assert.Equal(t, "Consider handling the error here.", comments[0].body)
	assert.NotContains(t, comments[0].body, "Note:")

	assert.Equal(t, 40, comments[1].startLine)
	assert.Equal(t, 45, comments[1].endLine)
}

func TestParseReviewResponse_OutOfRangeRemapped(t *testing.T) {
	response := "500-510:\nWrong place.\n---\n"

	comments := parseReviewResponse(response, []model.Hunk{{NewStart: 10, NewEnd: 20}})
	require.Len(t, comments, 1)

	assert.Equal(t, 10, comments[0].startLine)
	assert.Equal(t, 20, comments[0].endLine)
	assert.Contains(t, comments[0].body, "500-510")
	assert.Contains(t, comments[0].body, "Note:")
}

func TestParseReviewResponse_LargestOverlapWins(t *testing.T) {
	// Claimed 15-44 overlaps hunk one by 6 lines and hunk two by 5.
	response := "15-44:\nSpans two hunks.\n---\n"

	comments := parseReviewResponse(response, testHunks)
	require.Len(t, comments, 1)
	assert.Equal(t, 10, comments[0].startLine)
	assert.Equal(t, 20, comments[0].endLine)
}

func TestParseReviewResponse_MissingTrailingSeparator(t *testing.T) {
	response := "11-11:\nNo separator at the end."

	comments := parseReviewResponse(response, testHunks)
	require.Len(t, comments, 1)
	assert.Equal(t, "No separator at the end.", comments[0].body)
}

func TestParseReviewResponse_EmptyBlocksDropped(t *testing.T) {
	response := "11-12:\n---\n13-14:\n   \n---\n"
	assert.Empty(t, parseReviewResponse(response, testHunks))
}

func TestParseReviewResponse_ProseOutsideBlocksIgnored(t *testing.T) {
	response := "Here is my review:\n\n11-12:\nReal comment.\n---\nThanks!\n"

	comments := parseReviewResponse(response, testHunks)
	require.Len(t, comments, 1)
	assert.Equal(t, "Real comment.", comments[0].body)
}

func TestParseReviewResponse_LGTMFlagged(t *testing.T) {
	response := "11-12:\nLGTM!\n---\n13-14:\nActual issue.\n---\n"

	comments := parseReviewResponse(response, testHunks)
	require.Len(t, comments, 2)
	assert.True(t, comments[0].lgtm)
	assert.False(t, comments[1].lgtm)
}

func TestSanitizeResponse_StripsEchoedLineNumbers(t *testing.T) {
	response := "11-12:\nUse this instead:\n```suggestion\n11: x := 1\n12: y := 2\n```\n---\n"

	comments := parseReviewResponse(response, testHunks)
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0].body, "x := 1")
	assert.NotContains(t, comments[0].body, "11: x")
}

func TestSanitizeResponse_LeavesOtherFencesAlone(t *testing.T) {
	got := sanitizeResponse("```go\n1: keep\n```\n```diff\n2: strip\n```")
	assert.Contains(t, got, "1: keep")
	assert.NotContains(t, got, "2: strip")
	assert.Contains(t, got, "strip")
}
