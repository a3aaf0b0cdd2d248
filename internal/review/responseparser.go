// Package review drives the summarize/review/submit pipeline and interprets
// model output back into positioned review comments.
package review

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

// lgtmPhrase is the approval marker the review prompt asks the model to emit
// when a hunk needs no comment.
const lgtmPhrase = "LGTM!"

// blockStart matches the "<start>-<end>:" line opening one comment block.
var blockStart = regexp.MustCompile(`^\s*(\d+)-(\d+):\s*$`)

// numberPrefix matches the "N: " annotations the model may echo back from the
// annotated hunk body inside suggestion/diff fences.
var numberPrefix = regexp.MustCompile(`^\s*\d+: `)

// parsedComment is one positioned comment recovered from a review response.
type parsedComment struct {
	startLine int
	endLine   int
	body      string
	// lgtm marks a comment matching the approval phrase; counted, usually
	// not posted.
	lgtm bool
}

// parseReviewResponse turns a model's free-text review reply into positioned
// comments. The expected shape is repeated "<start>-<end>:\n<text>\n---\n"
// blocks; it is parsed with an explicit two-state (in-block / between-blocks)
// scan with a flush on every block boundary. Ranges that do not fall inside
// any hunk are relocated (see relocate). hunks must be the packed hunks the
// model actually saw.
func parseReviewResponse(response string, hunks []model.Hunk) []parsedComment {
	response = sanitizeResponse(response)

	var comments []parsedComment
	var cur *parsedComment
	var body []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.body = strings.TrimSpace(strings.Join(body, "\n"))
		if cur.body != "" {
			cur.lgtm = strings.Contains(cur.body, lgtmPhrase)
			relocate(cur, hunks)
			comments = append(comments, *cur)
		}
		cur, body = nil, nil
	}

	for _, line := range strings.Split(response, "\n") {
		if m := blockStart.FindStringSubmatch(line); m != nil {
			flush()
			start, _ := strconv.Atoi(m[1])
			end, _ := strconv.Atoi(m[2])
			cur = &parsedComment{startLine: start, endLine: end}
			continue
		}
		if strings.TrimSpace(line) == "---" {
			flush()
			continue
		}
		if cur != nil {
			body = append(body, line)
		}
	}
	flush()

	return comments
}

// relocate fixes a comment whose claimed range falls outside every hunk. The
// hunk with the largest overlap wins and the comment takes that hunk's full
// range, with a visible note naming the original claim. First match wins on
// overlap ties. With no overlap at all the first hunk's range is used.
func relocate(c *parsedComment, hunks []model.Hunk) {
	if len(hunks) == 0 {
		return
	}

	for _, h := range hunks {
		if c.startLine >= h.NewStart && c.endLine <= h.NewEnd {
			return
		}
	}

	bestIdx, bestOverlap := -1, 0
	for i, h := range hunks {
		overlap := min(c.endLine, h.NewEnd) - max(c.startLine, h.NewStart) + 1
		if overlap > bestOverlap {
			bestIdx, bestOverlap = i, overlap
		}
	}

	note := fmt.Sprintf("> Note: This comment was outside the diff and was mapped to the hunk with the greatest overlap. Original lines [%d-%d]", c.startLine, c.endLine)
	if bestIdx < 0 {
		bestIdx = 0
		note = fmt.Sprintf("> Note: This comment was outside the diff and was mapped to the first hunk. Original lines [%d-%d]", c.startLine, c.endLine)
	}

	c.startLine = hunks[bestIdx].NewStart
	c.endLine = hunks[bestIdx].NewEnd
	c.body = note + "\n\n" + c.body
}

// sanitizeResponse strips echoed "N: " line-number prefixes from inside fenced
// code blocks labeled suggestion or diff. Those prefixes are reviewer-context
// artifacts of the annotated hunk body, not content.
func sanitizeResponse(response string) string {
	lines := strings.Split(response, "\n")
	inFence := false
	stripping := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if !inFence {
				inFence = true
				label := strings.ToLower(strings.TrimPrefix(trimmed, "```"))
				stripping = label == "suggestion" || label == "diff"
			} else {
				inFence = false
				stripping = false
			}
			continue
		}
		if stripping {
			lines[i] = numberPrefix.ReplaceAllString(line, "")
		}
	}

	return strings.Join(lines, "\n")
}
