// Package marker manages the HTML-comment markers embedded in host comment
// bodies. These markers are the bot's only durable state: they must survive
// arbitrary human edits to the surrounding text.
package marker

import "strings"

// Marker tags. The summary tag identifies the bot's persistent summary
// comment; the paired start/end tags delimit machine-readable blocks inside
// its body.
const (
	SummaryTag = "<!-- This is an auto-generated comment: summarize by reviewbot -->"

	InProgressStart = "<!-- This is an auto-generated comment: summarize review in progress by reviewbot -->"
	InProgressEnd   = "<!-- end of auto-generated comment: summarize review in progress by reviewbot -->"

	RawSummaryStart = "<!-- This is an auto-generated comment: raw summary by reviewbot -->"
	RawSummaryEnd   = "<!-- end of auto-generated comment: raw summary by reviewbot -->"

	ShortSummaryStart = "<!-- This is an auto-generated comment: short summary by reviewbot -->"
	ShortSummaryEnd   = "<!-- end of auto-generated comment: short summary by reviewbot -->"

	CommitIDsStart = "<!-- commit_ids_reviewed_start -->"
	CommitIDsEnd   = "<!-- commit_ids_reviewed_end -->"

	DescriptionStart = "<!-- This is an auto-generated comment: release notes by reviewbot -->"
	DescriptionEnd   = "<!-- end of auto-generated comment: release notes by reviewbot -->"

	// CommentTag marks every standalone comment the bot posts, so its own
	// output can be recognized and skipped on reply events.
	CommentTag = "<!-- This is an auto-generated reply by reviewbot -->"
)

// Extract returns the text between start and end, or "" when either tag is
// absent. Only the first block is considered.
func Extract(body, start, end string) string {
	i := strings.Index(body, start)
	if i < 0 {
		return ""
	}
	rest := body[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:j])
}

// Embed replaces the first start/end block in body with content, or appends a
// new block when none exists. The surrounding text is preserved untouched.
func Embed(body, start, end, content string) string {
	block := start + "\n" + content + "\n" + end

	i := strings.Index(body, start)
	if i >= 0 {
		rest := body[i+len(start):]
		if j := strings.Index(rest, end); j >= 0 {
			return body[:i] + block + rest[j+len(end):]
		}
	}

	if body == "" {
		return block
	}
	return body + "\n" + block
}

// Remove deletes the first start/end block from body, tags included.
func Remove(body, start, end string) string {
	i := strings.Index(body, start)
	if i < 0 {
		return body
	}
	rest := body[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return body
	}
	return strings.TrimSuffix(body[:i], "\n") + rest[j+len(end):]
}

// ReviewedCommitIDs parses the accumulated reviewed-commit SHAs from a summary
// comment body. Each SHA is stored on its own line inside the commit-ids block
// as an HTML comment so it stays invisible when rendered.
func ReviewedCommitIDs(body string) []string {
	block := Extract(body, CommitIDsStart, CommitIDsEnd)
	if block == "" {
		return nil
	}

	var ids []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "<!--")
		line = strings.TrimSuffix(line, "-->")
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, line)
		}
	}
	return ids
}

// AddReviewedCommitID appends sha to the commit-ids block, keeping prior
// entries so multiple reviewed commits accumulate for future matching.
func AddReviewedCommitID(body, sha string) string {
	block := Extract(body, CommitIDsStart, CommitIDsEnd)
	entry := "<!-- " + sha + " -->"
	if block == "" {
		block = entry
	} else {
		block += "\n" + entry
	}
	return Embed(body, CommitIDsStart, CommitIDsEnd, block)
}
