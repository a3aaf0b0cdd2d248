package review

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

// triageNeedsReview and triageApproved are the fixed markers the summarize
// prompt asks the model to end with. Anything else, including a partial or
// malformed marker, falls through to the conservative NEEDS_REVIEW default.
const (
	triagePrefix      = "[TRIAGE]:"
	triageNeedsReview = "NEEDS_REVIEW"
	triageApproved    = "APPROVED"
)

// SystemPrompt is the shared conversation framing for both model tiers,
// handed to the chat client at construction.
func SystemPrompt(knowledgeCutoff string) string {
	return fmt.Sprintf(`You are an expert code reviewer with knowledge of programming up to %s.
You review pull request diffs for substantive problems: logic errors, race conditions,
security issues, and broken edge cases. You do not comment on style, formatting, or
matters of taste. Be concise and specific.`, knowledgeCutoff)
}

// summarizeFilePrompt asks for a short per-file digest plus a triage verdict.
func summarizeFilePrompt(pr *model.PullRequest, filename, diff string) string {
	return fmt.Sprintf(`## PR title

%s

## File being summarized

%s

## Diff

%s

Summarize the change in this file in at most 3 sentences, focusing on what
changed and why it might matter. Do not quote the diff.

Then, on the final line, emit exactly one of:
%s %s
%s %s
Use %s only when the change is trivially safe (formatting, renames, comments).`,
		pr.Title, filename, diff,
		triagePrefix, triageNeedsReview,
		triagePrefix, triageApproved,
		triageApproved)
}

// foldSummariesPrompt folds one batch of per-file summaries into the running
// raw summary. Batches run sequentially; each output feeds the next call.
func foldSummariesPrompt(rawSummary string, batch []model.FileSummary) string {
	var b strings.Builder
	b.WriteString("## Existing summary\n\n")
	if rawSummary == "" {
		b.WriteString("(none yet)\n")
	} else {
		b.WriteString(rawSummary + "\n")
	}
	b.WriteString("\n## New file summaries\n\n")
	for _, fs := range batch {
		fmt.Fprintf(&b, "### %s\n%s\n\n", fs.Filename, fs.Summary)
	}
	b.WriteString(`Merge the new file summaries into the existing summary. Keep it organized by
area of the codebase, deduplicate overlapping points, and stay under 500 words.`)
	return b.String()
}

// finalSummaryPrompt produces the digest posted as the summary comment.
func finalSummaryPrompt(pr *model.PullRequest, rawSummary string) string {
	return fmt.Sprintf(`## PR title

%s

## Accumulated change summary

%s

Write the final review summary for this pull request as GitHub-flavored
markdown: a one-paragraph overview followed by a "Changes" table with columns
File(s) and Summary. Group related files into one row where sensible.`,
		pr.Title, rawSummary)
}

// releaseNotesPrompt produces the PR-description release notes.
func releaseNotesPrompt(rawSummary string) string {
	return fmt.Sprintf(`## Change summary

%s

Write release notes for these changes in at most 80 words, as a markdown
bullet list classified under "New Features", "Bug Fixes", "Refactor", or
"Chores". Omit empty categories and any mention of file names.`, rawSummary)
}

// shortSummaryPrompt compresses the raw summary for reuse as review context.
func shortSummaryPrompt(rawSummary string) string {
	return fmt.Sprintf(`## Change summary

%s

Compress this summary to at most 120 words of plain prose. It will be used as
background context when reviewing individual files, so keep only the facts a
reviewer of one file would need about the rest of the change.`, rawSummary)
}

// reviewFilePrompt assembles the per-file deep review request. packedHunks is
// the annotated hunk text that fit the budget; extras (short summary, comment
// chains) are appended by the caller only when they fit.
func reviewFilePrompt(pr *model.PullRequest, filename, packedHunks string) string {
	return fmt.Sprintf(`## PR title

%s

## File being reviewed

%s

## Changed hunks

Each hunk is shown as a ---new_hunk--- block (the state after the change, with
"<line>: " prefixes giving absolute new-file line numbers) and the matching
---old_hunk--- block (the state before).
%s

Review the new hunks for substantive problems. Respond ONLY with zero or more
blocks of this exact shape:

<start_line>-<end_line>:
<comment text>
---

Line numbers must come from the new-hunk prefixes. If a hunk is fine, respond
for it with a single comment whose text is exactly "%s". To propose a concrete
edit, embed ONE block of the form
<SUGGEST start="N" end="M">replacement text</SUGGEST>
inside the comment; never place code fences inside it.`,
		pr.Title, filename, packedHunks, lgtmPhrase)
}

// replyPrompt builds the single-turn response for a comment-chain reply.
func replyPrompt(pr *model.PullRequest, path, diffHunk string, chain model.CommentChain, botUser string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## PR title\n\n%s\n\n## File\n\n%s\n\n", pr.Title, path)
	if diffHunk != "" {
		fmt.Fprintf(&b, "## Diff under discussion\n\n%s\n\n", diffHunk)
	}
	b.WriteString("## Conversation so far\n\n")
	for _, entry := range chain {
		fmt.Fprintf(&b, "%s:\n%s\n\n", entry.Author, entry.Body)
	}
	fmt.Fprintf(&b, `You are %s, the reviewer in this conversation. Write the next reply:
answer the question or concern directly, in at most 120 words, without
restating the conversation.`, botUser)
	return b.String()
}

// parseTriage extracts the triage verdict from a summarize response, returning
// the summary text without the marker line and whether the file needs deep
// review. Absent or malformed markers default to needing review.
func parseTriage(response string) (summary string, needsReview bool) {
	needsReview = true
	lines := strings.Split(strings.TrimSpace(response), "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, triagePrefix) {
			break
		}
		verdict := strings.TrimSpace(strings.TrimPrefix(line, triagePrefix))
		if verdict == triageApproved {
			needsReview = false
		}
		lines = append(lines[:i], lines[i+1:]...)
		break
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), needsReview
}
