package model

// DraftComment is a parsed, positioned review comment buffered until the run
// submits its review.
type DraftComment struct {
	Path      string
	StartLine int
	EndLine   int
	Body      string
}

// IssueComment is a PR-level (non-diff) comment from the Issues API.
type IssueComment struct {
	ID     int64
	Author string
	Body   string
}

// ReviewComment is an inline diff comment, including enough metadata to
// reconstruct reply threads and match comment ranges.
type ReviewComment struct {
	ID          int64
	Author      string
	Body        string
	Path        string
	Line        int
	StartLine   int
	CommitID    string
	DiffHunk    string
	InReplyToID *int64
}

// ChainEntry is one link of a reply thread, ordered root first.
type ChainEntry struct {
	Author string
	Body   string
}

// CommentChain is the ordered thread of replies rooted at one top-level
// review comment. It is rebuilt from the host API on every run.
type CommentChain []ChainEntry
