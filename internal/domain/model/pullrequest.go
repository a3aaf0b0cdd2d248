package model

// PullRequest is the subset of PR metadata the pipeline needs.
type PullRequest struct {
	Number  int
	Title   string
	Body    string
	BaseSHA string
	HeadSHA string
}

// CommitFile is one changed file from a commit comparison, carrying the
// per-file unified patch text as returned by the host API.
type CommitFile struct {
	Filename string
	Status   string
	Patch    string
}

// FileSummary is the per-file output of the summarize phase.
type FileSummary struct {
	Filename    string
	Summary     string
	NeedsReview bool
}
