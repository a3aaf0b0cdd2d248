package driven

import (
	"context"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

// ReviewSubmission is the input to VCSClient.SubmitReview: a status body plus
// zero or more positioned inline comments, submitted as one review.
type ReviewSubmission struct {
	CommitID string
	Body     string
	Comments []model.DraftComment
}

// VCSClient is the driven port for the host version-control API.
// List methods paginate internally. ListCommits and ListIssueComments are
// backed by in-run caches keyed by PR number; a run never observes its own
// writes through them.
type VCSClient interface {
	// Read methods

	GetPullRequest(ctx context.Context, repoFullName string, prNumber int) (*model.PullRequest, error)
	// CompareCommits returns the changed files, with per-file unified patch
	// text, between two commits.
	CompareCommits(ctx context.Context, repoFullName, base, head string) ([]model.CommitFile, error)
	// GetFileContent fetches a file's content at the given ref. A missing file
	// yields empty content, not an error.
	GetFileContent(ctx context.Context, repoFullName, path, ref string) (string, error)
	// ListCommits returns the PR's commit SHAs, oldest first. Cached in-run.
	ListCommits(ctx context.Context, repoFullName string, prNumber int) ([]string, error)
	// ListIssueComments returns all PR-level comments. Cached in-run.
	ListIssueComments(ctx context.Context, repoFullName string, prNumber int) ([]model.IssueComment, error)
	ListReviewComments(ctx context.Context, repoFullName string, prNumber int) ([]model.ReviewComment, error)

	// Write methods

	// CreateIssueComment posts a PR-level comment and returns its ID. The
	// in-run comment cache does not observe the write; the ID is how callers
	// address the new comment.
	CreateIssueComment(ctx context.Context, repoFullName string, prNumber int, body string) (int64, error)
	UpdateIssueComment(ctx context.Context, repoFullName string, commentID int64, body string) error
	DeleteReviewComment(ctx context.Context, repoFullName string, commentID int64) error
	// UpdatePullRequestBody replaces the PR description.
	UpdatePullRequestBody(ctx context.Context, repoFullName string, prNumber int, body string) error
	// SubmitReview creates one review holding all comments atomically.
	SubmitReview(ctx context.Context, repoFullName string, prNumber int, sub ReviewSubmission) error
	// DeletePendingReviews removes unsubmitted reviews left by a failed run.
	DeletePendingReviews(ctx context.Context, repoFullName string, prNumber int) error
	// CreateReviewComment creates a single inline comment; fallback path when
	// the atomic review create fails.
	CreateReviewComment(ctx context.Context, repoFullName string, prNumber int, commitID string, comment model.DraftComment) error
	// ReplyToReviewComment replies to an existing review comment thread.
	ReplyToReviewComment(ctx context.Context, repoFullName string, prNumber int, commentID int64, body string) error
}
