// Package github implements the VCSClient port using the go-github library.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
	"github.com/ericfisherdev/reviewbot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VCSClient = (*Client)(nil)

// Client implements the driven.VCSClient port using the go-github library.
// The comment and commit caches are run-scoped: populated on first use, never
// invalidated, and safe because a run never reads back its own writes.
type Client struct {
	gh      *gh.Client
	botUser string

	mu           sync.Mutex
	commentCache map[int][]model.IssueComment
	commitCache  map[int][]string
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token, botUser string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:           client,
		botUser:      botUser,
		commentCache: make(map[int][]model.IssueComment),
		commitCache:  make(map[int][]string),
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, botUser string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:           client,
		botUser:      botUser,
		commentCache: make(map[int][]model.IssueComment),
		commitCache:  make(map[int][]string),
	}, nil
}

// BotUser returns the login the bot authenticates as.
func (c *Client) BotUser() string { return c.botUser }

// GetPullRequest fetches the PR metadata the pipeline needs.
func (c *Client) GetPullRequest(ctx context.Context, repoFullName string, prNumber int) (*model.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("fetching PR %s#%d: %w", repoFullName, prNumber, err)
	}

	logRateLimit(resp, repoFullName+"/pr", 0, 1)

	return &model.PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		BaseSHA: pr.GetBase().GetSHA(),
		HeadSHA: pr.GetHead().GetSHA(),
	}, nil
}

// CompareCommits returns the changed files between two commits, with per-file
// unified patch text. It handles pagination automatically.
func (c *Client) CompareCommits(ctx context.Context, repoFullName, base, head string) ([]model.CommitFile, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var files []model.CommitFile

	for {
		cmp, resp, err := c.gh.Repositories.CompareCommits(ctx, owner, repo, base, head, opts)
		if err != nil {
			return nil, fmt.Errorf("comparing %s %s...%s (page %d): %w", repoFullName, base, head, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/compare", opts.Page, len(cmp.Files))

		for _, f := range cmp.Files {
			files = append(files, model.CommitFile{
				Filename: f.GetFilename(),
				Status:   f.GetStatus(),
				Patch:    f.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// GetFileContent fetches a file's content at the given ref. A missing file
// (404) yields empty content rather than an error so base content for newly
// added files stays a non-fatal default.
func (c *Client) GetFileContent(ctx context.Context, repoFullName, path, ref string) (string, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return "", err
	}

	fc, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("fetching %s@%s:%s: %w", repoFullName, ref, path, err)
	}
	if fc == nil {
		return "", nil
	}

	content, err := fc.GetContent()
	if err != nil {
		var raw string
		if fc.Content != nil {
			raw = *fc.Content
		}
		decoded, decErr := base64.StdEncoding.DecodeString(raw)
		if decErr != nil {
			return "", fmt.Errorf("decoding %s@%s:%s: %w", repoFullName, ref, path, err)
		}
		return string(decoded), nil
	}
	return content, nil
}

// ListCommits returns the PR's commit SHAs, oldest first. Results are cached
// for the run's duration.
func (c *Client) ListCommits(ctx context.Context, repoFullName string, prNumber int) ([]string, error) {
	c.mu.Lock()
	if shas, ok := c.commitCache[prNumber]; ok {
		c.mu.Unlock()
		return shas, nil
	}
	c.mu.Unlock()

	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var shas []string

	for {
		commits, resp, err := c.gh.PullRequests.ListCommits(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing commits for %s#%d (page %d): %w", repoFullName, prNumber, opts.Page, err)
		}

		for _, cm := range commits {
			shas = append(shas, cm.GetSHA())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.mu.Lock()
	c.commitCache[prNumber] = shas
	c.mu.Unlock()

	return shas, nil
}

// ListIssueComments returns all PR-level comments (from the Issues API).
// Results are cached for the run's duration.
func (c *Client) ListIssueComments(ctx context.Context, repoFullName string, prNumber int) ([]model.IssueComment, error) {
	c.mu.Lock()
	if comments, ok := c.commentCache[prNumber]; ok {
		c.mu.Unlock()
		return comments, nil
	}
	c.mu.Unlock()

	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var all []model.IssueComment

	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issue comments for %s#%d (page %d): %w", repoFullName, prNumber, opts.Page, err)
		}

		for _, comment := range comments {
			all = append(all, model.IssueComment{
				ID:     comment.GetID(),
				Author: comment.GetUser().GetLogin(),
				Body:   comment.GetBody(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.mu.Lock()
	c.commentCache[prNumber] = all
	c.mu.Unlock()

	return all, nil
}

// ListReviewComments returns all inline review comments for a pull request.
func (c *Client) ListReviewComments(ctx context.Context, repoFullName string, prNumber int) ([]model.ReviewComment, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var all []model.ReviewComment

	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing review comments for %s#%d (page %d): %w", repoFullName, prNumber, opts.Page, err)
		}

		for _, comment := range comments {
			all = append(all, mapReviewComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// CreateIssueComment adds a PR-level comment via the Issues API and returns
// the new comment's ID.
func (c *Client) CreateIssueComment(ctx context.Context, repoFullName string, prNumber int, body string) (int64, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return 0, err
	}

	comment := &gh.IssueComment{Body: gh.Ptr(body)}
	created, resp, err := c.gh.Issues.CreateComment(ctx, owner, repo, prNumber, comment)
	if err != nil {
		return 0, fmt.Errorf("creating comment on %s#%d: %w", repoFullName, prNumber, err)
	}

	logRateLimit(resp, repoFullName+"/create-comment", 0, 1)
	return created.GetID(), nil
}

// UpdateIssueComment replaces an existing PR-level comment's body.
func (c *Client) UpdateIssueComment(ctx context.Context, repoFullName string, commentID int64, body string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, _, err = c.gh.Issues.EditComment(ctx, owner, repo, commentID, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return fmt.Errorf("updating comment %d on %s: %w", commentID, repoFullName, err)
	}
	return nil
}

// DeleteReviewComment deletes an inline review comment.
func (c *Client) DeleteReviewComment(ctx context.Context, repoFullName string, commentID int64) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, err = c.gh.PullRequests.DeleteComment(ctx, owner, repo, commentID)
	if err != nil {
		return fmt.Errorf("deleting review comment %d on %s: %w", commentID, repoFullName, err)
	}
	return nil
}

// UpdatePullRequestBody replaces the PR description.
func (c *Client) UpdatePullRequestBody(ctx context.Context, repoFullName string, prNumber int, body string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, _, err = c.gh.PullRequests.Edit(ctx, owner, repo, prNumber, &gh.PullRequest{Body: gh.Ptr(body)})
	if err != nil {
		return fmt.Errorf("updating description of %s#%d: %w", repoFullName, prNumber, err)
	}
	return nil
}

// SubmitReview creates one review holding the status body and all inline
// comments in a single atomic call.
func (c *Client) SubmitReview(ctx context.Context, repoFullName string, prNumber int, sub driven.ReviewSubmission) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	var draftComments []*gh.DraftReviewComment
	for _, dc := range sub.Comments {
		draftComments = append(draftComments, mapDraftComment(dc))
	}

	reviewReq := &gh.PullRequestReviewRequest{
		CommitID: gh.Ptr(sub.CommitID),
		Event:    gh.Ptr("COMMENT"),
		Body:     gh.Ptr(sub.Body),
		Comments: draftComments,
	}

	_, resp, err := c.gh.PullRequests.CreateReview(ctx, owner, repo, prNumber, reviewReq)
	if err != nil {
		return fmt.Errorf("submitting review for %s#%d: %w", repoFullName, prNumber, err)
	}

	logRateLimit(resp, repoFullName+"/create-review", 0, len(draftComments))
	return nil
}

// DeletePendingReviews removes any unsubmitted review left over from a
// previous failed run; GitHub allows only one pending review per user.
func (c *Client) DeletePendingReviews(ctx context.Context, repoFullName string, prNumber int) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	reviews, _, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, prNumber, &gh.ListOptions{PerPage: 100})
	if err != nil {
		return fmt.Errorf("listing reviews for %s#%d: %w", repoFullName, prNumber, err)
	}

	for _, r := range reviews {
		if r.GetState() != "PENDING" {
			continue
		}
		if !strings.EqualFold(r.GetUser().GetLogin(), c.botUser) {
			continue
		}
		if _, _, err := c.gh.PullRequests.DeletePendingReview(ctx, owner, repo, prNumber, r.GetID()); err != nil {
			return fmt.Errorf("deleting pending review %d on %s#%d: %w", r.GetID(), repoFullName, prNumber, err)
		}
	}
	return nil
}

// CreateReviewComment creates a single inline comment outside a review. Used
// as the per-comment fallback when the atomic review create fails.
func (c *Client) CreateReviewComment(ctx context.Context, repoFullName string, prNumber int, commitID string, comment model.DraftComment) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	rc := &gh.PullRequestComment{
		Body:     gh.Ptr(comment.Body),
		CommitID: gh.Ptr(commitID),
		Path:     gh.Ptr(comment.Path),
		Line:     gh.Ptr(comment.EndLine),
		Side:     gh.Ptr("RIGHT"),
	}
	if comment.StartLine > 0 && comment.StartLine < comment.EndLine {
		rc.StartLine = gh.Ptr(comment.StartLine)
		rc.StartSide = gh.Ptr("RIGHT")
	}

	_, _, err = c.gh.PullRequests.CreateComment(ctx, owner, repo, prNumber, rc)
	if err != nil {
		return fmt.Errorf("creating review comment on %s#%d %s:%d: %w", repoFullName, prNumber, comment.Path, comment.EndLine, err)
	}
	return nil
}

// ReplyToReviewComment replies to an existing review comment thread.
// commentID must be the root comment ID of the thread.
func (c *Client) ReplyToReviewComment(ctx context.Context, repoFullName string, prNumber int, commentID int64, body string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, resp, err := c.gh.PullRequests.CreateCommentInReplyTo(ctx, owner, repo, prNumber, body, commentID)
	if err != nil {
		return fmt.Errorf("replying to comment %d on %s#%d: %w", commentID, repoFullName, prNumber, err)
	}

	logRateLimit(resp, repoFullName+"/reply-comment", 0, 1)
	return nil
}

// mapReviewComment converts a go-github PullRequestComment to a domain model
// ReviewComment.
func mapReviewComment(c *gh.PullRequestComment) model.ReviewComment {
	var inReplyTo *int64
	if c.InReplyTo != nil {
		val := c.GetInReplyTo()
		inReplyTo = &val
	}

	return model.ReviewComment{
		ID:          c.GetID(),
		Author:      c.GetUser().GetLogin(),
		Body:        c.GetBody(),
		Path:        c.GetPath(),
		Line:        c.GetLine(),
		StartLine:   c.GetStartLine(),
		CommitID:    c.GetCommitID(),
		DiffHunk:    c.GetDiffHunk(),
		InReplyToID: inReplyTo,
	}
}

// mapDraftComment converts a domain DraftComment to the GitHub API type.
// Single-line comments must not set StartLine; the API rejects ranges where
// start equals end.
func mapDraftComment(dc model.DraftComment) *gh.DraftReviewComment {
	out := &gh.DraftReviewComment{
		Path: gh.Ptr(dc.Path),
		Body: gh.Ptr(dc.Body),
		Line: gh.Ptr(dc.EndLine),
		Side: gh.Ptr("RIGHT"),
	}
	if dc.StartLine > 0 && dc.StartLine < dc.EndLine {
		out.StartLine = gh.Ptr(dc.StartLine)
		out.StartSide = gh.Ptr("RIGHT")
	}
	return out
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
