package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
	"github.com/ericfisherdev/reviewbot/internal/domain/port/driven"
)

// fakeVCS is an in-memory VCSClient recording every write for assertions.
type fakeVCS struct {
	mu sync.Mutex

	pr             *model.PullRequest
	commits        []string
	issueComments  []model.IssueComment
	reviewComments []model.ReviewComment
	compare        map[string][]model.CommitFile // keyed base..head
	fileContent    map[string]string

	failSubmitReview    bool
	failCreateReviewCmt bool
	failDeletePending   bool

	submitted          []driven.ReviewSubmission
	createdIssueBodies []string
	updatedIssueBodies map[int64]string
	createdReviewCmts  []model.DraftComment
	deletedReviewCmts  []int64
	deletedPending     int
	updatedPRBody      string
	replies            map[int64]string
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{
		compare:            map[string][]model.CommitFile{},
		fileContent:        map[string]string{},
		updatedIssueBodies: map[int64]string{},
		replies:            map[int64]string{},
	}
}

func (f *fakeVCS) GetPullRequest(context.Context, string, int) (*model.PullRequest, error) {
	if f.pr == nil {
		return nil, errors.New("no pull request configured")
	}
	return f.pr, nil
}

func (f *fakeVCS) CompareCommits(_ context.Context, _ string, base, head string) ([]model.CommitFile, error) {
	files, ok := f.compare[base+".."+head]
	if !ok {
		return nil, fmt.Errorf("no diff configured for %s..%s", base, head)
	}
	return files, nil
}

func (f *fakeVCS) GetFileContent(_ context.Context, _ string, path, _ string) (string, error) {
	return f.fileContent[path], nil
}

func (f *fakeVCS) ListCommits(context.Context, string, int) ([]string, error) {
	return f.commits, nil
}

func (f *fakeVCS) ListIssueComments(context.Context, string, int) ([]model.IssueComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.IssueComment(nil), f.issueComments...), nil
}

func (f *fakeVCS) ListReviewComments(context.Context, string, int) ([]model.ReviewComment, error) {
	return f.reviewComments, nil
}

func (f *fakeVCS) CreateIssueComment(_ context.Context, _ string, _ int, body string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(1000 + len(f.createdIssueBodies))
	f.createdIssueBodies = append(f.createdIssueBodies, body)
	return id, nil
}

func (f *fakeVCS) UpdateIssueComment(_ context.Context, _ string, commentID int64, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedIssueBodies[commentID] = body
	return nil
}

func (f *fakeVCS) DeleteReviewComment(_ context.Context, _ string, commentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedReviewCmts = append(f.deletedReviewCmts, commentID)
	return nil
}

func (f *fakeVCS) UpdatePullRequestBody(_ context.Context, _ string, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedPRBody = body
	return nil
}

func (f *fakeVCS) SubmitReview(_ context.Context, _ string, _ int, sub driven.ReviewSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubmitReview {
		return errors.New("review create rejected")
	}
	f.submitted = append(f.submitted, sub)
	return nil
}

func (f *fakeVCS) DeletePendingReviews(context.Context, string, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeletePending {
		return errors.New("pending review delete rejected")
	}
	f.deletedPending++
	return nil
}

func (f *fakeVCS) CreateReviewComment(_ context.Context, _ string, _ int, _ string, comment model.DraftComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateReviewCmt {
		return errors.New("comment create rejected")
	}
	f.createdReviewCmts = append(f.createdReviewCmts, comment)
	return nil
}

func (f *fakeVCS) ReplyToReviewComment(_ context.Context, _ string, _ int, commentID int64, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[commentID] = body
	return nil
}

// fakeChat answers prompts by substring match against configured rules, in
// order, and records every prompt it saw.
type fakeChat struct {
	mu      sync.Mutex
	rules   []chatRule
	limits  model.TokenLimits
	prompts []string
}

type chatRule struct {
	contains string
	response string
}

func newFakeChat(rules ...chatRule) *fakeChat {
	limits, _ := model.NewTokenLimits(100000, 4000, "2024-06")
	return &fakeChat{rules: rules, limits: limits}
}

// newFakeChatWithBudget shrinks the request budget to exercise packing limits.
func newFakeChatWithBudget(maxTokens, responseTokens int, rules ...chatRule) *fakeChat {
	limits, _ := model.NewTokenLimits(maxTokens, responseTokens, "2024-06")
	return &fakeChat{rules: rules, limits: limits}
}

func (f *fakeChat) Chat(_ context.Context, prompt string, state driven.ChatState) (string, driven.ChatState, error) {
	if prompt == "" {
		return "", state, nil
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	for _, r := range f.rules {
		if strings.Contains(prompt, r.contains) {
			return r.response, state, nil
		}
	}
	return "ok", state, nil
}

func (f *fakeChat) CountTokens(text string) int { return len(text) / 4 }

func (f *fakeChat) Limits() model.TokenLimits { return f.limits }

func (f *fakeChat) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeChat) promptContaining(substr string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prompts {
		if strings.Contains(p, substr) {
			return p
		}
	}
	return ""
}
