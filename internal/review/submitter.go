package review

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
	"github.com/ericfisherdev/reviewbot/internal/domain/port/driven"
)

// Submitter buffers per-file draft comments during the review phase and flushes
// them as one review. Existing bot comments covering the same exact range are
// deleted first so reruns supersede instead of duplicating.
type Submitter struct {
	vcs      driven.VCSClient
	repo     string
	prNumber int
	botUser  string

	mu       sync.Mutex
	buffered []model.DraftComment
}

// NewSubmitter creates a Submitter for one PR.
func NewSubmitter(vcs driven.VCSClient, repo string, prNumber int, botUser string) *Submitter {
	return &Submitter{vcs: vcs, repo: repo, prNumber: prNumber, botUser: botUser}
}

// Buffer queues one draft comment for submission. Safe for concurrent use by
// per-file review tasks.
func (s *Submitter) Buffer(c model.DraftComment) {
	s.mu.Lock()
	s.buffered = append(s.buffered, c)
	s.mu.Unlock()
}

// Buffered returns the number of queued comments.
func (s *Submitter) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffered)
}

// Submit flushes the buffer as one atomic review carrying statusBody. On
// failure it falls back to creating each comment individually, continuing past
// individual failures so one bad comment cannot block the rest. An empty
// buffer still submits a review with just the status body, keeping the run's
// outcome visible. The atomic path is attempted only after superseded bot
// comments and stale pending reviews are cleared.
func (s *Submitter) Submit(ctx context.Context, commitID, statusBody string) error {
	s.mu.Lock()
	comments := s.buffered
	s.buffered = nil
	s.mu.Unlock()

	s.deleteSuperseded(ctx, comments)

	if err := s.vcs.DeletePendingReviews(ctx, s.repo, s.prNumber); err != nil {
		slog.Warn("could not delete pending reviews", "error", err)
	}

	err := s.vcs.SubmitReview(ctx, s.repo, s.prNumber, driven.ReviewSubmission{
		CommitID: commitID,
		Body:     statusBody,
		Comments: comments,
	})
	if err == nil {
		return nil
	}

	slog.Warn("atomic review submit failed, falling back to per-comment creates",
		"error", err,
		"comments", len(comments),
	)

	var failed int
	for _, c := range comments {
		if cerr := s.vcs.CreateReviewComment(ctx, s.repo, s.prNumber, commitID, c); cerr != nil {
			failed++
			slog.Error("creating review comment failed",
				"path", c.Path,
				"start_line", c.StartLine,
				"end_line", c.EndLine,
				"error", cerr,
			)
		}
	}
	if failed == len(comments) && len(comments) > 0 {
		return fmt.Errorf("all %d fallback comment creates failed", failed)
	}
	return nil
}

// deleteSuperseded removes existing bot-authored comments whose range exactly
// matches a buffered comment. Failures here are logged and ignored; a stale
// duplicate is preferable to losing the new review.
func (s *Submitter) deleteSuperseded(ctx context.Context, comments []model.DraftComment) {
	if len(comments) == 0 {
		return
	}

	existing, err := s.vcs.ListReviewComments(ctx, s.repo, s.prNumber)
	if err != nil {
		slog.Warn("could not list review comments for dedup", "error", err)
		return
	}

	for _, c := range comments {
		for _, e := range existing {
			if e.Author != s.botUser {
				continue
			}
			start := e.StartLine
			if start == 0 {
				start = e.Line
			}
			if e.Path != c.Path || start != c.StartLine || e.Line != c.EndLine {
				continue
			}
			if err := s.vcs.DeleteReviewComment(ctx, s.repo, e.ID); err != nil {
				slog.Warn("could not delete superseded comment", "comment_id", e.ID, "error", err)
			}
		}
	}
}
