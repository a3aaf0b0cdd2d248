package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ericfisherdev/reviewbot/internal/config"
	"github.com/ericfisherdev/reviewbot/internal/domain/model"
	"github.com/ericfisherdev/reviewbot/internal/domain/port/driven"
	"github.com/ericfisherdev/reviewbot/internal/marker"
	"github.com/ericfisherdev/reviewbot/internal/patch"
	"github.com/ericfisherdev/reviewbot/internal/pathfilter"
)

// summaryBatchSize is how many per-file summaries fold into the running raw
// summary per aggregation call.
const summaryBatchSize = 10

// Pipeline drives one review pass over a pull request: summarize, aggregate,
// post the digest, deep-review flagged files, and submit the result as one
// review. Two independent semaphores bound model calls and host-API calls so
// a slow provider cannot starve API bookkeeping.
type Pipeline struct {
	cfg    *config.Config
	light  driven.ChatClient
	heavy  driven.ChatClient
	vcs    driven.VCSClient
	filter *pathfilter.Filter

	modelSem *semaphore.Weighted
	vcsSem   *semaphore.Weighted
}

// NewPipeline wires a Pipeline from its collaborators.
func NewPipeline(cfg *config.Config, light, heavy driven.ChatClient, vcs driven.VCSClient, filter *pathfilter.Filter) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		light:    light,
		heavy:    heavy,
		vcs:      vcs,
		filter:   filter,
		modelSem: semaphore.NewWeighted(int64(cfg.ModelConcurrency)),
		vcsSem:   semaphore.NewWeighted(int64(cfg.VCSConcurrency)),
	}
}

// summaryState carries the persistent summary comment through the run.
type summaryState struct {
	commentID int64 // 0 when no summary comment exists yet.
	body      string
}

// Run executes the full pipeline for one PR. Single-file failures are
// recorded and surfaced in the status section; only errors that make the
// whole run meaningless (PR fetch, diff fetch) are returned.
func (p *Pipeline) Run(ctx context.Context, prNumber int) error {
	pr, err := p.vcs.GetPullRequest(ctx, p.cfg.Repo, prNumber)
	if err != nil {
		return err
	}

	// A head already recorded as reviewed resets the watermark to base, so the
	// only empty range is a PR with no commits at all.
	if pr.BaseSHA == pr.HeadSHA {
		slog.Info("nothing to review", "pr", prNumber, "head", pr.HeadSHA)
		return nil
	}

	existing, err := p.findSummaryComment(ctx, prNumber)
	if err != nil {
		return err
	}

	watermark, err := p.determineWatermark(ctx, pr, existing.body)
	if err != nil {
		return err
	}

	files, err := p.fetchDiff(ctx, pr, watermark)
	if err != nil {
		return err
	}

	status := &runStatus{}
	selected := p.selectFiles(files, status)
	slog.Info("files selected",
		"pr", prNumber,
		"changed", len(files),
		"selected", len(selected),
		"watermark", watermark,
	)

	p.markInProgress(ctx, pr, &existing, watermark)

	changes, summaries := p.summarizeFiles(ctx, pr, selected, status)

	rawSummary := marker.Extract(existing.body, marker.RawSummaryStart, marker.RawSummaryEnd)
	rawSummary = p.aggregateSummaries(ctx, rawSummary, summaries)

	finalSummary := p.heavyChat(ctx, finalSummaryPrompt(pr, rawSummary))
	if p.cfg.ReleaseNotes {
		p.postReleaseNotes(ctx, pr, rawSummary)
	}
	shortSummary := p.heavyChat(ctx, shortSummaryPrompt(rawSummary))

	p.postSummary(ctx, pr, &existing, finalSummary, rawSummary, shortSummary)

	if p.cfg.ReviewEnabled {
		p.reviewFiles(ctx, pr, changes, summaries, shortSummary, status)
	}

	submitter := NewSubmitter(p.vcs, p.cfg.Repo, prNumber, p.cfg.BotUser)
	for _, c := range drainDrafts(changes) {
		submitter.Buffer(c)
	}
	statusBody := status.render(watermark, pr.HeadSHA)
	if err := submitter.Submit(ctx, pr.HeadSHA, statusBody); err != nil {
		slog.Error("review submission failed", "error", err)
	}

	p.finalizeSummary(ctx, pr, &existing)
	return nil
}

// determineWatermark picks the commit to diff from using the reviewed-commit
// markers embedded in the summary comment.
func (p *Pipeline) determineWatermark(ctx context.Context, pr *model.PullRequest, summaryBody string) (string, error) {
	commits, err := p.vcs.ListCommits(ctx, p.cfg.Repo, pr.Number)
	if err != nil {
		return "", fmt.Errorf("determining watermark: %w", err)
	}

	reviewed := marker.ReviewedCommitIDs(summaryBody)
	return marker.Watermark(commits, reviewed, pr.BaseSHA, pr.HeadSHA), nil
}

// fetchDiff computes the incremental (watermark→head) and full (base→head)
// diffs and intersects them by filename: only files touched since the
// watermark are reviewed, but their patch context reflects the full change.
func (p *Pipeline) fetchDiff(ctx context.Context, pr *model.PullRequest, watermark string) ([]model.CommitFile, error) {
	full, err := p.vcs.CompareCommits(ctx, p.cfg.Repo, pr.BaseSHA, pr.HeadSHA)
	if err != nil {
		return nil, fmt.Errorf("fetching full diff: %w", err)
	}
	if watermark == pr.BaseSHA {
		return full, nil
	}

	incremental, err := p.vcs.CompareCommits(ctx, p.cfg.Repo, watermark, pr.HeadSHA)
	if err != nil {
		return nil, fmt.Errorf("fetching incremental diff: %w", err)
	}

	touched := make(map[string]struct{}, len(incremental))
	for _, f := range incremental {
		touched[f.Filename] = struct{}{}
	}

	var out []model.CommitFile
	for _, f := range full {
		if _, ok := touched[f.Filename]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// selectFiles applies path rules and the max-files cap, recording everything
// it drops.
func (p *Pipeline) selectFiles(files []model.CommitFile, status *runStatus) []model.CommitFile {
	var selected []model.CommitFile
	for _, f := range files {
		if !p.filter.Match(f.Filename) {
			status.record(model.Skipped(f.Filename, "excluded by path filters"))
			continue
		}
		if p.cfg.MaxFiles > 0 && len(selected) >= p.cfg.MaxFiles {
			status.record(model.Skipped(f.Filename, "limit reached"))
			continue
		}
		selected = append(selected, f)
	}
	return selected
}

// fileWork is the mutable per-file state shared between the summarize and
// review phases.
type fileWork struct {
	change model.FileChange
	drafts []model.DraftComment
}

// summarizeFiles runs the light-tier per-file summaries under the model pool.
// Failures are recorded and the file is excluded from everything downstream.
func (p *Pipeline) summarizeFiles(ctx context.Context, pr *model.PullRequest, files []model.CommitFile, status *runStatus) ([]*fileWork, []model.FileSummary) {
	works := make([]*fileWork, len(files))
	results := make([]*model.FileSummary, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			work, summary := p.summarizeOne(gctx, pr, f, status)
			works[i], results[i] = work, summary
			return nil
		})
	}
	_ = g.Wait()

	// Compact in original file order so aggregation batches stay deterministic.
	var okWorks []*fileWork
	var summaries []model.FileSummary
	for i := range files {
		if works[i] == nil {
			continue
		}
		okWorks = append(okWorks, works[i])
		summaries = append(summaries, *results[i])
	}
	return okWorks, summaries
}

func (p *Pipeline) summarizeOne(ctx context.Context, pr *model.PullRequest, f model.CommitFile, status *runStatus) (*fileWork, *model.FileSummary) {
	if f.Patch == "" {
		status.record(model.Failed(f.Filename, "empty diff"))
		return nil, nil
	}

	hunks := patch.SplitHunks(f.Patch)
	if len(hunks) == 0 {
		status.record(model.Skipped(f.Filename, "no hunks"))
		return nil, nil
	}

	prompt := summarizeFilePrompt(pr, f.Filename, f.Patch)
	if p.light.CountTokens(prompt) > p.light.Limits().RequestTokens {
		status.record(model.Failed(f.Filename, "diff too large for summary"))
		return nil, nil
	}

	response, err := p.chat(ctx, p.light, prompt)
	if err != nil {
		status.record(model.Failed(f.Filename, fmt.Sprintf("summarize failed: %v", err)))
		return nil, nil
	}
	if strings.TrimSpace(response) == "" {
		status.record(model.Failed(f.Filename, "empty summarize response"))
		return nil, nil
	}

	summary, needsReview := parseTriage(response)
	if p.cfg.ReviewSimpleChanges {
		needsReview = true
	}

	work := &fileWork{change: model.FileChange{
		Filename: f.Filename,
		Patch:    f.Patch,
		Hunks:    hunks,
	}}
	return work, &model.FileSummary{Filename: f.Filename, Summary: summary, NeedsReview: needsReview}
}

// fetchBaseContent loads the file's pre-change content. Best-effort: review
// still works from hunks alone, so failures degrade to an empty default.
func (p *Pipeline) fetchBaseContent(ctx context.Context, pr *model.PullRequest, filename string) string {
	if err := p.vcsSem.Acquire(ctx, 1); err != nil {
		return ""
	}
	defer p.vcsSem.Release(1)

	content, err := p.vcs.GetFileContent(ctx, p.cfg.Repo, filename, pr.BaseSHA)
	if err != nil {
		slog.Warn("could not fetch base content", "file", filename, "error", err)
		return ""
	}
	return content
}

// aggregateSummaries folds per-file summaries into the running raw summary in
// fixed batches, strictly sequentially: each batch's output feeds the next.
func (p *Pipeline) aggregateSummaries(ctx context.Context, rawSummary string, summaries []model.FileSummary) string {
	for start := 0; start < len(summaries); start += summaryBatchSize {
		end := min(start+summaryBatchSize, len(summaries))
		folded := p.heavyChat(ctx, foldSummariesPrompt(rawSummary, summaries[start:end]))
		if folded != "" {
			rawSummary = folded
		}
	}
	return rawSummary
}

// reviewFiles runs the heavy-tier deep review for files triaged NEEDS_REVIEW,
// under the model pool. Comments land in each file's draft buffer.
func (p *Pipeline) reviewFiles(ctx context.Context, pr *model.PullRequest, works []*fileWork, summaries []model.FileSummary, shortSummary string, status *runStatus) {
	reviewComments := p.listReviewComments(ctx, pr.Number)

	g, gctx := errgroup.WithContext(ctx)
	for i, work := range works {
		if !summaries[i].NeedsReview {
			status.addTriageApproved(1)
			continue
		}
		g.Go(func() error {
			p.reviewOne(gctx, pr, work, shortSummary, reviewComments, status)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) reviewOne(ctx context.Context, pr *model.PullRequest, work *fileWork, shortSummary string, existing []model.ReviewComment, status *runStatus) {
	filename := work.change.Filename

	skeleton := reviewFilePrompt(pr, filename, "")
	packer := patch.NewPacker(p.heavy.Limits().RequestTokens, p.heavy.CountTokens(skeleton), p.heavy.CountTokens)

	packed := patch.PackHunks(packer, work.change.Hunks)
	if packed.Packed == 0 {
		status.record(model.Skipped(filename, "diff too large"))
		return
	}

	prompt := reviewFilePrompt(pr, filename, packed.Text)

	// Optional extras ride along only when they fit; dropping them is not an
	// error. Base content is fetched only here, for files that actually reach
	// deep review.
	work.change.BaseContent = p.fetchBaseContent(ctx, pr, filename)
	if extra := contextSection("File content before the change", work.change.BaseContent); packer.Add(extra) {
		prompt += extra
	}
	if extra := contextSection("Summary of the overall change", shortSummary); packer.Add(extra) {
		prompt += extra
	}
	if chains := renderChainsForFile(existing, filename); chains != "" {
		if extra := contextSection("Existing review discussions on this file", chains); packer.Add(extra) {
			prompt += extra
		}
	}

	response, err := p.chat(ctx, p.heavy, prompt)
	if err != nil {
		status.record(model.Failed(filename, fmt.Sprintf("review failed: %v", err)))
		return
	}
	if strings.TrimSpace(response) == "" {
		status.record(model.Failed(filename, "empty review response"))
		return
	}

	var posted, approved int
	for _, c := range parseReviewResponse(response, packed.Ranges) {
		if c.lgtm && !p.cfg.PostLGTM {
			approved++
			continue
		}
		body := renderCommentBody(c, filename)
		work.drafts = append(work.drafts, model.DraftComment{
			Path:      filename,
			StartLine: c.startLine,
			EndLine:   c.endLine,
			Body:      body,
		})
		posted++
	}

	status.addApproved(approved)
	status.addCommented(posted)
	if packed.Packed < packed.Total {
		status.record(model.Skipped(filename, fmt.Sprintf("reviewed %d of %d hunks; rest over budget", packed.Packed, packed.Total)))
	} else {
		status.record(model.OK(filename))
	}
}

// renderCommentBody extracts any structured suggestion and appends it, valid
// and rendered, beneath the comment prose.
func renderCommentBody(c parsedComment, filename string) string {
	prose, suggestion := extractSuggestion(c.body, filename, c.startLine, c.endLine)
	if suggestion == nil {
		return prose
	}
	return prose + "\n\n" + suggestion.render()
}

// heavyChat is a sequential heavy-tier call where an empty result is tolerable
// and errors degrade to empty output.
func (p *Pipeline) heavyChat(ctx context.Context, prompt string) string {
	response, err := p.chat(ctx, p.heavy, prompt)
	if err != nil {
		slog.Warn("heavy-tier call failed", "error", err)
		return ""
	}
	return response
}

// chat performs one model call under the model pool.
func (p *Pipeline) chat(ctx context.Context, client driven.ChatClient, prompt string) (string, error) {
	if err := p.modelSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.modelSem.Release(1)

	response, _, err := client.Chat(ctx, prompt, driven.ChatState{})
	return response, err
}

// findSummaryComment locates the bot's persistent summary comment by its
// marker tag.
func (p *Pipeline) findSummaryComment(ctx context.Context, prNumber int) (summaryState, error) {
	comments, err := p.vcs.ListIssueComments(ctx, p.cfg.Repo, prNumber)
	if err != nil {
		return summaryState{}, fmt.Errorf("listing comments: %w", err)
	}

	for _, c := range comments {
		if strings.Contains(c.Body, marker.SummaryTag) {
			return summaryState{commentID: c.ID, body: c.Body}, nil
		}
	}
	return summaryState{}, nil
}

// markInProgress posts or updates the summary comment with an in-progress
// block so viewers see the run is underway. Best-effort.
func (p *Pipeline) markInProgress(ctx context.Context, pr *model.PullRequest, existing *summaryState, watermark string) {
	note := fmt.Sprintf("Currently reviewing new changes in this PR (%s to %s)...", short(watermark), short(pr.HeadSHA))
	body := marker.Embed(existing.body, marker.InProgressStart, marker.InProgressEnd, note)
	p.writeSummaryComment(ctx, pr, existing, body)
}

// postSummary writes the digest plus the machine-readable raw/short summary
// blocks into the persistent summary comment.
func (p *Pipeline) postSummary(ctx context.Context, pr *model.PullRequest, existing *summaryState, finalSummary, rawSummary, shortSummary string) {
	body := finalSummary + "\n\n" + marker.SummaryTag
	body = marker.Embed(body, marker.RawSummaryStart, marker.RawSummaryEnd, rawSummary)
	body = marker.Embed(body, marker.ShortSummaryStart, marker.ShortSummaryEnd, shortSummary)
	body = marker.Embed(body, marker.InProgressStart, marker.InProgressEnd,
		marker.Extract(existing.body, marker.InProgressStart, marker.InProgressEnd))

	// Carry the reviewed-commit history forward.
	if ids := marker.Extract(existing.body, marker.CommitIDsStart, marker.CommitIDsEnd); ids != "" {
		body = marker.Embed(body, marker.CommitIDsStart, marker.CommitIDsEnd, ids)
	}

	p.writeSummaryComment(ctx, pr, existing, body)
}

// finalizeSummary appends the new head to the reviewed-commit block and clears
// the in-progress marker. This runs last: the watermark only advances after a
// successful submission.
func (p *Pipeline) finalizeSummary(ctx context.Context, pr *model.PullRequest, existing *summaryState) {
	body := marker.AddReviewedCommitID(existing.body, pr.HeadSHA)
	body = marker.Remove(body, marker.InProgressStart, marker.InProgressEnd)
	p.writeSummaryComment(ctx, pr, existing, body)
}

// writeSummaryComment updates the existing summary comment or creates it. The
// new body and ID are remembered in-run since the comment cache never sees our
// writes.
func (p *Pipeline) writeSummaryComment(ctx context.Context, pr *model.PullRequest, existing *summaryState, body string) {
	if err := p.vcsSem.Acquire(ctx, 1); err != nil {
		return
	}
	defer p.vcsSem.Release(1)

	var err error
	if existing.commentID != 0 {
		err = p.vcs.UpdateIssueComment(ctx, p.cfg.Repo, existing.commentID, body)
	} else {
		existing.commentID, err = p.vcs.CreateIssueComment(ctx, p.cfg.Repo, pr.Number, body)
	}
	if err != nil {
		slog.Warn("could not write summary comment", "error", err)
		return
	}
	existing.body = body
}

// postReleaseNotes writes release notes into the PR description between
// markers, preserving the human-written description. Best-effort.
func (p *Pipeline) postReleaseNotes(ctx context.Context, pr *model.PullRequest, rawSummary string) {
	notes := p.heavyChat(ctx, releaseNotesPrompt(rawSummary))
	if notes == "" {
		return
	}

	body := marker.Embed(pr.Body, marker.DescriptionStart, marker.DescriptionEnd, notes)
	if err := p.vcs.UpdatePullRequestBody(ctx, p.cfg.Repo, pr.Number, body); err != nil {
		slog.Warn("could not update PR description", "error", err)
	}
}

// listReviewComments loads existing inline comments for chain context.
// Best-effort: an empty default keeps the review going.
func (p *Pipeline) listReviewComments(ctx context.Context, prNumber int) []model.ReviewComment {
	comments, err := p.vcs.ListReviewComments(ctx, p.cfg.Repo, prNumber)
	if err != nil {
		slog.Warn("could not list review comments", "error", err)
		return nil
	}
	return comments
}

func contextSection(title, content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	return fmt.Sprintf("\n\n## %s\n\n%s", title, content)
}

func drainDrafts(works []*fileWork) []model.DraftComment {
	var out []model.DraftComment
	for _, w := range works {
		out = append(out, w.drafts...)
	}
	return out
}
