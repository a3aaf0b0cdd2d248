package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/reviewbot/internal/config"
	"github.com/ericfisherdev/reviewbot/internal/domain/model"
	"github.com/ericfisherdev/reviewbot/internal/domain/port/driven"
	"github.com/ericfisherdev/reviewbot/internal/marker"
)

// Replier answers a human reply on one of the bot's inline review threads
// with a single heavy-tier model turn.
type Replier struct {
	cfg  *config.Config
	chat driven.ChatClient
	vcs  driven.VCSClient
}

// NewReplier wires a Replier from its collaborators.
func NewReplier(cfg *config.Config, chat driven.ChatClient, vcs driven.VCSClient) *Replier {
	return &Replier{cfg: cfg, chat: chat, vcs: vcs}
}

// Reply handles one review-comment event. It rebuilds the thread the comment
// belongs to, decides whether the bot was addressed, and if so posts one
// model-generated reply to the thread. Events the bot should ignore return
// nil without a model call.
func (r *Replier) Reply(ctx context.Context, prNumber int, commentID int64) error {
	comments, err := r.vcs.ListReviewComments(ctx, r.cfg.Repo, prNumber)
	if err != nil {
		return fmt.Errorf("listing review comments: %w", err)
	}

	trigger := findComment(comments, commentID)
	if trigger == nil {
		return fmt.Errorf("comment %d not found on PR %d", commentID, prNumber)
	}

	// Never answer ourselves: replying to bot-authored or bot-tagged comments
	// would loop forever.
	if trigger.Author == r.cfg.BotUser || strings.Contains(trigger.Body, marker.CommentTag) {
		slog.Debug("ignoring bot-authored comment", "comment", commentID)
		return nil
	}

	chain, root := buildChain(comments, trigger)
	if !r.addressed(trigger, chain) {
		slog.Debug("bot not addressed in thread", "comment", commentID)
		return nil
	}

	pr, err := r.vcs.GetPullRequest(ctx, r.cfg.Repo, prNumber)
	if err != nil {
		return err
	}

	prompt := replyPrompt(pr, trigger.Path, root.DiffHunk, chain, r.cfg.BotUser)
	response, _, err := r.chat.Chat(ctx, prompt, driven.ChatState{})
	if err != nil {
		return fmt.Errorf("generating reply: %w", err)
	}
	response = strings.TrimSpace(response)
	if response == "" {
		slog.Warn("empty reply from model", "comment", commentID)
		return nil
	}

	body := response + "\n\n" + marker.CommentTag
	return r.vcs.ReplyToReviewComment(ctx, r.cfg.Repo, prNumber, root.ID, body)
}

// addressed reports whether the bot should answer: either the trigger mentions
// it, or the thread already contains one of the bot's comments.
func (r *Replier) addressed(trigger *model.ReviewComment, chain model.CommentChain) bool {
	mention := "@" + r.cfg.BotUser
	if strings.Contains(trigger.Body, mention) {
		return true
	}
	for _, e := range chain {
		if e.Author == r.cfg.BotUser || strings.Contains(e.Body, marker.CommentTag) {
			return true
		}
	}
	return false
}

func findComment(comments []model.ReviewComment, id int64) *model.ReviewComment {
	for i := range comments {
		if comments[i].ID == id {
			return &comments[i]
		}
	}
	return nil
}

// buildChain reconstructs the thread containing trigger, root first, and
// returns the thread plus its root comment (the reply anchor).
func buildChain(comments []model.ReviewComment, trigger *model.ReviewComment) (model.CommentChain, *model.ReviewComment) {
	byID := make(map[int64]*model.ReviewComment, len(comments))
	for i := range comments {
		byID[comments[i].ID] = &comments[i]
	}

	// Walk up to the root.
	root := trigger
	for root.InReplyToID != nil {
		parent, ok := byID[*root.InReplyToID]
		if !ok {
			break
		}
		root = parent
	}

	// Collect the thread in list order, which the host returns oldest first.
	var chain model.CommentChain
	for i := range comments {
		c := &comments[i]
		if c.ID == root.ID || (c.InReplyToID != nil && *c.InReplyToID == root.ID) {
			chain = append(chain, model.ChainEntry{Author: c.Author, Body: c.Body})
		}
	}
	return chain, root
}

// renderChainsForFile renders every thread rooted on the given file as
// reviewer context for the deep-review prompt.
func renderChainsForFile(comments []model.ReviewComment, filename string) string {
	var b strings.Builder
	for i := range comments {
		c := &comments[i]
		if c.Path != filename || c.InReplyToID != nil {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "Thread on lines %d-%d:\n", chainStart(c), c.Line)
		for _, e := range threadOf(comments, c.ID) {
			fmt.Fprintf(&b, "%s: %s\n", e.Author, e.Body)
		}
	}
	return b.String()
}

func chainStart(c *model.ReviewComment) int {
	if c.StartLine > 0 {
		return c.StartLine
	}
	return c.Line
}

func threadOf(comments []model.ReviewComment, rootID int64) model.CommentChain {
	var chain model.CommentChain
	for i := range comments {
		c := &comments[i]
		if c.ID == rootID || (c.InReplyToID != nil && *c.InReplyToID == rootID) {
			chain = append(chain, model.ChainEntry{Author: c.Author, Body: c.Body})
		}
	}
	return chain
}
