package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/reviewbot/internal/adapter/driven/github"
	"github.com/ericfisherdev/reviewbot/internal/adapter/driven/openai"
	"github.com/ericfisherdev/reviewbot/internal/config"
	"github.com/ericfisherdev/reviewbot/internal/pathfilter"
	"github.com/ericfisherdev/reviewbot/internal/review"
)

var (
	flagRepo       string
	flagPR         int
	flagCommentID  int64
	flagConfigFile string
)

var rootCmd = &cobra.Command{
	Use:          "reviewbot",
	Short:        "AI pull request reviewer",
	Long:         "reviewbot summarizes pull request diffs, reviews the risky files inline, and answers replies on its own review threads.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", "", `Repository as "owner/repo" (default: from the Actions event)`)
	rootCmd.PersistentFlags().IntVar(&flagPR, "pr", 0, "Pull request number (default: from the Actions event)")
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", ".reviewbot.yml", "Path to the repo-level config file")

	replyCmd.Flags().Int64Var(&flagCommentID, "comment", 0, "Review comment ID to answer (default: from the Actions event)")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(replyCmd)
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review the pull request's new changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := wire()
		if err != nil {
			return err
		}

		p := review.NewPipeline(deps.cfg, deps.light, deps.heavy, deps.vcs, deps.filter)
		return p.Run(cmd.Context(), deps.prNumber)
	},
}

var replyCmd = &cobra.Command{
	Use:   "reply",
	Short: "Answer a reply on one of the bot's review threads",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := wire()
		if err != nil {
			return err
		}

		commentID := flagCommentID
		if commentID == 0 && deps.event != nil && deps.event.Comment != nil {
			commentID = deps.event.Comment.ID
		}
		if commentID == 0 {
			return fmt.Errorf("no comment ID: pass --comment or run from a pull_request_review_comment event")
		}

		r := review.NewReplier(deps.cfg, deps.heavy, deps.vcs)
		return r.Reply(cmd.Context(), deps.prNumber, commentID)
	},
}

// deps is the wired object graph shared by both commands.
type deps struct {
	cfg      *config.Config
	vcs      *githubadapter.Client
	light    *openai.Client
	heavy    *openai.Client
	filter   *pathfilter.Filter
	event    *actionsEvent
	prNumber int
}

// wire loads configuration, resolves the run target from flags or the Actions
// event, and constructs the adapters.
func wire() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFile(flagConfigFile); err != nil {
		return nil, err
	}
	if cfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	event, err := loadActionsEvent()
	if err != nil {
		return nil, err
	}

	if flagRepo != "" {
		cfg.Repo = flagRepo
	}
	if cfg.Repo == "" && event != nil && event.Repository != nil {
		cfg.Repo = event.Repository.FullName
	}
	if cfg.Repo == "" {
		return nil, fmt.Errorf("no repository: pass --repo or set GITHUB_REPOSITORY")
	}

	prNumber := flagPR
	if prNumber == 0 && event != nil {
		prNumber = event.prNumber()
	}
	if prNumber == 0 {
		return nil, fmt.Errorf("no pull request number: pass --pr or run from a pull_request event")
	}

	filter, err := pathfilter.New(cfg.IncludePaths, cfg.ExcludePaths)
	if err != nil {
		return nil, err
	}

	light, err := newChatClient(cfg.LightModel)
	if err != nil {
		return nil, err
	}
	heavy, err := newChatClient(cfg.HeavyModel)
	if err != nil {
		return nil, err
	}

	slog.Info("config loaded",
		"repo", cfg.Repo,
		"pr", prNumber,
		"light_model", cfg.LightModel,
		"heavy_model", cfg.HeavyModel,
		"review", cfg.ReviewEnabled,
	)

	return &deps{
		cfg:      cfg,
		vcs:      githubadapter.NewClient(cfg.GitHubToken, cfg.BotUser),
		light:    light,
		heavy:    heavy,
		filter:   filter,
		event:    event,
		prNumber: prNumber,
	}, nil
}

func newChatClient(modelName string) (*openai.Client, error) {
	limits, err := openai.LimitsForModel(modelName)
	if err != nil {
		return nil, err
	}
	return openai.NewClient(modelName, review.SystemPrompt(limits.KnowledgeCutoff))
}
