package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// actionsEvent is the subset of the GitHub Actions event payload the commands
// need to resolve their target. pull_request events carry the PR directly;
// comment events carry it as the issue.
type actionsEvent struct {
	PullRequest *struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Issue *struct {
		Number int `json:"number"`
	} `json:"issue"`
	Comment *struct {
		ID int64 `json:"id"`
	} `json:"comment"`
	Repository *struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

func (e *actionsEvent) prNumber() int {
	if e.PullRequest != nil {
		return e.PullRequest.Number
	}
	if e.Issue != nil {
		return e.Issue.Number
	}
	return 0
}

// loadActionsEvent reads the event payload named by GITHUB_EVENT_PATH.
// Returns nil without error outside of Actions, where flags supply the target.
func loadActionsEvent() (*actionsEvent, error) {
	path := os.Getenv("GITHUB_EVENT_PATH")
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading event payload: %w", err)
	}

	var event actionsEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("parsing event payload: %w", err)
	}
	return &event, nil
}
