/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package trigger models the payload that started a preview run.
//
// A payload is classified by shape into exactly one of Push, PullRequest or
// WorkflowRun. Each variant carries only the fields its shape guarantees, and
// the helpers in this package pattern-match on the variant.
package trigger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/go-github/v75/github"
)

// ActionClosed is the pull_request action that requests teardown.
const ActionClosed = "closed"

// Event is one of Push, PullRequest or WorkflowRun.
type Event interface {
	isEvent()
}

// Push is any payload that is neither a pull request nor a workflow run.
// After may be empty, e.g. for workflow_dispatch.
type Push struct {
	After string
}

// PullRequest is a pull_request or pull_request_target payload.
type PullRequest struct {
	Action string
	// Number is the top-level payload number; zero when absent.
	Number int
	// After is set on synchronize.
	After   string
	HeadSHA string

	HeadRepo string
	BaseRepo string
}

// WorkflowRun is a workflow_run payload.
type WorkflowRun struct {
	Action string
	// After is only set when the payload also carries a top-level after.
	After   string
	HeadSHA string

	HeadRepo string
	BaseRepo string
}

func (Push) isEvent()        {}
func (PullRequest) isEvent() {}
func (WorkflowRun) isEvent() {}

// payload is the subset of webhook fields used for classification.
type payload struct {
	Action      string              `json:"action,omitempty"`
	After       string              `json:"after,omitempty"`
	Number      int                 `json:"number,omitempty"`
	PullRequest *github.PullRequest `json:"pull_request,omitempty"`
	WorkflowRun *github.WorkflowRun `json:"workflow_run,omitempty"`
	Repository  *github.Repository  `json:"repository,omitempty"`
}

// Parse classifies a webhook payload.
func Parse(data []byte) (Event, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding event payload: %w", err)
	}

	switch {
	case p.PullRequest != nil:
		pr := p.PullRequest
		return PullRequest{
			Action:   p.Action,
			Number:   p.Number,
			After:    p.After,
			HeadSHA:  pr.GetHead().GetSHA(),
			HeadRepo: pr.GetHead().GetRepo().GetFullName(),
			BaseRepo: pr.GetBase().GetRepo().GetFullName(),
		}, nil

	case p.WorkflowRun != nil:
		wr := p.WorkflowRun
		base := p.Repository.GetFullName()
		if base == "" {
			base = wr.GetRepository().GetFullName()
		}
		return WorkflowRun{
			Action:   p.Action,
			After:    p.After,
			HeadSHA:  wr.GetHeadSHA(),
			HeadRepo: wr.GetHeadRepository().GetFullName(),
			BaseRepo: base,
		}, nil

	default:
		return Push{After: p.After}, nil
	}
}

// Load reads and parses the payload at path, typically GITHUB_EVENT_PATH.
func Load(path string) (Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading event payload: %w", err)
	}
	return Parse(data)
}

// CommitSHA returns the commit the run is about, or "" when the payload has
// none. Order: after, then pull request head, then workflow run head.
func CommitSHA(ev Event) string {
	switch e := ev.(type) {
	case Push:
		return e.After
	case PullRequest:
		if e.After != "" {
			return e.After
		}
		return e.HeadSHA
	case WorkflowRun:
		if e.After != "" {
			return e.After
		}
		return e.HeadSHA
	default:
		return ""
	}
}

// ActionOf returns the payload action, "" for pushes.
func ActionOf(ev Event) string {
	switch e := ev.(type) {
	case PullRequest:
		return e.Action
	case WorkflowRun:
		return e.Action
	default:
		return ""
	}
}

// FromFork reports whether the change under preview comes from a different
// repository than the one running the job. Tokens for such runs cannot write
// comments on the base repository.
func FromFork(ev Event) bool {
	switch e := ev.(type) {
	case PullRequest:
		return crossRepo(e.HeadRepo, e.BaseRepo)
	case WorkflowRun:
		return crossRepo(e.HeadRepo, e.BaseRepo)
	default:
		return false
	}
}

func crossRepo(head, base string) bool {
	return head != "" && base != "" && head != base
}

// DirectPullRequest returns the pull request number carried by the payload
// itself. ok is false when an API lookup is needed.
func DirectPullRequest(ev Event) (number int, ok bool) {
	if pr, isPR := ev.(PullRequest); isPR && pr.Number > 0 {
		return pr.Number, true
	}
	return 0, false
}
