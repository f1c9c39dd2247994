/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"

	"github.com/chainguard-dev/pr-preview/pkg/trigger"
)

// LookupError is a source-control API failure while resolving the pull
// request or the check runs of a commit.
type LookupError struct {
	Op  string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Client answers the questions the lifecycle asks the source-control API.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

// New returns a Client scoped to owner/repo.
func New(gh *github.Client, owner, repo string) *Client {
	return &Client{gh: gh, owner: owner, repo: repo}
}

// PullRequestNumber returns the pull request the run belongs to, or 0 when
// there is none. A pull request payload that carries its own number needs no
// API call; otherwise the first pull request associated with sha wins, in the
// order the API returns them.
func (c *Client) PullRequestNumber(ctx context.Context, ev trigger.Event, sha string) (int, error) {
	log := clog.FromContext(ctx)

	if n, ok := trigger.DirectPullRequest(ev); ok {
		log.Debugf("pull request %d taken from the event payload", n)
		return n, nil
	}

	prs, _, err := c.gh.PullRequests.ListPullRequestsWithCommit(ctx, c.owner, c.repo, sha, nil)
	if err != nil {
		return 0, &LookupError{Op: "listing pull requests for commit " + sha, Err: err}
	}
	log.Debugf("found %d pull requests associated with %s", len(prs), sha)
	if len(prs) == 0 {
		return 0, nil
	}
	return prs[0].GetNumber(), nil
}

// CheckRuns lists the check runs registered on sha.
func (c *Client) CheckRuns(ctx context.Context, sha string) ([]*github.CheckRun, error) {
	res, _, err := c.gh.Checks.ListCheckRunsForRef(ctx, c.owner, c.repo, sha, &github.ListCheckRunsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, &LookupError{Op: "listing check runs for " + sha, Err: err}
	}
	clog.FromContext(ctx).Debugf("found %d check runs on %s", res.GetTotal(), sha)
	return res.CheckRuns, nil
}
