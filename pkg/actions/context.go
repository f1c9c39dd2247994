/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package actions derives the repository and run coordinates a preview needs
// from the GitHub Actions run context.
package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sethvargo/go-githubactions"
)

const (
	defaultAPIURL    = "https://api.github.com"
	defaultServerURL = "https://github.com"
)

// Context is the runner's description of the current run.
type Context struct {
	*githubactions.GitHubContext
}

// LoadContext reads the run context through a and checks that it names an
// event payload, a job and an owner/name repository.
func LoadContext(a *githubactions.Action) (*Context, error) {
	gc, err := a.Context()
	if err != nil {
		return nil, fmt.Errorf("reading run context: %w", err)
	}

	switch {
	case gc.EventPath == "":
		return nil, errors.New("GITHUB_EVENT_PATH is not set")
	case gc.Job == "":
		return nil, errors.New("GITHUB_JOB is not set")
	}
	if owner, name, ok := strings.Cut(gc.Repository, "/"); !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("GITHUB_REPOSITORY %q is not owner/name", gc.Repository)
	}
	return &Context{GitHubContext: gc}, nil
}

// Owner returns the repository owner.
func (c *Context) Owner() string {
	owner, _, _ := strings.Cut(c.Repository, "/")
	return owner
}

// RepoName returns the repository name without its owner.
func (c *Context) RepoName() string {
	_, name, _ := strings.Cut(c.Repository, "/")
	return name
}

// API returns the REST API base URL.
func (c *Context) API() string {
	if c.APIURL == "" {
		return defaultAPIURL
	}
	return strings.TrimSuffix(c.APIURL, "/")
}

// RepoURL returns the repository's web URL.
func (c *Context) RepoURL() string {
	server := c.ServerURL
	if server == "" {
		server = defaultServerURL
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(server, "/"), c.Repository)
}

// RunURL returns the web URL of the current workflow run.
func (c *Context) RunURL() string {
	return fmt.Sprintf("%s/actions/runs/%d", c.RepoURL(), c.RunID)
}

// Enterprise reports whether the API lives somewhere other than github.com.
func (c *Context) Enterprise() bool {
	return c.API() != defaultAPIURL
}
