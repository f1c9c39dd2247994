/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package lifecycle drives one preview run: it finds the pull request,
// decides between deploying and tearing down, runs the build and the hosting
// target, and reports every phase on the pull request.
package lifecycle

import (
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/samber/lo"

	"github.com/chainguard-dev/pr-preview/pkg/preview"
	"github.com/chainguard-dev/pr-preview/pkg/reporter"
	"github.com/chainguard-dev/pr-preview/pkg/trigger"
)

// Decision is the branch a run takes. It is chosen once.
type Decision string

const (
	Skip     Decision = "skip"
	Deploy   Decision = "deploy"
	Teardown Decision = "teardown"
)

// Decide picks the branch for a run. No pull request means Skip; teardown
// happens only when it is enabled and the pull request was closed.
func Decide(teardown bool, action string, pr int) Decision {
	switch {
	case pr == 0:
		return Skip
	case teardown && action == trigger.ActionClosed:
		return Teardown
	default:
		return Deploy
	}
}

// Kind classifies how a run ended.
type Kind string

const (
	Success Kind = "success"
	Failure Kind = "failure"
	Skipped Kind = "skipped"
)

// Outcome is the result of a run.
type Outcome struct {
	Decision Decision
	Kind     Kind
	// Duration is the build and publish time of a successful deploy.
	Duration time.Duration
	Err      error
	// Fatal is set when the failure must fail the job.
	Fatal bool
}

// RunContext carries the state of one run into every step. Reporter starts
// out discarding reports and is replaced once the pull request is known.
type RunContext struct {
	FailOnError bool
	Reporter    *reporter.Reporter
	Log         *clog.Logger

	Decision Decision
	SHA      string
	PR       int
	Target   preview.Target
}

// DefaultBuild runs when no build commands are configured.
var DefaultBuild = []string{"npm install", "npm run build"}

// ParseBuildCommands splits the newline separated build input into trimmed,
// non-empty command lines.
func ParseBuildCommands(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, "\n"), func(line string, _ int) string {
		return strings.TrimSpace(line)
	}))
}
