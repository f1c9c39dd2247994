/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package reporter keeps a single status comment on a pull request in sync
// with the preview lifecycle.
//
// Reporting is best effort: failures are logged and never returned, so a
// broken comment never changes the outcome of a deploy or teardown.
package reporter

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
)

// Phase is the lifecycle phase a status comment reflects.
type Phase string

const (
	PhaseDeploying Phase = "deploying"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
	PhaseDestroyed Phase = "destroyed"
)

// Status is one report.
type Status struct {
	Phase          Phase
	SHA            string
	URL            string
	BuildingLogURL string
	// Duration is set for PhaseSucceeded.
	Duration time.Duration
	// Err is set for PhaseFailed.
	Err error
}

// Error is a failure to post or update the status comment.
type Error struct {
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reporting %s status: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options locate the comment.
type Options struct {
	PullRequest int
	// Header distinguishes comments of different jobs on one pull request.
	Header string
	// Forked suppresses every comment; the run's token cannot write to the
	// base repository.
	Forked bool
}

// Reporter posts lifecycle statuses to a pull request.
type Reporter struct {
	commenter Commenter
	opts      Options
	identity  string
}

// New returns a Reporter for the pull request in opts.
func New(c Commenter, opts Options) *Reporter {
	return &Reporter{
		commenter: c,
		opts:      opts,
		identity:  "pr-preview:" + opts.Header,
	}
}

// Discard returns a Reporter that never comments. It stands in until a pull
// request is known.
func Discard() *Reporter {
	return &Reporter{}
}

// Report renders s and upserts the status comment. It never fails.
func (r *Reporter) Report(ctx context.Context, s Status) {
	log := clog.FromContext(ctx)

	if r.commenter == nil {
		return
	}
	if r.opts.Forked {
		log.Infof("Pull request comes from a fork, not reporting %s", s.Phase)
		return
	}

	defer func() {
		if p := recover(); p != nil {
			log.Errorf("panic while reporting %s status: %v", s.Phase, p)
		}
	}()

	if err := r.report(ctx, s); err != nil {
		log.Warnf("%v", &Error{Phase: s.Phase, Err: err})
	}
}

func (r *Reporter) report(ctx context.Context, s Status) error {
	body, err := r.render(s)
	if err != nil {
		return err
	}
	return r.commenter.Upsert(ctx, r.opts.PullRequest, r.identity, body)
}
