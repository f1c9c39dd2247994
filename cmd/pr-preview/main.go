/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// pr-preview builds a pull request, publishes it under a per-PR preview URL
// and keeps a status comment on the pull request up to date. Closing the
// pull request with teardown enabled removes the preview.
//
// It runs as a GitHub Actions step and reads its inputs from the INPUT_*
// environment variables.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-githubactions"

	"github.com/chainguard-dev/pr-preview/pkg/actions"
	"github.com/chainguard-dev/pr-preview/pkg/command"
	"github.com/chainguard-dev/pr-preview/pkg/ghclient"
	"github.com/chainguard-dev/pr-preview/pkg/httpmetrics"
	"github.com/chainguard-dev/pr-preview/pkg/lifecycle"
	"github.com/chainguard-dev/pr-preview/pkg/reporter"
	"github.com/chainguard-dev/pr-preview/pkg/resolver"
	"github.com/chainguard-dev/pr-preview/pkg/trigger"
)

func main() {
	os.Exit(run(context.Background(), envconfig.OsLookuper(), githubactions.New(), &command.Runner{}))
}

// run wires one preview run from env and returns the process exit code.
func run(ctx context.Context, env envconfig.Lookuper, action *githubactions.Action, runner command.Executor) int {
	var policy exitPolicy
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &policy, Lookuper: env}); err != nil {
		clog.ErrorContextf(ctx, "failed to process failOnError: %v", err)
	}
	s := &setup{action: action, fatal: policy.failOnError()}

	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: env}); err != nil {
		return s.failed(ctx, "failed to process inputs: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := clog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	ctx = clog.WithLogger(ctx, log)

	for _, secret := range []string{cfg.GitHubToken, cfg.CFToken, cfg.AppPrivateKey} {
		if secret != "" {
			action.AddMask(secret)
		}
	}

	gha, err := actions.LoadContext(action)
	if err != nil {
		return s.failed(ctx, "failed to read the run context: %v", err)
	}

	if cfg.OTLPEndpoint != "" {
		defer httpmetrics.SetupTracer(ctx)()
	}
	if gha.Enterprise() {
		if u, err := url.Parse(gha.API()); err == nil {
			httpmetrics.SetBuckets(map[string]string{
				u.Host:                   "GitHub API",
				"github.com":             "GitHub",
				"storage.googleapis.com": "GCS",
			})
		}
	}

	ev, err := trigger.Load(gha.EventPath)
	if err != nil {
		return s.failed(ctx, "failed to load the event payload: %v", err)
	}
	log.Debugf("event %s: %+v", gha.EventName, ev)

	gh, err := ghclient.NewTokenClient(ctx, cfg.GitHubToken, gha.API())
	if err != nil {
		return s.failed(ctx, "failed to create GitHub client: %v", err)
	}
	comments := gh
	if cfg.useApp() {
		comments, err = ghclient.NewAppClient(ctx, cfg.AppID, cfg.AppInstallationID, []byte(cfg.AppPrivateKey), gha.API())
		if err != nil {
			return s.failed(ctx, "failed to create GitHub App client: %v", err)
		}
	}

	tgt, err := newTarget(ctx, &cfg, runner)
	if err != nil {
		return s.failed(ctx, "failed to configure target: %v", err)
	}
	if tgt.close != nil {
		defer tgt.close()
	}

	orch := lifecycle.New(lifecycle.Config{
		Job:           gha.Job,
		Owner:         gha.Owner(),
		Repo:          gha.RepoName(),
		Domain:        cfg.Domain,
		Suffix:        tgt.suffix,
		RepoURL:       gha.RepoURL(),
		RunURL:        gha.RunURL(),
		Teardown:      cfg.teardown(),
		FailOnError:   s.fatal,
		BuildCommands: lifecycle.ParseBuildCommands(cfg.Build),
		BuildDir:      gha.Workspace,
		ProjectPath:   cfg.projectPath(),
	},
		resolver.New(gh, gha.Owner(), gha.RepoName()),
		tgt,
		runner,
		newCommenter(comments, gha),
		lifecycle.WithOutputs(action),
	)

	out := orch.Run(ctx, ev)
	log.Infof("run finished: decision=%s outcome=%s", out.Decision, out.Kind)

	if cfg.PushgatewayURL != "" {
		if err := httpmetrics.Push(ctx, cfg.PushgatewayURL, "pr-preview", map[string]string{
			"repository":   gha.Repository,
			"workflow_job": gha.Job,
		}); err != nil {
			log.Warnf("failed to push metrics: %v", err)
		}
	}

	if out.Fatal {
		action.Errorf("%s", out.Err)
		return 1
	}
	return 0
}

func newCommenter(gh *github.Client, gha *actions.Context) reporter.Commenter {
	return reporter.NewGitHubCommenter(gh, gha.Owner(), gha.RepoName())
}

// setup reports failures that happen before the lifecycle starts. They fail
// the job only under failOnError, like failures inside the lifecycle.
type setup struct {
	action *githubactions.Action
	fatal  bool
}

func (s *setup) failed(ctx context.Context, format string, args ...any) int {
	msg := fmt.Sprintf(format, args...)
	clog.ErrorContextf(ctx, "%s", msg)
	if !s.fatal {
		s.action.Warningf("%s", msg)
		return 0
	}
	s.action.Errorf("%s", msg)
	return 1
}
