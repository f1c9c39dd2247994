/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"context"
	"errors"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chainguard-dev/pr-preview/pkg/command"
	"github.com/chainguard-dev/pr-preview/pkg/preview"
	"github.com/chainguard-dev/pr-preview/pkg/reporter"
	"github.com/chainguard-dev/pr-preview/pkg/trigger"
)

// Resolver answers the source-control questions of a run.
// *resolver.Client is the production implementation.
type Resolver interface {
	PullRequestNumber(ctx context.Context, ev trigger.Event, sha string) (int, error)
	CheckRuns(ctx context.Context, sha string) ([]*github.CheckRun, error)
}

// Publisher is a hosting target.
type Publisher interface {
	Publish(ctx context.Context, target preview.Target, dir string) error
	Teardown(ctx context.Context, target preview.Target) error
}

// OutputSetter records step outputs. *githubactions.Action implements it.
type OutputSetter interface {
	SetOutput(name, value string)
}

// Config is the per-run configuration.
type Config struct {
	// Job names the workflow job; it scopes the environment name and the
	// status comment.
	Job   string
	Owner string
	Repo  string

	// Domain, when set, hosts previews at "<environment>.<domain>".
	// Otherwise Suffix is used with the owner and repository prefixed.
	Domain string
	Suffix string

	// RepoURL is the repository web URL; check run links hang off it.
	RepoURL string
	// RunURL is the workflow run web URL, used when no check run matches Job.
	RunURL string

	Teardown    bool
	FailOnError bool

	// BuildCommands run in order through the shell, in BuildDir.
	// Empty means DefaultBuild.
	BuildCommands []string
	BuildDir      string
	// ProjectPath is handed to the publisher.
	ProjectPath string
}

// Orchestrator runs the preview lifecycle.
type Orchestrator struct {
	cfg       Config
	resolver  Resolver
	publisher Publisher
	exec      command.Executor
	commenter reporter.Commenter
	outputs   OutputSetter
	clock     clockwork.Clock
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used to time deploys.
func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithOutputs sets where the preview_url output is written.
func WithOutputs(s OutputSetter) Option {
	return func(o *Orchestrator) {
		o.outputs = s
	}
}

// New returns an Orchestrator. commenter may be nil to disable reporting.
func New(cfg Config, r Resolver, p Publisher, exec command.Executor, commenter reporter.Commenter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		resolver:  r,
		publisher: p,
		exec:      exec,
		commenter: commenter,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var tracer = otel.Tracer("github.com/chainguard-dev/pr-preview/pkg/lifecycle")

// Run handles one event. Collaborator errors end up in the returned Outcome.
func (o *Orchestrator) Run(ctx context.Context, ev trigger.Event) (out Outcome) {
	start := o.clock.Now()
	defer func() { record(out, o.clock.Since(start)) }()

	ctx, span := tracer.Start(ctx, "preview")
	defer func() {
		span.SetAttributes(
			attribute.String("decision", string(out.Decision)),
			attribute.String("outcome", string(out.Kind)),
		)
		if out.Err != nil {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
		}
		span.End()
	}()

	rc := &RunContext{
		FailOnError: o.cfg.FailOnError,
		Reporter:    reporter.Discard(),
		Log:         clog.FromContext(ctx),
		Target:      preview.Target{BuildingLogURL: o.cfg.RunURL},
	}

	rc.SHA = trigger.CommitSHA(ev)
	if rc.SHA == "" {
		rc.Log.Info("No commit SHA in the event payload, skip it.")
		return Outcome{Decision: Skip, Kind: Skipped}
	}

	pr, err := o.resolver.PullRequestNumber(ctx, ev, rc.SHA)
	if err != nil {
		return o.fail(ctx, rc, err)
	}
	rc.PR = pr

	rc.Decision = Decide(o.cfg.Teardown, trigger.ActionOf(ev), pr)
	if rc.Decision == Skip {
		rc.Log.Info("No related PR found, skip it.")
		return Outcome{Decision: Skip, Kind: Skipped}
	}

	rc.Log = rc.Log.With("pr", pr, "sha", rc.SHA)
	ctx = clog.WithLogger(ctx, rc.Log)
	rc.Log.Infof("Found PR number: %d", pr)

	rc.Reporter = reporter.New(o.commenter, reporter.Options{
		PullRequest: pr,
		Header:      o.cfg.Job,
		Forked:      trigger.FromFork(ev),
	})

	env := preview.EnvironmentName(o.cfg.Job, pr)
	rc.Target.EnvironmentName = env
	rc.Target.URL = preview.URL(env, o.cfg.Owner, o.cfg.Repo, o.cfg.Domain, o.cfg.Suffix)
	rc.Log = rc.Log.With("environment", env)
	ctx = clog.WithLogger(ctx, rc.Log)

	if o.outputs != nil {
		o.outputs.SetOutput("preview_url", rc.Target.URL)
	}

	runs, err := o.resolver.CheckRuns(ctx, rc.SHA)
	if err != nil {
		return o.fail(ctx, rc, err)
	}
	rc.Target.BuildingLogURL = preview.BuildingLogURL(runs, o.cfg.Job, o.cfg.RepoURL, o.cfg.RunURL)
	rc.Log.Debugf("Building log URL: %s", rc.Target.BuildingLogURL)

	span.SetAttributes(
		attribute.Int("pr", pr),
		attribute.String("environment", env),
		attribute.String("url", rc.Target.URL),
	)

	switch rc.Decision {
	case Teardown:
		return o.teardown(ctx, rc)
	default:
		return o.deploy(ctx, rc)
	}
}

func (o *Orchestrator) teardown(ctx context.Context, rc *RunContext) Outcome {
	rc.Log.Infof("Teardown: %s", rc.Target.URL)

	if err := o.step(ctx, "teardown", func(ctx context.Context) error {
		return o.publisher.Teardown(ctx, rc.Target)
	}); err != nil {
		return o.fail(ctx, rc, err)
	}

	rc.Reporter.Report(ctx, reporter.Status{
		Phase:          reporter.PhaseDestroyed,
		SHA:            rc.SHA,
		URL:            rc.Target.URL,
		BuildingLogURL: rc.Target.BuildingLogURL,
	})
	return Outcome{Decision: Teardown, Kind: Success}
}

func (o *Orchestrator) deploy(ctx context.Context, rc *RunContext) Outcome {
	rc.Reporter.Report(ctx, reporter.Status{
		Phase:          reporter.PhaseDeploying,
		SHA:            rc.SHA,
		URL:            rc.Target.URL,
		BuildingLogURL: rc.Target.BuildingLogURL,
	})

	start := o.clock.Now()
	if err := o.step(ctx, "build", o.build); err != nil {
		return o.fail(ctx, rc, err)
	}
	rc.Log.Infof("Build time: %g seconds", o.clock.Since(start).Seconds())

	rc.Log.Infof("Deploy to %s", rc.Target.URL)
	if err := o.step(ctx, "publish", func(ctx context.Context) error {
		return o.publisher.Publish(ctx, rc.Target, o.cfg.ProjectPath)
	}); err != nil {
		return o.fail(ctx, rc, err)
	}
	elapsed := o.clock.Since(start)

	rc.Reporter.Report(ctx, reporter.Status{
		Phase:          reporter.PhaseSucceeded,
		SHA:            rc.SHA,
		URL:            rc.Target.URL,
		BuildingLogURL: rc.Target.BuildingLogURL,
		Duration:       elapsed,
	})
	return Outcome{Decision: Deploy, Kind: Success, Duration: elapsed}
}

// build runs the build commands in order and stops at the first failure.
func (o *Orchestrator) build(ctx context.Context) error {
	lines := o.cfg.BuildCommands
	if len(lines) == 0 {
		lines = DefaultBuild
	}
	for _, line := range lines {
		if err := o.exec.Run(ctx, command.Shell(line, o.cfg.BuildDir)); err != nil {
			return err
		}
	}
	return nil
}

// step runs f inside a span named after it.
func (o *Orchestrator) step(ctx context.Context, name string, f func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.String("step", name)))
	defer span.End()

	err := f(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// fail is the single failure path: log, report, and decide whether the job
// fails.
func (o *Orchestrator) fail(ctx context.Context, rc *RunContext, err error) Outcome {
	rc.Log.Errorf("error message: %v", err)

	var cerr *command.Error
	if errors.As(err, &cerr) && cerr.Output != "" {
		rc.Log.Debugf("captured output of %s:\n%s", cerr.Command, cerr.Output)
	}

	rc.Reporter.Report(ctx, reporter.Status{
		Phase:          reporter.PhaseFailed,
		SHA:            rc.SHA,
		URL:            rc.Target.URL,
		BuildingLogURL: rc.Target.BuildingLogURL,
		Err:            err,
	})

	if rc.FailOnError {
		rc.Log.Error("failOnError is set, failing the run")
	}
	return Outcome{Decision: rc.Decision, Kind: Failure, Err: err, Fatal: rc.FailOnError}
}
