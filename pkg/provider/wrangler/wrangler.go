/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package wrangler publishes previews as Cloudflare Workers, one worker per
// pull request, routed at the preview host.
package wrangler

import (
	"context"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/pr-preview/pkg/command"
	"github.com/chainguard-dev/pr-preview/pkg/preview"
	"github.com/chainguard-dev/pr-preview/pkg/provider"
)

const (
	deployMarker = "Deployed"
	deleteMarker = "Successfully deleted"
)

// Provider drives the wrangler CLI through npx.
type Provider struct {
	exec  command.Executor
	creds provider.Credentials
}

// New returns a Provider for the account in creds. Workers need a routed
// domain, so domain must be set.
func New(exec command.Executor, creds provider.Credentials, domain string) (*Provider, error) {
	switch {
	case creds.Token == "":
		return nil, &provider.MissingInputError{Target: "wrangler", Input: "cf_token"}
	case creds.AccountID == "":
		return nil, &provider.MissingInputError{Target: "wrangler", Input: "cf_account"}
	case domain == "":
		return nil, &provider.MissingInputError{Target: "wrangler", Input: "domain"}
	}
	return &Provider{exec: exec, creds: creds}, nil
}

// Publish deploys the worker project in dir under the preview's name.
func (p *Provider) Publish(ctx context.Context, target preview.Target, dir string) error {
	clog.FromContext(ctx).Infof("Deploy worker %s to %s", target.Host(), target.URL)
	c := p.npx(deployMarker, "deploy", "--name", target.Host(), "--route", target.URL+"/*")
	c.Dir = dir
	return p.exec.Run(ctx, c)
}

// Teardown deletes the preview's worker.
func (p *Provider) Teardown(ctx context.Context, target preview.Target) error {
	clog.FromContext(ctx).Infof("Teardown: worker %s", target.Host())
	return p.exec.Run(ctx, p.npx(deleteMarker, "delete", "--name", target.Host(), "--force"))
}

func (p *Provider) npx(marker string, args ...string) command.Cmd {
	return command.Cmd{
		Name: "npx",
		Args: append([]string{"-y", "wrangler"}, args...),
		Env: map[string]string{
			"CLOUDFLARE_API_TOKEN":  p.creds.Token,
			"CLOUDFLARE_ACCOUNT_ID": p.creds.AccountID,
		},
		SuccessMarker: marker,
		Redact:        []string{p.creds.Token},
	}
}
