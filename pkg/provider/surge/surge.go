/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package surge publishes previews as static sites on surge.sh.
package surge

import (
	"context"
	"path/filepath"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/pr-preview/pkg/command"
	"github.com/chainguard-dev/pr-preview/pkg/preview"
	"github.com/chainguard-dev/pr-preview/pkg/provider"
)

const (
	// DefaultSuffix is the host suffix used when no domain is configured.
	DefaultSuffix = "surge.sh"

	successMarker = "Success"
)

// Provider drives the surge CLI through npx.
type Provider struct {
	exec  command.Executor
	token string
}

// New returns a Provider authenticated with creds.Token.
func New(exec command.Executor, creds provider.Credentials) (*Provider, error) {
	if creds.Token == "" {
		return nil, &provider.MissingInputError{Target: "surge", Input: "cf_token"}
	}
	return &Provider{exec: exec, token: creds.Token}, nil
}

// Publish uploads dir to the target URL, replacing what is there.
func (p *Provider) Publish(ctx context.Context, target preview.Target, dir string) error {
	clog.FromContext(ctx).Infof("Deploy to %s", target.URL)
	return p.exec.Run(ctx, p.npx(publishPath(dir), target.URL))
}

// publishPath keeps relative directories explicitly relative so surge does
// not read them as a domain.
func publishPath(dir string) string {
	dir = filepath.Clean(dir)
	if filepath.IsAbs(dir) {
		return dir
	}
	return "./" + dir
}

// Teardown removes the site at the target URL.
func (p *Provider) Teardown(ctx context.Context, target preview.Target) error {
	clog.FromContext(ctx).Infof("Teardown: %s", target.URL)
	return p.exec.Run(ctx, p.npx("teardown", target.URL))
}

func (p *Provider) npx(args ...string) command.Cmd {
	return command.Cmd{
		Name:          "npx",
		Args:          append(append([]string{"-y", "surge"}, args...), "--token", p.token),
		SuccessMarker: successMarker,
		Redact:        []string{p.token},
	}
}
