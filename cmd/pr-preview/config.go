/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainguard-dev/pr-preview/pkg/command"
	"github.com/chainguard-dev/pr-preview/pkg/lifecycle"
	"github.com/chainguard-dev/pr-preview/pkg/provider"
	"github.com/chainguard-dev/pr-preview/pkg/provider/bucket"
	"github.com/chainguard-dev/pr-preview/pkg/provider/surge"
	"github.com/chainguard-dev/pr-preview/pkg/provider/wrangler"
)

// config holds the action inputs. The runner exposes input "foo_bar" as
// INPUT_FOO_BAR.
type config struct {
	CFToken     string `env:"INPUT_CF_TOKEN"`
	CFAccount   string `env:"INPUT_CF_ACCOUNT"`
	GitHubToken string `env:"INPUT_GITHUB_TOKEN, required"`
	Domain      string `env:"INPUT_DOMAIN"`
	ProjectPath string `env:"INPUT_PROJECT_PATH"`
	Teardown    string `env:"INPUT_TEARDOWN"`
	Build       string `env:"INPUT_BUILD"`

	Target string `env:"INPUT_TARGET, default=surge"`
	Bucket string `env:"INPUT_BUCKET"`

	AppID             int64  `env:"INPUT_APP_ID"`
	AppInstallationID int64  `env:"INPUT_APP_INSTALLATION_ID"`
	AppPrivateKey     string `env:"INPUT_APP_PRIVATE_KEY"`

	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Debug bool `env:"RUNNER_DEBUG"`
}

// exitPolicy decides whether a failure fails the job. It is read before
// anything else so that every later failure can honour it.
type exitPolicy struct {
	FailOnError    string `env:"INPUT_FAILONERROR"`
	FailOnErrorEnv string `env:"FAIL_ON__ERROR"`
}

// teardown is true only for "true" in any case.
func (c *config) teardown() bool {
	return strings.ToLower(strings.TrimSpace(c.Teardown)) == "true"
}

// failOnError takes the input, falling back to FAIL_ON__ERROR. Values that
// are not booleans count as set.
func (c *exitPolicy) failOnError() bool {
	v := strings.TrimSpace(c.FailOnError)
	if v == "" {
		v = strings.TrimSpace(c.FailOnErrorEnv)
	}
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func (c *config) projectPath() string {
	if c.ProjectPath == "" {
		return "."
	}
	return c.ProjectPath
}

func (c *config) useApp() bool {
	return c.AppID != 0 && c.AppInstallationID != 0 && c.AppPrivateKey != ""
}

// target is a hosting target and the host suffix it serves previews under
// when no domain is configured.
type target struct {
	lifecycle.Publisher
	suffix string
	close  func() error
}

func newTarget(ctx context.Context, c *config, exec command.Executor) (*target, error) {
	creds := provider.Credentials{AccountID: c.CFAccount, Token: c.CFToken}

	switch c.Target {
	case "", "surge":
		p, err := surge.New(exec, creds)
		if err != nil {
			return nil, err
		}
		return &target{Publisher: p, suffix: surge.DefaultSuffix}, nil

	case "wrangler":
		p, err := wrangler.New(exec, creds, c.Domain)
		if err != nil {
			return nil, err
		}
		return &target{Publisher: p}, nil

	case "bucket":
		if c.Bucket == "" {
			return nil, &provider.MissingInputError{Target: "bucket", Input: "bucket"}
		}
		if c.Domain == "" {
			return nil, &provider.MissingInputError{Target: "bucket", Input: "domain"}
		}
		p, err := bucket.New(ctx, c.Bucket)
		if err != nil {
			return nil, err
		}
		return &target{Publisher: p, close: p.Close}, nil

	default:
		return nil, fmt.Errorf("unknown target %q, want surge, wrangler or bucket", c.Target)
	}
}
