/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package wrangler

import (
	"context"
	"errors"
	"testing"

	"github.com/chainguard-dev/clog/slogtest"
	"github.com/google/go-cmp/cmp"

	"github.com/chainguard-dev/pr-preview/pkg/command"
	"github.com/chainguard-dev/pr-preview/pkg/preview"
	"github.com/chainguard-dev/pr-preview/pkg/provider"
)

type recorder struct {
	cmds []command.Cmd
}

func (r *recorder) Run(_ context.Context, c command.Cmd) error {
	r.cmds = append(r.cmds, c)
	return nil
}

var (
	creds  = provider.Credentials{AccountID: "acct", Token: "tok"}
	target = preview.Target{EnvironmentName: "build-pr-7", URL: "build-pr-7.preview.example.com"}
)

func TestCommands(t *testing.T) {
	rec := &recorder{}
	p, err := New(rec, creds, "preview.example.com")
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	ctx := slogtest.Context(t)

	if err := p.Publish(ctx, target, "worker"); err != nil {
		t.Fatalf("Publish() = %v", err)
	}
	if err := p.Teardown(ctx, target); err != nil {
		t.Fatalf("Teardown() = %v", err)
	}

	env := map[string]string{"CLOUDFLARE_API_TOKEN": "tok", "CLOUDFLARE_ACCOUNT_ID": "acct"}
	want := []command.Cmd{{
		Name:          "npx",
		Args:          []string{"-y", "wrangler", "deploy", "--name", "build-pr-7", "--route", "build-pr-7.preview.example.com/*"},
		Dir:           "worker",
		Env:           env,
		SuccessMarker: "Deployed",
		Redact:        []string{"tok"},
	}, {
		Name:          "npx",
		Args:          []string{"-y", "wrangler", "delete", "--name", "build-pr-7", "--force"},
		Env:           env,
		SuccessMarker: "Successfully deleted",
		Redact:        []string{"tok"},
	}}
	if diff := cmp.Diff(want, rec.cmds); diff != "" {
		t.Errorf("commands (-want, +got): %s", diff)
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name   string
		creds  provider.Credentials
		domain string
		input  string
	}{{
		name:   "token",
		creds:  provider.Credentials{AccountID: "acct"},
		domain: "example.com",
		input:  "cf_token",
	}, {
		name:   "account",
		creds:  provider.Credentials{Token: "tok"},
		domain: "example.com",
		input:  "cf_account",
	}, {
		name:  "domain",
		creds: creds,
		input: "domain",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&recorder{}, tt.creds, tt.domain)
			var missing *provider.MissingInputError
			if !errors.As(err, &missing) {
				t.Fatalf("New() = %v, wanted *provider.MissingInputError", err)
			}
			if missing.Input != tt.input {
				t.Errorf("missing input: got = %s, wanted = %s", missing.Input, tt.input)
			}
		})
	}
}
