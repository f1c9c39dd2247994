/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/chainguard-dev/clog/slogtest"
	"github.com/google/go-cmp/cmp"
	"github.com/sethvargo/go-envconfig"

	"github.com/chainguard-dev/pr-preview/pkg/command"
	"github.com/chainguard-dev/pr-preview/pkg/provider"
	"github.com/chainguard-dev/pr-preview/pkg/provider/bucket"
	"github.com/chainguard-dev/pr-preview/pkg/provider/surge"
	"github.com/chainguard-dev/pr-preview/pkg/provider/wrangler"
)

func process(t *testing.T, env map[string]string) config {
	t.Helper()
	var cfg config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(env),
	}); err != nil {
		t.Fatalf("ProcessWith() = %v", err)
	}
	return cfg
}

func TestConfig(t *testing.T) {
	cfg := process(t, map[string]string{
		"INPUT_GITHUB_TOKEN": "ghs_x",
		"INPUT_CF_TOKEN":     "cf",
		"INPUT_TEARDOWN":     "TRUE",
		"INPUT_BUILD":        "npm ci\n\nnpm run build\n",
		"RUNNER_DEBUG":       "1",
	})

	if cfg.Target != "surge" {
		t.Errorf("Target = %q, want surge", cfg.Target)
	}
	if !cfg.teardown() {
		t.Error("teardown() = false, want true")
	}
	if got := cfg.projectPath(); got != "." {
		t.Errorf("projectPath() = %q, want .", got)
	}
	if !cfg.Debug {
		t.Error("Debug = false with RUNNER_DEBUG=1")
	}
	if cfg.useApp() {
		t.Error("useApp() = true without app inputs")
	}
}

func TestConfigMissingToken(t *testing.T) {
	var cfg config
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{}),
	})
	if err == nil {
		t.Fatal("ProcessWith() succeeded without INPUT_GITHUB_TOKEN")
	}
}

func TestTeardown(t *testing.T) {
	for in, want := range map[string]bool{
		"":      false,
		"true":  true,
		"True":  true,
		" true": true,
		"yes":   false,
		"1":     false,
		"false": false,
	} {
		c := config{Teardown: in}
		if got := c.teardown(); got != want {
			t.Errorf("teardown(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFailOnError(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		want     bool
	}{
		{name: "unset"},
		{name: "true", input: "true", want: true},
		{name: "false", input: "false"},
		{name: "numeric", input: "1", want: true},
		{name: "fallback", fallback: "true", want: true},
		{name: "input wins", input: "false", fallback: "true"},
		{name: "not a boolean", input: "please", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := exitPolicy{FailOnError: tt.input, FailOnErrorEnv: tt.fallback}
			if got := c.failOnError(); got != tt.want {
				t.Errorf("failOnError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewTarget(t *testing.T) {
	ctx := slogtest.Context(t)
	exec := &command.Runner{}

	tests := []struct {
		name       string
		cfg        config
		wantSuffix string
		check      func(t *testing.T, tgt *target)
		wantErr    *provider.MissingInputError
	}{{
		name:       "surge",
		cfg:        config{Target: "surge", CFToken: "tok"},
		wantSuffix: surge.DefaultSuffix,
		check: func(t *testing.T, tgt *target) {
			if _, ok := tgt.Publisher.(*surge.Provider); !ok {
				t.Errorf("Publisher = %T, want *surge.Provider", tgt.Publisher)
			}
		},
	}, {
		name:    "surge without token",
		cfg:     config{Target: "surge"},
		wantErr: &provider.MissingInputError{Target: "surge", Input: "cf_token"},
	}, {
		name: "wrangler",
		cfg:  config{Target: "wrangler", CFToken: "tok", CFAccount: "acct", Domain: "preview.example.com"},
		check: func(t *testing.T, tgt *target) {
			if _, ok := tgt.Publisher.(*wrangler.Provider); !ok {
				t.Errorf("Publisher = %T, want *wrangler.Provider", tgt.Publisher)
			}
		},
	}, {
		name:    "wrangler without account",
		cfg:     config{Target: "wrangler", CFToken: "tok", Domain: "preview.example.com"},
		wantErr: &provider.MissingInputError{Target: "wrangler", Input: "cf_account"},
	}, {
		name:    "bucket without url",
		cfg:     config{Target: "bucket", Domain: "preview.example.com"},
		wantErr: &provider.MissingInputError{Target: "bucket", Input: "bucket"},
	}, {
		name:    "bucket without domain",
		cfg:     config{Target: "bucket", Bucket: "mem://"},
		wantErr: &provider.MissingInputError{Target: "bucket", Input: "domain"},
	}, {
		name: "bucket",
		cfg:  config{Target: "bucket", Bucket: "file://" + t.TempDir(), Domain: "preview.example.com"},
		check: func(t *testing.T, tgt *target) {
			if _, ok := tgt.Publisher.(*bucket.Provider); !ok {
				t.Errorf("Publisher = %T, want *bucket.Provider", tgt.Publisher)
			}
			if tgt.close == nil {
				t.Error("close = nil, want the bucket closer")
			}
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgt, err := newTarget(ctx, &tt.cfg, exec)
			if tt.wantErr != nil {
				var got *provider.MissingInputError
				if !errors.As(err, &got) {
					t.Fatalf("newTarget() = %v, want %v", err, tt.wantErr)
				}
				if diff := cmp.Diff(tt.wantErr, got); diff != "" {
					t.Errorf("newTarget() error (-want +got):\n%s", diff)
				}
				return
			}
			if err != nil {
				t.Fatalf("newTarget() = %v", err)
			}
			if tt.check != nil {
				tt.check(t, tgt)
			}
			if tgt.suffix != tt.wantSuffix {
				t.Errorf("suffix = %q, want %q", tgt.suffix, tt.wantSuffix)
			}
			if tgt.close != nil {
				if err := tgt.close(); err != nil {
					t.Errorf("close() = %v", err)
				}
			}
		})
	}
}

func TestNewTargetUnknown(t *testing.T) {
	if _, err := newTarget(slogtest.Context(t), &config{Target: "netlify"}, &command.Runner{}); err == nil {
		t.Error("newTarget(netlify) succeeded, want error")
	}
}
