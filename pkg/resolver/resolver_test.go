/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/chainguard-dev/clog/slogtest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v75/github"

	"github.com/chainguard-dev/pr-preview/pkg/trigger"
)

func newTestClient(t *testing.T, h http.Handler) *github.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	gh := github.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	gh.BaseURL = base
	return gh
}

func TestPullRequestNumber(t *testing.T) {
	tests := []struct {
		name      string
		ev        trigger.Event
		status    int
		body      string
		want      int
		wantCalls int32
		wantErr   bool
	}{{
		name:      "number from payload",
		ev:        trigger.PullRequest{Number: 17, HeadSHA: "abc"},
		want:      17,
		wantCalls: 0,
	}, {
		name:      "first associated pull request",
		ev:        trigger.Push{After: "abc"},
		status:    http.StatusOK,
		body:      `[{"number": 5}, {"number": 3}]`,
		want:      5,
		wantCalls: 1,
	}, {
		name:      "pull request payload without number",
		ev:        trigger.PullRequest{HeadSHA: "abc"},
		status:    http.StatusOK,
		body:      `[{"number": 8}]`,
		want:      8,
		wantCalls: 1,
	}, {
		name:      "no associated pull request",
		ev:        trigger.WorkflowRun{HeadSHA: "abc"},
		status:    http.StatusOK,
		body:      `[]`,
		want:      0,
		wantCalls: 1,
	}, {
		name:      "api failure",
		ev:        trigger.Push{After: "abc"},
		status:    http.StatusInternalServerError,
		body:      `{"message": "boom"}`,
		wantCalls: 1,
		wantErr:   true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := slogtest.Context(t)
			var calls atomic.Int32
			gh := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if got, want := r.URL.Path, "/repos/octo/site/commits/abc/pulls"; got != want {
					t.Errorf("path = %q, want %q", got, want)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			got, err := New(gh, "octo", "site").PullRequestNumber(ctx, tt.ev, "abc")
			if (err != nil) != tt.wantErr {
				t.Fatalf("PullRequestNumber() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var lerr *LookupError
				if !errors.As(err, &lerr) {
					t.Errorf("error = %T, want *LookupError", err)
				}
			}
			if got != tt.want {
				t.Errorf("PullRequestNumber() = %d, want %d", got, tt.want)
			}
			if c := calls.Load(); c != tt.wantCalls {
				t.Errorf("API calls = %d, want %d", c, tt.wantCalls)
			}
		})
	}
}

func TestCheckRuns(t *testing.T) {
	ctx := slogtest.Context(t)
	gh := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.URL.Path, "/repos/octo/site/commits/abc/check-runs"; got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total_count": 2, "check_runs": [{"id": 11, "name": "lint"}, {"id": 12, "name": "preview"}]}`)
	}))

	runs, err := New(gh, "octo", "site").CheckRuns(ctx, "abc")
	if err != nil {
		t.Fatalf("CheckRuns() = %v", err)
	}
	var got []string
	for _, r := range runs {
		got = append(got, fmt.Sprintf("%d:%s", r.GetID(), r.GetName()))
	}
	if diff := cmp.Diff([]string{"11:lint", "12:preview"}, got); diff != "" {
		t.Errorf("CheckRuns() mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckRuns_Error(t *testing.T) {
	ctx := slogtest.Context(t)
	gh := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "Resource not accessible by integration"}`)
	}))

	runs, err := New(gh, "octo", "site").CheckRuns(ctx, "abc")
	var lerr *LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("CheckRuns() error = %v, want *LookupError", err)
	}
	if runs != nil {
		t.Errorf("CheckRuns() runs = %v, want nil", runs)
	}
}
