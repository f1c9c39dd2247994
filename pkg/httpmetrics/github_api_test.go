// Copyright 2025 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpmetrics

import (
	"testing"
)

func Test_bucketizePath(t *testing.T) {
	tests := []struct {
		path   string
		bucket string
	}{{
		path:   "/repos/octocat/hello-world/issues/123/comments",
		bucket: "/repos/{org}/{repo}/issues/{number}/comments",
	}, {
		path:   "/repos/octocat/hello-world/issues/comments/998877",
		bucket: "/repos/{org}/{repo}/issues/comments/{id}",
	}, {
		path:   "/repos/octocat/hello-world/commits/abc123/check-runs",
		bucket: "/repos/{org}/{repo}/commits/{ref}/check-runs",
	}, {
		path:   "/repos/octocat/hello-world/commits/abc123/pulls",
		bucket: "/repos/{org}/{repo}/commits/{sha}/pulls",
	}, {
		path:   "/app/installations/42/access_tokens",
		bucket: "/app/installations/{id}/access_tokens",
	}, {
		path:   "/api/v3/repos/octocat/hello-world/commits/abc123/pulls",
		bucket: "/repos/{org}/{repo}/commits/{sha}/pulls",
	}, {
		path:   "/repos/octocat/hello-world",
		bucket: "",
	}, {
		path:   "/repos/octocat/hello-world/issues/abc/comments",
		bucket: "",
	}, {
		path:   "/index.html",
		bucket: "",
	}}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := bucketizePath(tt.path); got != tt.bucket {
				t.Errorf("bucketizePath(%q) = %q, want %q", tt.path, got, tt.bucket)
			}
		})
	}
}
