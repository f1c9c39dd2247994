// Copyright 2025 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package httpmetrics

import (
	"regexp"
	"strings"
)

type pathPattern struct {
	pattern *regexp.Regexp
	bucket  string
}

// enterprisePrefix is where GitHub Enterprise Server mounts the REST API.
const enterprisePrefix = "/api/v3"

// GitHub API endpoint patterns for the calls previews make.
// Based on GitHub REST API documentation: https://docs.github.com/en/rest
var githubAPIPatterns = []pathPattern{{
	// https://docs.github.com/en/rest/issues/comments#list-issue-comments
	// https://docs.github.com/en/rest/issues/comments#create-an-issue-comment
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/\d+/comments$`),
	bucket:  "/repos/{org}/{repo}/issues/{number}/comments",
}, {
	// https://docs.github.com/en/rest/issues/comments#update-an-issue-comment
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/comments/\d+$`),
	bucket:  "/repos/{org}/{repo}/issues/comments/{id}",
}, {
	// https://docs.github.com/en/rest/checks/runs#list-check-runs-for-a-git-reference
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/commits/[^/]+/check-runs$`),
	bucket:  "/repos/{org}/{repo}/commits/{ref}/check-runs",
}, {
	// https://docs.github.com/en/rest/commits/commits#list-pull-requests-associated-with-a-commit
	pattern: regexp.MustCompile(`^/repos/[^/]+/[^/]+/commits/[^/]+/pulls$`),
	bucket:  "/repos/{org}/{repo}/commits/{sha}/pulls",
}, {
	// https://docs.github.com/en/rest/apps/apps#create-an-installation-access-token-for-an-app
	pattern: regexp.MustCompile(`^/app/installations/\d+/access_tokens$`),
	bucket:  "/app/installations/{id}/access_tokens",
}}

// bucketizePath maps a request path onto a bounded label. Paths outside the
// known GitHub endpoints map to "".
func bucketizePath(path string) string {
	path = strings.TrimPrefix(path, enterprisePrefix)
	for _, p := range githubAPIPatterns {
		if p.pattern.MatchString(path) {
			return p.bucket
		}
	}
	return ""
}
