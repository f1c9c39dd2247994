/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package preview

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/samber/lo"
)

// Target identifies one pull request's preview. It is computed once per run
// and passed by value.
type Target struct {
	// EnvironmentName is unique per job and pull request.
	EnvironmentName string
	// URL is the preview host name, without a scheme.
	URL string
	// BuildingLogURL points at the check run or workflow run for the commit.
	BuildingLogURL string
}

// Host returns the first DNS label of the preview URL.
func (t Target) Host() string {
	label, _, _ := strings.Cut(t.URL, ".")
	return label
}

// EnvironmentName derives the per-PR environment name.
func EnvironmentName(job string, pr int) string {
	return fmt.Sprintf("%s-pr-%d", job, pr)
}

// Sanitize replaces every "." with "-" so an owner or repository name can be
// embedded in a single DNS label.
func Sanitize(s string) string {
	return strings.ReplaceAll(s, ".", "-")
}

// URL returns the preview host for env. A custom domain wins; otherwise the
// owner and repository are prefixed and the provider suffix is appended.
func URL(env, owner, repo, domain, suffix string) string {
	if domain != "" {
		return fmt.Sprintf("%s.%s", env, domain)
	}
	return fmt.Sprintf("%s-%s-%s.%s", Sanitize(owner), Sanitize(repo), env, suffix)
}

// BuildingLogURL returns the check run page for job when one is registered
// on the commit, and fallback otherwise. runs may be nil.
func BuildingLogURL(runs []*github.CheckRun, job, repoURL, fallback string) string {
	run, ok := lo.Find(runs, func(r *github.CheckRun) bool {
		return r != nil && r.GetName() == job
	})
	if !ok || run.GetID() == 0 {
		return fallback
	}
	return fmt.Sprintf("%s/runs/%d", strings.TrimSuffix(repoURL, "/"), run.GetID())
}
