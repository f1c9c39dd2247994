/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package reporter

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
)

// Commenter creates or updates the single comment a given identity owns on a
// pull request.
type Commenter interface {
	Upsert(ctx context.Context, pr int, identity, body string) error
}

// GitHubCommenter implements Commenter with issue comments.
type GitHubCommenter struct {
	client *github.Client
	owner  string
	repo   string
}

var _ Commenter = (*GitHubCommenter)(nil)

// NewGitHubCommenter returns a Commenter for owner/repo.
func NewGitHubCommenter(client *github.Client, owner, repo string) *GitHubCommenter {
	return &GitHubCommenter{client: client, owner: owner, repo: repo}
}

// identityMarker returns the HTML comment marker for the identity.
func identityMarker(identity string) string {
	return fmt.Sprintf("<!--%s-->", identity)
}

// Upsert prefixes body with the identity marker and writes it to the first
// comment carrying that marker, creating one when none exists.
func (c *GitHubCommenter) Upsert(ctx context.Context, pr int, identity, body string) error {
	log := clog.FromContext(ctx)

	content := identityMarker(identity) + "\n\n" + body

	existing, err := c.findExistingComment(ctx, pr, identity)
	if err != nil {
		return fmt.Errorf("failed to find existing comment: %w", err)
	}

	if existing != nil {
		if existing.GetBody() == content {
			log.Debug("Comment content unchanged, skipping update")
			return nil
		}
		if _, _, err := c.client.Issues.EditComment(ctx, c.owner, c.repo, existing.GetID(), &github.IssueComment{
			Body: &content,
		}); err != nil {
			return fmt.Errorf("failed to update comment: %w", err)
		}
		log.With("comment_id", existing.GetID()).Info("Updated preview comment")
		return nil
	}

	if _, _, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, pr, &github.IssueComment{
		Body: &content,
	}); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	log.Info("Created preview comment")
	return nil
}

// findExistingComment finds the comment owned by identity if it exists.
func (c *GitHubCommenter) findExistingComment(ctx context.Context, pr int, identity string) (*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	marker := identityMarker(identity)

	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, c.owner, c.repo, pr, opts)
		if err != nil {
			return nil, err
		}

		for _, comment := range comments {
			if strings.Contains(comment.GetBody(), marker) {
				return comment, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return nil, nil
}
