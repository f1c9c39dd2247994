/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ghclient builds instrumented GitHub API clients for a run.
package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"

	"github.com/chainguard-dev/pr-preview/pkg/httpmetrics"
)

// DefaultAPIURL is the public GitHub REST API.
const DefaultAPIURL = "https://api.github.com"

// NewTokenClient returns a client authenticated with a static token, such
// as the workflow's GITHUB_TOKEN.
func NewTokenClient(ctx context.Context, token, apiURL string) (*github.Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github token must not be empty")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	// Create OAuth2 client with the token source
	oauthClient := oauth2.NewClient(ctx, ts)

	clog.FromContext(ctx).Debug("Created GitHub client from token")
	return newClient(oauthClient.Transport, apiURL)
}

// NewAppClient returns a client authenticated as a GitHub App installation.
// Comments then appear under the App's identity instead of the workflow's.
func NewAppClient(ctx context.Context, appID, installationID int64, privateKey []byte, apiURL string) (*github.Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("creating installation transport: %w", err)
	}
	if isEnterprise(apiURL) {
		itr.BaseURL = strings.TrimSuffix(apiURL, "/")
	}

	clog.FromContext(ctx).With(
		"app_id", appID,
		"installation_id", installationID,
	).Debug("Created GitHub client for App installation")
	return newClient(itr, apiURL)
}

func newClient(rt http.RoundTripper, apiURL string) (*github.Client, error) {
	// Wrap the transport with metrics instrumentation for GitHub API monitoring
	client := github.NewClient(&http.Client{
		Transport: httpmetrics.WrapTransport(rt),
	})
	if !isEnterprise(apiURL) {
		return client, nil
	}
	base := strings.TrimSuffix(apiURL, "/") + "/"
	client, err := client.WithEnterpriseURLs(base, base)
	if err != nil {
		return nil, fmt.Errorf("configuring enterprise URL %s: %w", apiURL, err)
	}
	return client, nil
}

func isEnterprise(apiURL string) bool {
	return apiURL != "" && strings.TrimSuffix(apiURL, "/") != DefaultAPIURL
}
