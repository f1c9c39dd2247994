/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package provider holds what the hosting targets under it share.
package provider

import "fmt"

// Credentials authenticate a single publish or teardown call.
type Credentials struct {
	// AccountID is required by targets that scope deployments to an account.
	AccountID string
	Token     string
}

// MissingInputError reports a configuration input a target needs.
type MissingInputError struct {
	Target string
	Input  string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("target %s requires the %s input", e.Target, e.Input)
}
