/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Cmd describes a single external process invocation.
type Cmd struct {
	// Name is the executable, resolved against PATH.
	Name string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds overrides layered on top of the runner's base environment.
	Env map[string]string

	// SuccessMarker, when set, must appear in stdout whenever stdout is
	// non-empty. Some tools exit 0 on partial failure.
	SuccessMarker string

	// Redact lists values that are replaced with *** when the command line
	// or its captured output is logged or reported.
	Redact []string
}

// Shell wraps a command line so that it is interpreted by sh.
func Shell(line, dir string) Cmd {
	return Cmd{
		Name: "sh",
		Args: []string{"-c", line},
		Dir:  dir,
	}
}

// String returns the command line with redacted values masked.
func (c Cmd) String() string {
	return c.redact(strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " ")))
}

func (c Cmd) redact(s string) string {
	for _, r := range c.Redact {
		if r != "" {
			s = strings.ReplaceAll(s, r, "***")
		}
	}
	return s
}

// Executor runs commands. *Runner is the production implementation.
type Executor interface {
	Run(ctx context.Context, c Cmd) error
}

// Error is returned when a command exits non-zero or its output lacks the
// required success marker.
type Error struct {
	Command  string
	Output   string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("command %q failed (exit %d): %v", e.Command, e.ExitCode, e.Err)
	case e.Output != "":
		return fmt.Sprintf("command %q did not report success: %s", e.Command, strings.TrimSpace(e.Output))
	default:
		return fmt.Sprintf("command %q failed", e.Command)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Runner executes commands, streaming their output while capturing stdout.
type Runner struct {
	// Stdout and Stderr receive the live process output. Both default to
	// the process's own streams.
	Stdout io.Writer
	Stderr io.Writer

	// BaseEnv is the environment every command starts from. Nil means
	// os.Environ().
	BaseEnv []string
}

var _ Executor = (*Runner)(nil)

// Run starts the command and waits for it. There is no timeout and the
// process is not tied to ctx; ctx only carries the logger.
func (r *Runner) Run(ctx context.Context, c Cmd) error {
	log := clog.FromContext(ctx)
	log.Infof("RUN: %s", c)

	cmd := exec.Command(c.Name, c.Args...) //nolint:gosec // commands come from action inputs
	cmd.Dir = c.Dir
	cmd.Env = r.environ(c.Env)

	var captured bytes.Buffer
	cmd.Stdout = io.MultiWriter(&captured, r.stdout())
	cmd.Stderr = r.stderr()

	err := cmd.Run()
	output := captured.String()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &Error{Command: c.String(), Output: c.redact(output), ExitCode: code, Err: err}
	}

	if c.SuccessMarker != "" && output != "" && !strings.Contains(output, c.SuccessMarker) {
		log.Debugf("output of %q lacks success marker %q", c.Name, c.SuccessMarker)
		return &Error{Command: c.String(), Output: c.redact(output)}
	}
	return nil
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

func (r *Runner) environ(overrides map[string]string) []string {
	base := r.BaseEnv
	if base == nil {
		base = os.Environ()
	}
	if len(overrides) == 0 {
		return base
	}

	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[k]; ok {
			continue
		}
		env = append(env, kv)
	}

	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
