// Package controller runs a service's start/stop/restart shell commands
// with a dry-run mode and a bounded timeout per action.
package controller

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/loykin/svcwatchd/internal/envmerge"
	"github.com/loykin/svcwatchd/internal/spec"
)

// ActionTimeout bounds every start/stop/restart command.
const ActionTimeout = 60 * time.Second

// Result is the outcome of running one action command.
type Result struct {
	Ran      bool
	ExitCode int
	Output   string
	Err      error
}

// Controller runs a service's configured shell commands. It holds no
// per-service state: every call is independent.
type Controller struct {
	DryRun bool
}

// New returns a Controller. dryRun suppresses command execution and
// instead reports what would have run, for --dry-run CLI invocations.
func New(dryRun bool) *Controller {
	return &Controller{DryRun: dryRun}
}

// Start runs svc.StartCmd, or svc.RestartCmd if no start command is
// configured (some services only define restart).
func (c *Controller) Start(ctx context.Context, svc spec.ServiceSpec) Result {
	cmd := svc.StartCmd
	if cmd == "" {
		cmd = svc.RestartCmd
	}
	return c.run(ctx, svc, cmd)
}

// Stop runs svc.StopCmd. If none is configured, Stop is a no-op success.
func (c *Controller) Stop(ctx context.Context, svc spec.ServiceSpec) Result {
	if svc.StopCmd == "" {
		return Result{Ran: false}
	}
	return c.run(ctx, svc, svc.StopCmd)
}

// Restart runs svc.RestartCmd, falling back to stop-then-start when no
// explicit restart command is configured.
func (c *Controller) Restart(ctx context.Context, svc spec.ServiceSpec) Result {
	if svc.RestartCmd != "" {
		return c.run(ctx, svc, svc.RestartCmd)
	}
	stopRes := c.Stop(ctx, svc)
	startRes := c.Start(ctx, svc)
	if stopRes.Err != nil {
		return stopRes
	}
	return startRes
}

func (c *Controller) run(ctx context.Context, svc spec.ServiceSpec, cmdStr string) Result {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return Result{Ran: false, Err: fmt.Errorf("no command configured")}
	}
	if c.DryRun {
		return Result{Ran: false, Output: "DRY RUN: " + cmdStr}
	}

	runCtx, cancel := context.WithTimeout(ctx, ActionTimeout)
	defer cancel()

	cmd := buildCommand(runCtx, cmdStr)
	if svc.WorkingDir != "" {
		cmd.Dir = svc.WorkingDir
	}
	cmd.Env = envmerge.Merge(os.Environ(), svc.Env)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	res := Result{Ran: true, Output: out.String(), Err: err}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
	}
	return res
}

// buildCommand constructs an *exec.Cmd that runs cmdStr through the
// host shell: an already-explicit shell invocation is honored as
// written, and every other command runs under /bin/sh -c.
func buildCommand(ctx context.Context, cmdStr string) *exec.Cmd {
	if shell, after, ok := parseExplicitShell(cmdStr); ok {
		return exec.CommandContext(ctx, shell, "-c", after)
	}
	return exec.CommandContext(ctx, "/bin/sh", "-c", cmdStr)
}

func parseExplicitShell(cmdStr string) (string, string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return strings.Fields(p)[0], after, true
		}
	}
	return "", "", false
}
