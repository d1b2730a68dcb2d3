//go:build windows

package main

import "os/exec"

func configureDaemonAttrs(cmd *exec.Cmd) {}
