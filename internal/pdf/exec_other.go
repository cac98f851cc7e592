//go:build !windows

package pdf

import "os/exec"

func detachConsole(cmd *exec.Cmd) {}
