//go:build !unix

package command

import "os/exec"

// killGroupOnCancel keeps the default cancel, which kills only the direct
// child; WaitDelay still bounds the wait for its descendants.
func killGroupOnCancel(cmd *exec.Cmd) {}
