//go:build windows

package latency

import (
	"os/exec"
	"strconv"
	"syscall"
)

// createNoWindow keeps ping from flashing a console when run from a GUI process.
const createNoWindow = 0x08000000

func echoArgs(req EchoRequest) []string {
	return []string{"-n", strconv.Itoa(req.Count), "-w", strconv.FormatInt(req.Wait.Milliseconds(), 10), req.Host}
}

func configureEchoCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}
