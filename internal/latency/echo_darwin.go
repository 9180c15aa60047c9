//go:build darwin

package latency

import (
	"os/exec"
	"strconv"
)

// BSD ping takes -W in milliseconds.
func echoArgs(req EchoRequest) []string {
	return []string{"-c", strconv.Itoa(req.Count), "-W", strconv.FormatInt(req.Wait.Milliseconds(), 10), req.Host}
}

func configureEchoCmd(*exec.Cmd) {}
