//go:build !windows && !darwin

package latency

import (
	"os/exec"
	"strconv"
)

func echoArgs(req EchoRequest) []string {
	return []string{"-c", strconv.Itoa(req.Count), "-W", strconv.Itoa(waitSeconds(req)), req.Host}
}

func waitSeconds(req EchoRequest) int {
	s := int(req.Wait.Seconds())
	if s < 1 {
		s = 1
	}
	return s
}

func configureEchoCmd(*exec.Cmd) {}
