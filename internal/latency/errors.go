package latency

import (
	"errors"
	"fmt"
)

// Kind classifies why a measurement failed. A Kind is itself an error so
// callers can match with errors.Is(err, latency.KindTimeout).
type Kind string

const (
	KindNetworkUnavailable Kind = "NETWORK_UNAVAILABLE"
	KindAddressUnavailable Kind = "ADDRESS_UNAVAILABLE"
	KindConnectionRefused  Kind = "CONNECTION_REFUSED"
	KindExecutionFailed    Kind = "EXECUTION_FAILED"
	KindTimeout            Kind = "TIMEOUT"
	KindHostUnresolved     Kind = "HOST_UNRESOLVED"
	KindProbeError         Kind = "PROBE_ERROR"
)

func (k Kind) Error() string { return string(k) }

var kindMessages = map[Kind]string{
	KindNetworkUnavailable: "network connection unavailable",
	KindAddressUnavailable: "could not resolve address",
	KindConnectionRefused:  "could not establish TCP connection",
	KindExecutionFailed:    "failed to execute ping command",
	KindTimeout:            "server did not respond to ping requests (timeout)",
	KindHostUnresolved:     "could not resolve server hostname",
	KindProbeError:         "ping command failed",
}

// Error is the failure returned by every probe in this package.
type Error struct {
	Kind   Kind
	Host   string
	Detail string
	Err    error
}

func newError(kind Kind, host, detail string, err error) *Error {
	return &Error{Kind: kind, Host: host, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	msg := kindMessages[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Host != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Host)
	}
	switch {
	case e.Detail != "":
		return msg + ": " + e.Detail
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind carried by err, or "" when err is not a probe error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
