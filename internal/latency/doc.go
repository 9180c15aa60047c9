// Package latency measures round-trip latency to relay hosts.
//
// A Measurer first checks that the local network is up, then times a TCP
// handshake to the relay port and, when that fails, falls back to the
// platform ping utility whose loosely formatted output is mined for a
// millisecond value by an ordered cascade of extraction strategies.
package latency
