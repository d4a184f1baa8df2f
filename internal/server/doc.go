// Package server wires the agent together and serves the management API on
// the configured listen address (loopback-only by default).
package server
