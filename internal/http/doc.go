// Package http implements the management API handlers: health, pairing,
// configuration, cookie jars and outbound dispatch. Every response is a JSON
// envelope with an "ok" flag; transport failures of an outbound call are
// reported inside the envelope, never as a management-level error.
package http
