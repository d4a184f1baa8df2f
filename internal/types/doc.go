// Package types defines the data model shared across the agent: persisted
// settings, proxy decisions, cookie records and the send request/result
// envelope exchanged with the client.
package types
