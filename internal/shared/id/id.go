// Package id provides centralized token and identifier generation for the
// agent.
//
// Three kinds of material come out of here:
//   - Pair codes: short, human-readable, consumable exactly once
//   - Auth tokens: long-lived bearer tokens handed out on pairing
//   - Send ids: ULIDs correlating one outbound dispatch across logs
package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SendID identifies one outbound dispatch.
type SendID string

func (id SendID) String() string { return string(id) }

// SendPrefix makes send ids recognizable in logs.
const SendPrefix = "snd"

// pairCodeAlphabet avoids 0/O, 1/I/L and lowercase so codes survive being
// read aloud or retyped.
const pairCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const pairCodeLength = 8

// NewPairCode generates a short one-time pairing code.
func NewPairCode() string {
	buf := make([]byte, pairCodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("id: entropy source unavailable: " + err.Error())
	}
	var b strings.Builder
	b.Grow(pairCodeLength)
	for _, c := range buf {
		b.WriteByte(pairCodeAlphabet[int(c)%len(pairCodeAlphabet)])
	}
	return b.String()
}

// NewAuthToken generates a long-lived bearer token: a UUID fused with 16
// extra random bytes, 64 characters total.
func NewAuthToken() string {
	extra := make([]byte, 16)
	if _, err := rand.Read(extra); err != nil {
		panic("id: entropy source unavailable: " + err.Error())
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + hex.EncodeToString(extra)
}

// NewSendID generates a prefixed ULID for log correlation.
func NewSendID() SendID {
	return SendID(SendPrefix + "_" + ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
}
