// Package pairing implements the pairing handshake: a short one-time code
// issued at start-up is exchanged for the long-lived bearer token that gates
// the management surface.
package pairing

import (
	"crypto/subtle"
	"errors"
	"sync"

	"github.com/restgate/agent/internal/logging"
	"github.com/restgate/agent/internal/shared/id"
	"github.com/restgate/agent/internal/store"
)

// ErrAuth is returned for a bad pairing code or a bad/missing bearer token.
var ErrAuth = errors.New("pairing: authentication failed")

// Manager owns the mutable pairing state. Compare-then-rotate in Exchange is
// atomic under mu, so a pair code can never be replayed after its first
// success.
type Manager struct {
	mu    sync.Mutex
	code  string
	store *store.Store
	log   *logging.Logger
}

// New issues a fresh pair code and returns the manager.
func New(st *store.Store, log *logging.Logger) *Manager {
	return &Manager{
		code:  id.NewPairCode(),
		store: st,
		log:   log,
	}
}

// Code returns the current pair code. Reading it has no side effect.
func (m *Manager) Code() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code
}

// Paired reports whether a bearer token has been persisted.
func (m *Manager) Paired() bool {
	return m.store.Token() != ""
}

// Exchange consumes a pair code. On match it lazily creates (or returns) the
// persisted token and rotates the code; on mismatch it fails with ErrAuth.
func (m *Manager) Exchange(code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if subtle.ConstantTimeCompare([]byte(code), []byte(m.code)) != 1 {
		return "", ErrAuth
	}

	token := m.store.Token()
	if token == "" {
		token = id.NewAuthToken()
		if err := m.store.SetToken(token); err != nil {
			return "", err
		}
	}

	m.code = id.NewPairCode()
	m.log.Info("pairing exchange succeeded, code rotated")
	return token, nil
}

// RequireToken fails with ErrAuth when no token is persisted yet or the
// supplied value mismatches.
func (m *Manager) RequireToken(supplied string) error {
	token := m.store.Token()
	if token == "" {
		return ErrAuth
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
		return ErrAuth
	}
	return nil
}
