// Package store persists the agent's settings document: the bearer token
// plus the agent configuration. Documents are merged field-by-field over
// explicit defaults on load, so older or partially written files never
// produce missing fields. Corrupt or unreadable storage is treated as
// absent: the discarded content is logged, defaults are substituted and
// immediately re-persisted.
package store

import (
	"os"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/restgate/agent/internal/logging"
	"github.com/restgate/agent/internal/types"
)

// Store owns the settings unit. Writes are serialized by an in-process lock
// and performed as write-to-temp-then-rename.
type Store struct {
	mu   sync.Mutex
	path string
	log  *logging.Logger
	doc  types.Settings
}

// Open loads the settings unit at path, creating it with defaults when it is
// absent or unreadable.
func Open(path string, log *logging.Logger) *Store {
	s := &Store{path: path, log: log}
	s.doc = s.loadLocked()
	return s
}

// DefaultConfig returns the hard-coded agent configuration. Every nested
// section is defaulted explicitly; merge functions below rely on that.
func DefaultConfig() types.AgentConfig {
	return types.AgentConfig{
		ProxyMode:   types.ProxyModeOff,
		CustomProxy: defaultCustomProxy(),
		ProxyFor:    defaultProxyFor(),
		NoProxy:     []string{},
		TLS:         defaultTLS(),
	}
}

func defaultCustomProxy() types.CustomProxy {
	return types.CustomProxy{Protocol: "http"}
}

func defaultProxyFor() types.ProxyFor {
	return types.ProxyFor{HTTP: true, HTTPS: true}
}

func defaultTLS() types.TLSConfig {
	return types.TLSConfig{RejectUnauthorized: true}
}

// Config returns the current agent configuration.
func (s *Store) Config() types.AgentConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Config
}

// Token returns the persisted bearer token, empty until the first successful
// pairing exchange.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Token
}

// SetToken persists the bearer token.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Token = token
	return s.persistLocked()
}

// UpdateConfig merges a partial update over the current configuration,
// per-field for the nested sections, persists and returns the merged result.
func (s *Store) UpdateConfig(patch types.AgentConfigPatch) (types.AgentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Config = mergeConfig(s.doc.Config, patch)
	if err := s.persistLocked(); err != nil {
		return types.AgentConfig{}, err
	}
	return s.doc.Config, nil
}

// loadLocked reads the persisted document and merges it over defaults. Any
// failure resets the unit to defaults after logging what was discarded.
func (s *Store) loadLocked() types.Settings {
	doc := types.Settings{Config: DefaultConfig()}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("settings unreadable, resetting to defaults",
				zap.String("path", s.path), zap.Error(err))
		}
		s.doc = doc
		if perr := s.persistLocked(); perr != nil {
			s.log.Warn("failed to persist default settings", zap.Error(perr))
		}
		return doc
	}

	var patch types.SettingsPatch
	if err := sonic.Unmarshal(data, &patch); err != nil {
		// Corruption is otherwise invisible to the operator, so the
		// discarded content is logged before being overwritten.
		s.log.Warn("settings corrupt, resetting to defaults",
			zap.String("path", s.path),
			zap.Int("discardedBytes", len(data)),
			zap.ByteString("discarded", data),
			zap.Error(err))
		s.doc = doc
		if perr := s.persistLocked(); perr != nil {
			s.log.Warn("failed to persist default settings", zap.Error(perr))
		}
		return doc
	}

	if patch.Token != nil {
		doc.Token = *patch.Token
	}
	if patch.Config != nil {
		doc.Config = mergeConfig(doc.Config, *patch.Config)
	}
	return doc
}

func (s *Store) persistLocked() error {
	data, err := sonic.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.path, data)
}
