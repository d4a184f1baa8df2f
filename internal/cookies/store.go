package cookies

import (
	"net/url"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/restgate/agent/internal/logging"
	"github.com/restgate/agent/internal/shared/paths"
	"github.com/restgate/agent/internal/store"
	"github.com/restgate/agent/internal/types"
)

// jarKeyUnsafe matches every character outside the storage-key alphabet.
var jarKeyUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeJarID maps a caller-supplied jar id onto the safe storage-key
// alphabet. An empty id maps to "default".
func SanitizeJarID(id string) string {
	key := jarKeyUnsafe.ReplaceAllString(id, "_")
	if key == "" {
		return "default"
	}
	return key
}

// Store persists cookies as one unit per jar id. Unknown or corrupt storage
// loads as an empty jar, never an error.
type Store struct {
	mu     sync.Mutex
	layout paths.Layout
	log    *logging.Logger
}

// NewStore creates a jar store over the resolved data layout.
func NewStore(layout paths.Layout, log *logging.Logger) *Store {
	return &Store{layout: layout, log: log}
}

// Load returns the records of a jar. Unknown ids load empty.
func (s *Store) Load(jarID string) []types.CookieRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(jarID)
}

func (s *Store) loadLocked(jarID string) []types.CookieRecord {
	path := s.layout.JarFile(SanitizeJarID(jarID))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var records []types.CookieRecord
	if err := sonic.Unmarshal(data, &records); err != nil {
		// Corrupt jars are treated as empty; log the discarded content
		// so the reset is not invisible.
		s.log.Warn("cookie jar corrupt, loading empty",
			zap.String("jar", SanitizeJarID(jarID)),
			zap.Int("discardedBytes", len(data)),
			zap.ByteString("discarded", data),
			zap.Error(err))
		return nil
	}
	return records
}

// Save persists the records of a jar.
func (s *Store) Save(jarID string, records []types.CookieRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(jarID, records)
}

func (s *Store) saveLocked(jarID string, records []types.CookieRecord) error {
	if records == nil {
		records = []types.CookieRecord{}
	}
	data, err := sonic.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return store.WriteFileAtomic(s.layout.JarFile(SanitizeJarID(jarID)), data)
}

// Delete removes a jar entirely. Deleting an unknown jar is not an error.
func (s *Store) Delete(jarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.layout.JarFile(SanitizeJarID(jarID)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ApplySetCookie sequentially applies each directive against the jar,
// ignoring individual parse failures, then persists once. Returns the jar
// content after the update.
func (s *Store) ApplySetCookie(jarID string, requestURL *url.URL, directives []string) ([]types.CookieRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadLocked(jarID)
	now := time.Now()
	for _, directive := range directives {
		rec, err := ParseSetCookie(directive, requestURL, now)
		if err != nil {
			s.log.Debug("ignoring unparseable Set-Cookie",
				zap.String("jar", SanitizeJarID(jarID)), zap.Error(err))
			continue
		}
		records = upsert(records, rec)
	}

	if err := s.saveLocked(jarID, records); err != nil {
		return nil, err
	}
	return records, nil
}

// upsert replaces the record sharing name, domain and path, or appends.
func upsert(records []types.CookieRecord, rec types.CookieRecord) []types.CookieRecord {
	for i, existing := range records {
		if existing.Name == rec.Name && existing.Domain == rec.Domain && existing.Path == rec.Path {
			records[i] = rec
			return records
		}
	}
	return append(records, rec)
}
