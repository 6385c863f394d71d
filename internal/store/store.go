package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketPages = []byte("pages")

// entry is the stored form of one page payload
type entry struct {
	SavedAt int64  `json:"saved_at"`
	Payload []byte `json:"payload"`
}

// PageStore implements domain.PageStore using BoltDB.
type PageStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string]entry

	now func() time.Time
}

// NewPageStore opens (or creates) the page database for one source under
// baseCacheDir. An empty baseCacheDir keeps pages in memory only.
func NewPageStore(baseCacheDir, sourceID string) (*PageStore, error) {
	s := &PageStore{cache: make(map[string]entry), now: time.Now}
	if baseCacheDir == "" {
		return s, nil
	}

	dir := baseCacheDir
	if sourceID != "" {
		dir = filepath.Join(baseCacheDir, HashSourceID(sourceID))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "pages.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

// HashSourceID turns a source URL or path into a short directory-safe name
func HashSourceID(id string) string {
	normalized := strings.TrimRight(strings.ToLower(id), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Close releases the database
func (s *PageStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetPage returns the payload stored under key if it is younger than maxAge.
// A zero maxAge accepts entries of any age.
func (s *PageStore) GetPage(key string, maxAge time.Duration) ([]byte, bool) {
	e, ok := s.get(key)
	if !ok {
		return nil, false
	}
	if maxAge > 0 && s.now().Sub(time.Unix(0, e.SavedAt)) > maxAge {
		return nil, false
	}
	return e.Payload, true
}

// SavePage stores payload under key, stamped with the current time
func (s *PageStore) SavePage(key string, payload []byte) error {
	e := entry{SavedAt: s.now().UnixNano(), Payload: payload}

	s.mu.Lock()
	s.cache[key] = e
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPages).Put([]byte(key), data)
	})
}

// Invalidate drops every page whose key starts with prefix. An empty
// prefix clears the store.
func (s *PageStore) Invalidate(prefix string) {
	s.mu.Lock()
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	// Collect first; deleting while iterating a bolt cursor skips keys
	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPages)
		if b == nil {
			return nil
		}
		var keys [][]byte
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PageStore) get(key string) (entry, bool) {
	// Check memory cache first
	s.mu.RLock()
	if e, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return e, true
	}
	s.mu.RUnlock()

	if s.db == nil {
		return entry{}, false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPages)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[key] = e
	s.mu.Unlock()

	return e, true
}
