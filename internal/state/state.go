// Package state remembers where each book was left, keyed by a hash of the
// book's leading bytes so renamed or re-downloaded copies resume too.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	stateFileName = "reading_positions.json"
	hashBytes     = 8192 // First 8KB for content hash
)

// Position is the saved reading position of one book.
type Position struct {
	Locator   string    `json:"locator"`
	Fraction  float64   `json:"fraction"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists positions as JSON in a single file.
type Store struct {
	path string
	data map[string]Position
	mu   sync.RWMutex
}

// NewStore creates or loads state from dir, or from DefaultDir when dir is
// empty. An unreadable state file starts the store empty.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	store := &Store{
		path: filepath.Join(dir, stateFileName),
		data: make(map[string]Position),
	}
	if err := store.load(); err != nil {
		store.data = make(map[string]Position)
	}
	return store, nil
}

// DefaultDir returns XDG_STATE_HOME/leaf or ~/.local/state/leaf
func DefaultDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "leaf")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "leaf")
}

// ComputeHash hashes the first 8KB of a file.
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return HashBytes(buf[:n]), nil
}

// HashBytes hashes the first 8KB of data, matching ComputeHash.
func HashBytes(data []byte) string {
	if len(data) > hashBytes {
		data = data[:hashBytes]
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// BookID derives a positive numeric book id from a content hash, for
// bookmark stores that key books by number.
func BookID(hash string) int64 {
	if len(hash) > 15 {
		hash = hash[:15]
	}
	id, err := strconv.ParseInt(hash, 16, 64)
	if err != nil || id == 0 {
		return 1
	}
	return id
}

// Get returns the saved position for hash.
func (s *Store) Get(hash string) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[hash]
	return p, ok
}

// Set saves the position for hash.
func (s *Store) Set(hash string, p Position) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash] = p
	return s.save()
}

// Clear removes the saved position for hash.
func (s *Store) Clear(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hash)
	return s.save()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
