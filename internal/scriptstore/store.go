package scriptstore

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codalotl/linediff/internal/applypatch"
	"github.com/codalotl/linediff/internal/diff"
	"github.com/codalotl/linediff/internal/simplelogger"
)

const (
	namespace  = "scripts-v1"
	recordKind = "linediff-script-v1"

	// minPrefixLen is the shortest key prefix Resolve accepts.
	minPrefixLen = 4
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("script not found")

// Key identifies a stored script. It is the lowercase hex sha256 over the old and new text hashes.
type Key string

// Short returns the first 12 characters of k, for display.
func (k Key) Short() string {
	if len(k) <= 12 {
		return string(k)
	}
	return string(k[:12])
}

// KeyFor returns the key a script from oldText to newText is stored under.
func KeyFor(oldText, newText string) Key {
	return keyForHashes(applypatch.HashText(oldText), applypatch.HashText(newText))
}

func keyForHashes(oldHash, newHash string) Key {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, s := range []string{oldHash, newHash} {
		binary.LittleEndian.PutUint64(buf, uint64(len(s)))
		_, _ = h.Write(buf)
		_, _ = h.Write([]byte(s))
	}
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// Stats counts the records of a stored script by op.
type Stats struct {
	Equal    int `json:"equal"`
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
}

// Record is one stored script.
type Record struct {
	Kind          string `json:"kind"`
	Script        string `json:"script"` // Serialized with applypatch.FormatScript, including hashes.
	OldHash       string `json:"old_hash"`
	NewHash       string `json:"new_hash"`
	Stats         Stats  `json:"stats"`
	UnixTimestamp int64  `json:"unix_timestamp"` // Seconds since Unix epoch when first stored.
}

// Store is a filesystem-backed script store rooted at AbsRoot.
type Store struct {
	AbsRoot string
}

// Put diffs oldText against newText, stores the serialized script, and returns its key. If a record for the key already exists, Put leaves it in place.
func (st *Store) Put(oldText, newText string) (Key, error) {
	if err := st.check(); err != nil {
		return "", err
	}
	s := diff.Text(oldText, newText)
	text, err := applypatch.FormatScript(s, applypatch.FormatOptions{})
	if err != nil {
		return "", err
	}

	oldHash, newHash := applypatch.HashText(oldText), applypatch.HashText(newText)
	key := keyForHashes(oldHash, newHash)

	finalPath := st.recordPath(key)
	if _, found, err := st.read(finalPath); err != nil {
		return "", err
	} else if found {
		return key, nil
	}

	stats := s.Stats()
	rec := Record{
		Kind:          recordKind,
		Script:        text,
		OldHash:       oldHash,
		NewHash:       newHash,
		Stats:         Stats{Equal: stats.Equal, Deleted: stats.Deleted, Inserted: stats.Inserted},
		UnixTimestamp: time.Now().Unix(),
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	out = append(out, '\n')

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(finalPath), "tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return "", err
	}
	if _, err := tmp.Write(out); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		return "", err
	}
	simplelogger.Log("scriptstore: put %s (+%d -%d =%d)", key.Short(), stats.Inserted, stats.Deleted, stats.Equal)
	return key, nil
}

// Get loads the record for key. It returns whether the record was found; a missing record is not, by itself, an error.
func (st *Store) Get(key Key) (Record, bool, error) {
	if err := st.check(); err != nil {
		return Record{}, false, err
	}
	if err := validateKey(key); err != nil {
		return Record{}, false, err
	}
	return st.read(st.recordPath(key))
}

// Apply replays the script stored under key against oldText and returns the new text.
//
// If oldText is not the text the script was computed from, Apply returns an error for which diff.IsScriptMismatch is true. If no record exists, the error
// wraps ErrNotFound.
func (st *Store) Apply(key Key, oldText string) (string, error) {
	rec, found, err := st.Get(key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%s: %w", key.Short(), ErrNotFound)
	}
	f, err := applypatch.ParseScript(rec.Script)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key.Short(), err)
	}
	return applypatch.ApplyScript(oldText, f)
}

// List returns the keys of all stored records, sorted.
func (st *Store) List() ([]Key, error) {
	if err := st.check(); err != nil {
		return nil, err
	}
	base := filepath.Join(st.AbsRoot, namespace)
	shards, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var keys []Key
	for _, shard := range shards {
		if !shard.IsDir() || len(shard.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(base, shard.Name()))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			key := Key(shard.Name() + e.Name())
			if validateKey(key) != nil {
				// Temp files and strays.
				continue
			}
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// Resolve expands a key prefix of at least 4 hex characters to the unique stored key that starts with it.
func (st *Store) Resolve(prefix string) (Key, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < minPrefixLen {
		return "", fmt.Errorf("key prefix %q is too short (need at least %d characters)", prefix, minPrefixLen)
	}
	keys, err := st.List()
	if err != nil {
		return "", err
	}
	var matches []Key
	for _, k := range keys {
		if strings.HasPrefix(string(k), prefix) {
			matches = append(matches, k)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", prefix, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("key prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func (st *Store) check() error {
	if st.AbsRoot == "" {
		return errors.New("Store.AbsRoot is empty")
	}
	if !filepath.IsAbs(st.AbsRoot) {
		return fmt.Errorf("Store.AbsRoot must be absolute: %q", st.AbsRoot)
	}
	return nil
}

func (st *Store) read(path string) (Record, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, false, fmt.Errorf("%s: %w", path, err)
	}
	if rec.Kind != recordKind {
		return Record{}, false, fmt.Errorf("%s: unknown record kind %q", path, rec.Kind)
	}
	return rec, true, nil
}

func (st *Store) recordPath(key Key) string {
	return filepath.Join(st.AbsRoot, namespace, string(key[:2]), string(key[2:]))
}

func validateKey(key Key) error {
	if len(key) != 2*sha256.Size {
		return fmt.Errorf("key %q must be %d hex characters", key, 2*sha256.Size)
	}
	for _, c := range key {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return fmt.Errorf("key %q must be lowercase hex", key)
		}
	}
	return nil
}
