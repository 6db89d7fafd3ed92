// Package statecache is a small encrypted key-value blob store with TTL,
// used for web form drafts and client-side last-seen state. One file per
// namespace (a user id), AES-GCM encrypted at rest, written atomically so a
// crash leaves either the old file or the new one.
package statecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("state entry not found")

type entry struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (e entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

type Cache struct {
	dir string
	key []byte

	mu  sync.Mutex // protects the files; one lock keeps rename ordering simple
	now func() time.Time
}

func New(dir string, key []byte) (*Cache, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("state cache key must be %d bytes, got %d", KeySize, len(key))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, key: key, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Put stores value under namespace/key. A zero ttl means no expiry.
func (c *Cache) Put(namespace, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load(namespace)
	if err != nil {
		return err
	}

	e := entry{Value: raw}
	if ttl > 0 {
		e.ExpiresAt = c.now().Add(ttl)
	}
	entries[key] = e
	return c.save(namespace, entries)
}

// Get unmarshals the stored value into out. Expired entries are dropped on
// the way out and report ErrNotFound.
func (c *Cache) Get(namespace, key string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load(namespace)
	if err != nil {
		return err
	}

	e, ok := entries[key]
	if !ok {
		return ErrNotFound
	}
	if e.expired(c.now()) {
		delete(entries, key)
		if err := c.save(namespace, entries); err != nil {
			return err
		}
		return ErrNotFound
	}
	return json.Unmarshal(e.Value, out)
}

func (c *Cache) Delete(namespace, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load(namespace)
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return c.save(namespace, entries)
}

// Sweep walks every namespace file and drops expired entries.
func (c *Cache) Sweep() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}

	now := c.now()
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".bin") {
			continue
		}
		ns := strings.TrimSuffix(f.Name(), ".bin")
		entries, err := c.load(ns)
		if err != nil {
			continue // unreadable file, leave it for inspection
		}
		dirty := false
		for k, e := range entries {
			if e.expired(now) {
				delete(entries, k)
				dirty = true
			}
		}
		if dirty {
			if err := c.save(ns, entries); err != nil {
				return err
			}
		}
	}
	return nil
}

// StartSweeper runs Sweep on a fixed interval until done is closed.
func (c *Cache) StartSweeper(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = c.Sweep()
			}
		}
	}()
}

// load reads and decrypts a namespace file; callers hold the lock. A missing
// file is an empty namespace.
func (c *Cache) load(namespace string) (map[string]entry, error) {
	blob, err := os.ReadFile(c.path(namespace))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]entry), nil
		}
		return nil, err
	}

	plain, err := decrypt(blob, c.key)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]entry)
	if err := json.Unmarshal(plain, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// save encrypts and writes a namespace file via temp + rename, so readers
// never observe a half-written blob. An emptied namespace removes the file.
func (c *Cache) save(namespace string, entries map[string]entry) error {
	path := c.path(namespace)
	if len(entries) == 0 {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	plain, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	blob, err := encrypt(plain, c.key)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (c *Cache) path(namespace string) string {
	// Namespaces are user ids (UUIDs); anything else is flattened to stay a
	// plain file name.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, namespace)
	return filepath.Join(c.dir, safe+".bin")
}
