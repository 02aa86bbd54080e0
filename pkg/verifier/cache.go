/*
Copyright The Smol Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"smol.sh/smol/internal/fileutil"
)

// CacheFile is the name of the outcome cache inside the download directory.
const CacheFile = "checksums.json"

const cacheVersion = 1

// Entry is a remembered verification outcome. It is valid while the file
// keeps the recorded size and modification time.
type Entry struct {
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"modTime"`
	Algorithm string    `json:"algorithm"`
	Digest    string    `json:"digest"`
	Expected  string    `json:"expected,omitempty"`
	Source    string    `json:"source,omitempty"`
	Verified  bool      `json:"verified"`
}

type cacheFile struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// Cache persists verification outcomes across runs, keyed by absolute path.
//
// Writes merge with what other processes stored in the meantime and are
// serialized with a lock file next to the cache.
type Cache struct {
	path    string
	mu      sync.Mutex
	entries map[string]Entry
	removed map[string]bool
}

// LoadCache reads the cache at path. A missing file is an empty cache; a
// corrupt one is discarded.
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path, removed: map[string]bool{}}
	entries, err := c.read()
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

func (c *Cache) read() (map[string]Entry, error) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Entry{}, nil
		}
		return nil, errors.Wrapf(err, "unable to read checksum cache %s", c.path)
	}
	var f cacheFile
	if err := json.Unmarshal(b, &f); err != nil || f.Version != cacheVersion || f.Entries == nil {
		// The cache only saves work; an unreadable one is rebuilt.
		return map[string]Entry{}, nil
	}
	return f.Entries, nil
}

// Lookup returns the entry for path if the file on disk still matches it.
func (c *Cache) Lookup(path string, fi os.FileInfo) (Entry, bool) {
	key, err := filepath.Abs(path)
	if err != nil {
		return Entry{}, false
	}
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok || e.Size != fi.Size() || !e.ModTime.Equal(fi.ModTime()) {
		return Entry{}, false
	}
	return e, true
}

// Store records e for path and persists the cache.
func (c *Cache) Store(ctx context.Context, path string, e Entry) error {
	key, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	fileLock := flock.New(lockPath(c.path))
	lockCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	locked, err := fileLock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err == nil && locked {
		defer fileLock.Unlock()
	}
	if err != nil {
		return errors.Wrap(err, "unable to lock checksum cache")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	onDisk, err := c.read()
	if err != nil {
		return err
	}
	for k, v := range onDisk {
		if _, ok := c.entries[k]; !ok && !c.removed[k] {
			c.entries[k] = v
		}
	}
	c.entries[key] = e
	delete(c.removed, key)

	b, err := json.MarshalIndent(cacheFile{Version: cacheVersion, Entries: c.entries}, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(c.path, bytes.NewReader(b), 0644)
}

// Forget drops the entry of path from memory. The next Store persists the removal.
func (c *Cache) Forget(path string) {
	key, err := filepath.Abs(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.removed[key] = true
}

func lockPath(path string) string {
	if ext := filepath.Ext(path); len(ext) > 0 && len(ext) < len(path) {
		return strings.TrimSuffix(path, ext) + ".lock"
	}
	return path + ".lock"
}
