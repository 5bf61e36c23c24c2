package compiler

import (
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// cacheMaxBytes caps the assembled-artifact cache, evicted LRU-first
// once exceeded, mirroring the teacher's bincache sizing (10 GB would be
// absurd for kilobyte-sized wasm modules; a compiler emitting short-lived
// program artifacts needs far less headroom).
const cacheMaxBytes = 256 * 1024 * 1024 // 256 MB

// cacheDir returns the assembled-output cache directory: CacheDir if
// set, MUNC_CACHE_DIR if set, else ~/.cache/munc.
func (c *Compiler) cacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	if v := os.Getenv("MUNC_CACHE_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "munc"), nil
}

// cacheKey hashes the generated WAT text, the same asset wat2wasm's
// nondeterminism-free output is keyed on.
func cacheKey(wat string) string {
	h := sha256.New()
	h.Write([]byte(wat))
	return fmt.Sprintf("%x", h.Sum(nil))[:32]
}

// cacheLookup returns the cached wasm bytes for wat, if present. A hit
// touches the file's mtime so the LRU eviction below sees recent use.
func (c *Compiler) cacheLookup(wat string) ([]byte, bool, error) {
	dir, err := c.cacheDir()
	if err != nil {
		return nil, false, nil
	}
	path := filepath.Join(dir, cacheKey(wat)+".wasm.gz")
	f, err := os.Open(path)
	if err != nil {
		return nil, false, nil
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, false, nil
	}
	defer gr.Close()

	data, err := io.ReadAll(gr)
	if err != nil {
		return nil, false, nil
	}
	now := time.Now()
	os.Chtimes(path, now, now)
	return data, true, nil
}

// cacheStore gzip-compresses wasm and stores it keyed by wat's hash,
// then runs LRU eviction if the cache has grown past cacheMaxBytes.
func (c *Compiler) cacheStore(wat string, wasm []byte) {
	dir, err := c.cacheDir()
	if err != nil {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}

	path := filepath.Join(dir, cacheKey(wat)+".wasm.gz")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}
	gw, err := gzip.NewWriterLevel(f, gzip.BestSpeed)
	if err != nil {
		f.Close()
		return
	}
	if _, err := gw.Write(wasm); err != nil {
		gw.Close()
		f.Close()
		return
	}
	gw.Close()
	f.Close()

	cacheEvict(dir)
}

// cacheEvict removes the oldest entries until the cache is back under
// cacheMaxBytes (grounded on the teacher's binCacheEvict).
func cacheEvict(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type entry struct {
		path    string
		size    int64
		modTime time.Time
	}

	var files []entry
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, entry{path: filepath.Join(dir, e.Name()), size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}

	if total <= cacheMaxBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	for _, f := range files {
		if total <= cacheMaxBytes {
			break
		}
		os.Remove(f.path)
		total -= f.size
	}
}
