// Package caching provides a file-based fetch cache with a TTL, so
// repeated verification runs within the freshness window do not re-crawl
// the same event pages.
package caching

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one cached fetch result.
type Entry struct {
	FinalURL string `json:"final_url"`
	Status   int    `json:"status"`
	Body     string `json:"body"`
}

// Cache stores fetch results on disk, one file per URL.
type Cache struct {
	path string
	ttl  time.Duration
}

// NewCache creates a cache rooted at path. The directory is created if it
// doesn't exist. A non-positive ttl means entries never expire.
func NewCache(path string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{path: path, ttl: ttl}, nil
}

// key generates a SHA256 hash of the URL to use as a filename.
func (c *Cache) key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", hash)
}

// Get retrieves a fetch result from the cache. It returns the entry and
// true on a fresh hit, nil and false otherwise.
func (c *Cache) Get(url string) (*Entry, bool) {
	filePath := filepath.Join(c.path, c.key(url))

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, false
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// Set stores a fetch result.
func (c *Cache) Set(url string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	filePath := filepath.Join(c.path, c.key(url))
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}
