package rag

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"routeqa/llm"
)

// ChunkCache keeps the chunks of already loaded documents, keyed by
// path, size and modification time. Safe for concurrent use.
type ChunkCache struct {
	mu      sync.Mutex
	entries map[string][]llm.Chunk
}

// NewChunkCache creates an empty cache.
func NewChunkCache() *ChunkCache {
	return &ChunkCache{entries: make(map[string][]llm.Chunk)}
}

// DocumentKey identifies the current content of the file at path.
// A rewritten file gets a new key.
func DocumentKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return fmt.Sprintf("%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano()), nil
}

// Get returns the cached chunks for key.
func (c *ChunkCache) Get(key string) ([]llm.Chunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chunks, ok := c.entries[key]
	return chunks, ok
}

// Put stores chunks under key, replacing any previous entry.
func (c *ChunkCache) Put(key string, chunks []llm.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = chunks
}

// Len returns the number of cached documents.
func (c *ChunkCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
