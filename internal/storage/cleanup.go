package storage

import (
	"sync"

	"go.uber.org/zap"
)

// Cleanup collects the files written while handling one request so they can
// be rolled back together if the request fails.
type Cleanup struct {
	store  *Store
	logger *zap.Logger

	mu     sync.Mutex
	videos []string
	thumbs []string
}

// NewCleanup returns an empty tracker for the given store.
func NewCleanup(store *Store, logger *zap.Logger) *Cleanup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleanup{store: store, logger: logger}
}

// AddVideo tracks a top-level asset.
func (c *Cleanup) AddVideo(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videos = append(c.videos, name)
}

// AddThumbnail tracks a thumbnail file.
func (c *Cleanup) AddThumbnail(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thumbs = append(c.thumbs, name)
}

// Release stops tracking everything; the files are kept.
func (c *Cleanup) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videos = c.videos[:0]
	c.thumbs = c.thumbs[:0]
}

// Run removes every tracked file. Failures are logged and do not stop the
// remaining removals. It returns the number of files removed.
func (c *Cleanup) Run() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, name := range c.videos {
		ok, err := c.store.Remove(name)
		if err != nil {
			c.logger.Warn("cleanup: remove asset failed", zap.String("file", name), zap.Error(err))
		}
		if ok {
			removed++
		}
	}
	for _, name := range c.thumbs {
		ok, err := c.store.RemoveThumbnail(name)
		if err != nil {
			c.logger.Warn("cleanup: remove thumbnail failed", zap.String("file", name), zap.Error(err))
		}
		if ok {
			removed++
		}
	}
	c.videos = c.videos[:0]
	c.thumbs = c.thumbs[:0]
	return removed
}
