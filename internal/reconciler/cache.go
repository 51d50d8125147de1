package reconciler

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"

	"po-outstanding-dashboard/pkg/logger"
)

// Cache memoizes the latest snapshot keyed on the modification times of the
// source files. Get rebuilds only when one of them changed. It is safe for
// concurrent use; snapshots are shared read-only.
type Cache struct {
	service *Service
	sources Sources
	logger  logger.Logger

	mu       sync.Mutex
	key      string
	snapshot *Snapshot
	builds   int
}

// NewCache creates an empty cache over the given sources
func NewCache(service *Service, sources Sources) *Cache {
	return &Cache{
		service: service,
		sources: sources,
		logger:  logger.GetGlobalLogger().WithComponent("dataset_cache"),
	}
}

// Sources returns the paths the cache watches
func (c *Cache) Sources() Sources {
	return c.sources
}

// Get returns the current snapshot, rebuilding it when a source changed.
// Missing sources fail before anything is read.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if err := c.sources.Check(); err != nil {
		return nil, err
	}

	key := c.fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil && c.key == key {
		return c.snapshot, nil
	}

	c.logger.WithFields(logger.Fields{
		"fingerprint": key,
		"previous":    c.key,
	}).Info("Source files changed, rebuilding dataset")

	snapshot, err := c.service.Build(ctx, c.sources)
	if err != nil {
		return nil, err
	}

	c.key = key
	c.snapshot = snapshot
	c.builds++

	c.logger.WithFields(logger.Fields{
		"snapshot_id": snapshot.ID,
		"records":     len(snapshot.Records),
		"build":       c.builds,
	}).Info("Dataset snapshot ready")

	return snapshot, nil
}

// Invalidate drops the memoized snapshot
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = ""
	c.snapshot = nil
}

// Builds returns how many times the dataset was rebuilt
func (c *Cache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

// fingerprint joins the modification times of every source
func (c *Cache) fingerprint() string {
	parts := make([]string, 0, 4)
	for _, path := range c.sources.Paths() {
		info, err := os.Stat(path)
		if err != nil {
			parts = append(parts, "-")
			continue
		}
		parts = append(parts, strconv.FormatInt(info.ModTime().UnixNano(), 10))
	}
	return strings.Join(parts, "|")
}
