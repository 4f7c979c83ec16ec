package registry

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache represents the cached published-versions index
type Cache struct {
	Source    string            `yaml:"source"`
	Versions  PublishedVersions `yaml:"versions"`
	FetchedAt time.Time         `yaml:"fetched_at"`
}

// CacheManager handles published index caching
type CacheManager struct {
	path  string
	ttl   time.Duration
	cache *Cache
}

// NewCacheManager creates a new cache manager
func NewCacheManager(path string, ttl time.Duration) *CacheManager {
	return &CacheManager{
		path: path,
		ttl:  ttl,
	}
}

// Load reads the cache from disk
func (c *CacheManager) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.cache = nil
			return nil
		}
		return err
	}

	var cache Cache
	if err := yaml.Unmarshal(data, &cache); err != nil {
		return err
	}

	c.cache = &cache
	return nil
}

// Save writes the cache to disk
func (c *CacheManager) Save() error {
	if c.cache == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c.cache)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0644)
}

// IsValid checks if the cache holds a fresh copy of source
func (c *CacheManager) IsValid(source string) bool {
	if c.cache == nil || c.cache.Versions == nil || c.cache.Source != source {
		return false
	}
	return time.Since(c.cache.FetchedAt) < c.ttl
}

// Get returns the cached index
func (c *CacheManager) Get() PublishedVersions {
	if c.cache == nil {
		return nil
	}
	return c.cache.Versions
}

// Set updates the cache
func (c *CacheManager) Set(source string, versions PublishedVersions) error {
	c.cache = &Cache{
		Source:    source,
		Versions:  versions,
		FetchedAt: time.Now(),
	}
	return c.Save()
}
