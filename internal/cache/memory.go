package cache

import (
	"fmt"
	"sync"
	"time"

	"shadowplay/internal/audio"
)

// entry is a cached item with expiration
type entry struct {
	value      interface{}
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

// Memory implements a simple TTL in-memory cache
type Memory struct {
	items map[string]*entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemory creates a new memory cache with the given TTL
func NewMemory(ttl time.Duration) *Memory {
	c := &Memory{
		items: make(map[string]*entry),
		ttl:   ttl,
	}
	go c.cleanupExpired()
	return c
}

// Set stores a value in the cache
func (c *Memory) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items[key] = &entry{value: value, expiration: time.Now().Add(c.ttl)}
}

// Get retrieves a value from the cache
func (c *Memory) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	e, exists := c.items[key]
	if !exists || e.expired() {
		return nil, false
	}
	return e.value, true
}

// Delete removes a value from the cache
func (c *Memory) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Memory) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]*entry)
}

// Size returns the number of items in the cache
func (c *Memory) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// cleanupExpired removes expired entries periodically
func (c *Memory) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, e := range c.items {
			if e.expired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

// BufferCache memoizes decoded tracks and extracted segment buffers. Segment
// extraction is a pure function of (segment id, buffer identity), so a cache
// hit is always valid until the material's track buffer changes.
type BufferCache struct {
	*Memory
}

// NewBufferCache creates a buffer cache with a 15 minute TTL
func NewBufferCache() *BufferCache {
	return &BufferCache{Memory: NewMemory(15 * time.Minute)}
}

func segmentKey(segmentID string, bufferGen int) string {
	return fmt.Sprintf("segment:%s:%d", segmentID, bufferGen)
}

// SetSegmentBuffer caches an extracted segment buffer. bufferGen identifies
// the source buffer; bump it when a new track is decoded.
func (bc *BufferCache) SetSegmentBuffer(segmentID string, bufferGen int, buf *audio.Buffer) {
	bc.Set(segmentKey(segmentID, bufferGen), buf)
}

// GetSegmentBuffer retrieves a cached segment buffer
func (bc *BufferCache) GetSegmentBuffer(segmentID string, bufferGen int) (*audio.Buffer, bool) {
	value, exists := bc.Get(segmentKey(segmentID, bufferGen))
	if !exists {
		return nil, false
	}
	buf, ok := value.(*audio.Buffer)
	return buf, ok
}

// SetTrackBuffer caches a whole decoded track by material id
func (bc *BufferCache) SetTrackBuffer(materialID string, buf *audio.Buffer) {
	bc.Set("track:"+materialID, buf)
}

// GetTrackBuffer retrieves a cached track buffer
func (bc *BufferCache) GetTrackBuffer(materialID string) (*audio.Buffer, bool) {
	value, exists := bc.Get("track:" + materialID)
	if !exists {
		return nil, false
	}
	buf, ok := value.(*audio.Buffer)
	return buf, ok
}
