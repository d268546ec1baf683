package inbox

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/brandon/unified-inbox/pkg/types"
)

type threadEntry struct {
	stamp    types.ThreadStamp
	messages []types.Message
}

// ThreadCache keeps recently opened thread histories. An entry is only valid
// while the thread's stamp in the store is unchanged.
type ThreadCache struct {
	cache *lru.Cache[string, threadEntry]
}

// NewThreadCache creates a cache holding at most size threads
func NewThreadCache(size int) (*ThreadCache, error) {
	c, err := lru.New[string, threadEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread cache: %w", err)
	}
	return &ThreadCache{cache: c}, nil
}

// Get returns the cached history if it was stored for stamp
func (c *ThreadCache) Get(threadID string, stamp types.ThreadStamp) ([]types.Message, bool) {
	entry, ok := c.cache.Get(threadID)
	if !ok || !entry.stamp.Equal(stamp) {
		return nil, false
	}
	return entry.messages, true
}

// Put stores a history
func (c *ThreadCache) Put(threadID string, stamp types.ThreadStamp, messages []types.Message) {
	c.cache.Add(threadID, threadEntry{stamp: stamp, messages: messages})
}

// Invalidate drops a thread
func (c *ThreadCache) Invalidate(threadID string) {
	c.cache.Remove(threadID)
}

// Len returns the number of cached threads
func (c *ThreadCache) Len() int {
	return c.cache.Len()
}
