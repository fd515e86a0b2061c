// Copyright 2022 The jackal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package privacy

import (
	"container/list"
	"sync"

	"github.com/ortuman/jackal-presence/pkg/cluster/instance"
	privacymodel "github.com/ortuman/jackal-presence/pkg/model/privacy"
)

const defaultCacheSize = 4096

type cacheEntry struct {
	key string
	l   *privacymodel.List
}

// Cache is a bounded LRU cache of default privacy lists keyed by bare JID.
// Absent default lists are cached as nil entries.
type Cache struct {
	size int

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element
}

// NewCache returns a new Cache instance holding up to size entries.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Cache{
		size:  size,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

// Get returns the cached list for key. ok is false on cache miss.
func (c *Cache) Get(key string) (l *privacymodel.List, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		cacheMisses.WithLabelValues(instance.ID()).Inc()
		return nil, false
	}
	c.ll.MoveToFront(elem)
	cacheHits.WithLabelValues(instance.ID()).Inc()
	return elem.Value.(*cacheEntry).l, true
}

// Put stores l under key evicting the least recently used entry if needed.
func (c *Cache) Put(key string, l *privacymodel.List) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheEntry).l = l
		c.ll.MoveToFront(elem)
		return
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, l: l})
	if c.ll.Len() <= c.size {
		return
	}
	oldest := c.ll.Back()
	c.ll.Remove(oldest)
	delete(c.items, oldest.Value.(*cacheEntry).key)
}

// Invalidate removes key entry. Invalidating an absent key is a no-op.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return
	}
	c.ll.Remove(elem)
	delete(c.items, key)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
