/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package cache

import (
	"container/list"
	"sync"

	"github.com/spf13/afero"
)

// entry is the payload stored at each list.Element. The list itself
// supplies the LRU ordering (front = most recently used); the map supplies
// bucketed hash lookup. Colocating both in one structure avoids a separate
// node arena for the intrusive list.
type entry struct {
	key      string
	data     []byte
	pinCount int32
}

type lruCache struct {
	mu sync.Mutex

	capacity int64
	used     int64
	fs       afero.Fs

	index map[string]*list.Element
	order *list.List // front = MRU, back = LRU

	hits      uint64
	misses    uint64
	evictions uint64
}

func newLRU(capacity int64, fs afero.Fs) *lruCache {
	return &lruCache{
		capacity: capacity,
		fs:       fs,
		index:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

type handle struct {
	c    *lruCache
	e    *entry
	data []byte
}

func (h *handle) Bytes() []byte {
	return h.data
}

func (h *handle) Size() int64 {
	return int64(len(h.data))
}

func (h *handle) Release() {
	h.c.unpin(h.e)
}

func (c *lruCache) TryPin(key string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(el)
	e := el.Value.(*entry)
	e.pinCount++
	c.hits++

	return &handle{c: c, e: e, data: e.data}, true
}

func (c *lruCache) PinOrLoad(key string, absPath string) (Handle, error) {
	if h, ok := c.TryPin(key); ok {
		return h, nil
	}

	data, err := afero.ReadFile(c.fs, absPath)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-checked: another loader may have won the race while we were
	// reading the file without the mutex held.
	if el, ok := c.index[key]; ok {
		c.order.MoveToFront(el)
		e := el.Value.(*entry)
		e.pinCount++
		c.hits++
		return &handle{c: c, e: e, data: e.data}, nil
	}

	e := &entry{key: key, data: data, pinCount: 1}
	el := c.order.PushFront(e)
	c.index[key] = el
	c.used += int64(len(data))

	c.evict()

	return &handle{c: c, e: e, data: e.data}, nil
}

// evict walks from the back (LRU) of the list, removing the first unpinned
// entry, until used is within capacity or no evictable entry remains.
// Must be called with c.mu held.
func (c *lruCache) evict() {
	for c.used > c.capacity {
		el := c.order.Back()

		for el != nil && el.Value.(*entry).pinCount > 0 {
			el = el.Prev()
		}

		if el == nil {
			return
		}

		e := el.Value.(*entry)
		c.order.Remove(el)
		delete(c.index, e.key)
		c.used -= int64(len(e.data))
		c.evictions++
	}
}

func (c *lruCache) unpin(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.pinCount > 0 {
		e.pinCount--
	}

	// An unpin may have freed up an entry that eviction skipped earlier
	// while the cache was over capacity.
	c.evict()
}

func (c *lruCache) Invalidate(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return ErrNotFound
	}

	e := el.Value.(*entry)
	if e.pinCount > 0 {
		return nil
	}

	c.order.Remove(el)
	delete(c.index, key)
	c.used -= int64(len(e.data))

	return nil
}

func (c *lruCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Items:     len(c.index),
		BytesUsed: c.used,
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
